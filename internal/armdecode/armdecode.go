// Package armdecode implements the guest instruction decoder: per-ISA
// tables of (mask, value, handler) entries, first-match-wins, dispatching to
// a visitor interface that the translator implements to lift IR.
//
// Grounded on two shapes from the retrieval pack: the mask/shift-and-compare
// decode style of a real ARM7TDMI Thumb decoder
// (other_examples JetSetIlly-Gopher2600 thumb.go, "Figure 5-1 of the ARM7TDMI
// Data Sheet"), and wazero's visitor-returns-continue? dispatch convention
// used throughout internal/engine/compiler.
package armdecode

// Entry is one decode-table row: an opcode word matches iff
// (word & Mask) == Value. Entries are tried in order; the first match wins.
type Entry struct {
	Mask, Value uint32
	Name        string
}

// ThumbHandler decodes the bitfields of a matched 16-bit Thumb instruction
// and invokes the corresponding ThumbVisitor method, returning whether the
// translator should continue decoding the current block (false means the
// visitor set a terminator or requested a guest fault/fallback).
type ThumbHandler func(v ThumbVisitor, instr uint16) (cont bool)

// ThumbEntry pairs a decode pattern with its handler.
type ThumbEntry struct {
	Entry
	Handler ThumbHandler
}

// ArmHandler is the A32 (32-bit word) analogue of ThumbHandler.
type ArmHandler func(v ArmVisitor, instr uint32) (cont bool)

// ArmEntry pairs a decode pattern with its handler.
type ArmEntry struct {
	Entry
	Handler ArmHandler
}

// IsThumb32 reports whether the 16-bit half-word h begins a 32-bit Thumb-2
// instruction: per spec §4.2, when the high 5 bits fall in
// {0b11101, 0b11110, 0b11111}.
func IsThumb32(h uint16) bool {
	top5 := h >> 11
	return top5 == 0b11101 || top5 == 0b11110 || top5 == 0b11111
}

// DecodeThumb16 matches instr against the Thumb decode table and invokes the
// winning handler. If no entry matches, it invokes v.UnpredictableInstruction,
// per spec §4.2: the translator must never emit incorrect IR for an encoding
// it does not recognize.
func DecodeThumb16(v ThumbVisitor, instr uint16) (cont bool) {
	for _, e := range thumbTable {
		if uint32(instr)&e.Mask == e.Value {
			return e.Handler(v, instr)
		}
	}
	return v.UnpredictableInstruction()
}

// DecodeArm32 is the A32 analogue of DecodeThumb16.
func DecodeArm32(v ArmVisitor, instr uint32) (cont bool) {
	for _, e := range armTable {
		if instr&e.Mask == e.Value {
			return e.Handler(v, instr)
		}
	}
	return v.UnpredictableInstruction()
}
