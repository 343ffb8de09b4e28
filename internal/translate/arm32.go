package translate

import (
	"github.com/Annomatg/dynarmic/internal/armdecode"
	"github.com/Annomatg/dynarmic/internal/armir"
	"github.com/Annomatg/dynarmic/internal/armlog"
)

var _ armdecode.ArmVisitor = (*Translator)(nil)

const armCondAL = 0b1110

func (t *Translator) stepArm() {
	pc := t.currentPC
	word := t.cb.MemoryRead32(pc) // spec §4.2: ARM reads an aligned 32-bit word; unaligned PC is unpredictable.

	cont := armdecode.DecodeArm32(t, word)
	if !cont {
		t.stop = true
		return
	}
	t.currentPC = pc + 4
}

// decodeImm12 expands an ARM data-processing immediate operand2: an 8-bit
// value rotated right by twice a 4-bit rotate field.
func decodeImm12(imm12 uint16) uint32 {
	rotate := uint32(imm12>>8) & 0xF
	imm8 := uint32(imm12) & 0xFF
	shift := rotate * 2
	if shift == 0 {
		return imm8
	}
	return imm8>>shift | imm8<<(32-shift)
}

// nonALCondBails falls back to Interpret for any conditionally-executed A32
// instruction other than AL. A32 condition codes predicate the entire
// instruction in place (no branch), which this scaled-down translator does
// not lower to a select-based IR sequence; doing so correctly is future
// work, recorded as an Open Question in DESIGN.md.
func (t *Translator) nonALCondBails(cond uint8) bool {
	if cond == armCondAL {
		return false
	}
	t.log.Debug("predicated (non-AL) A32 instruction, falling back to interpreter",
		armlog.FieldGuestPC, t.currentPC, armlog.FieldISA, "arm")
	t.terminate(armir.Terminator{Kind: armir.TermInterpret, Target: t.nextLocation(t.currentPC)})
	return true
}

func (t *Translator) DataProcessingImm(cond, opcode uint8, s bool, rn, rd uint8, imm12 uint16) bool {
	if t.nonALCondBails(cond) {
		return false
	}
	imm := t.b.Imm32(decodeImm12(imm12))

	var res armir.Value
	var carry, overflow armir.Value
	haveCarry, haveOverflow := false, false

	switch opcode {
	case 0b0000: // AND
		res = t.b.And(t.b.GetRegister(int(rn)), imm)
	case 0b0001: // EOR
		res = t.b.Xor(t.b.GetRegister(int(rn)), imm)
	case 0b0010: // SUB
		r := t.b.SubWithCarry(t.b.GetRegister(int(rn)), imm, t.b.Imm1(true))
		res, carry, overflow = r.Result(), r.Carry(), r.Overflow()
		haveCarry, haveOverflow = true, true
	case 0b0100: // ADD
		r := t.b.AddWithCarry(t.b.GetRegister(int(rn)), imm, t.b.Imm1(false))
		res, carry, overflow = r.Result(), r.Carry(), r.Overflow()
		haveCarry, haveOverflow = true, true
	case 0b1100: // ORR
		res = t.b.Or(t.b.GetRegister(int(rn)), imm)
	case 0b1101: // MOV (ignores Rn)
		res = imm
	default:
		t.log.Debug("unsupported data-processing opcode, falling back to interpreter",
			armlog.FieldGuestPC, t.currentPC, armlog.FieldOpcode, opcode)
		t.terminate(armir.Terminator{Kind: armir.TermInterpret, Target: t.nextLocation(t.currentPC)})
		return false
	}

	if rd == 15 {
		t.b.ALUWritePC(res)
		t.terminate(armir.Terminator{Kind: armir.TermReturnToDispatch})
		return false
	}
	t.b.SetRegister(int(rd), res)
	// Per spec §8: "if the S-bit is clear then no flag-set IR appears."
	if s {
		t.b.SetNFlag(t.b.MostSignificantBit(res))
		t.b.SetZFlag(t.b.IsZero(res))
		if haveCarry {
			t.b.SetCFlag(carry)
		}
		if haveOverflow {
			t.b.SetVFlag(overflow)
		}
	}
	return true
}

func (t *Translator) LDRImm(cond uint8, rt, rn uint8, imm12 uint16, add, preIndex, writeBack bool) bool {
	if t.nonALCondBails(cond) {
		return false
	}
	var base uint32
	if rn == 15 {
		base = t.AlignPC(8) // ARM PC read-ahead is +8, per spec §4.3.
	}
	offset := int32(imm12)
	if !add {
		offset = -offset
	}

	var addrVal armir.Value
	if rn == 15 {
		ea := uint32(int64(base) + int64(offset))
		addrVal = t.b.Imm32(ea)
	} else {
		rnVal := t.b.GetRegister(int(rn))
		offsetVal := t.b.Imm32(uint32(offset))
		ea := rnVal
		if preIndex {
			ea = t.b.AddWithCarry(rnVal, offsetVal, t.b.Imm1(false)).Result()
		}
		addrVal = ea
		if writeBack {
			wb := t.b.AddWithCarry(rnVal, offsetVal, t.b.Imm1(false)).Result()
			t.b.SetRegister(int(rn), wb)
		}
	}

	data := t.b.ReadMemory32(addrVal)
	if rt == 15 {
		t.b.ALUWritePC(data)
		t.terminate(armir.Terminator{Kind: armir.TermReturnToDispatch})
		return false
	}
	t.b.SetRegister(int(rt), data)
	return true
}

func (t *Translator) BImm(cond uint8, link bool, imm24 uint32) bool {
	offset := int32(int32(imm24<<8)>>8) * 4
	target := uint32(int64(t.AlignPC(8)) + int64(offset))

	if link {
		t.b.SetRegister(14, t.b.Imm32(t.currentPC+4))
	}

	if cond == armCondAL {
		t.terminate(armir.Terminator{Kind: armir.TermLinkBlockFast, Target: t.nextLocation(target)})
		return false
	}
	condVal, ok := t.evaluateCondition(cond)
	if !ok {
		t.terminate(armir.Terminator{Kind: armir.TermInterpret, Target: t.nextLocation(t.currentPC)})
		return false
	}
	fallthroughPC := t.currentPC + 4
	t.terminate(armir.Terminator{
		Kind: armir.TermIf, Cond: condVal,
		Target: t.nextLocation(target), ElseTarget: t.nextLocation(fallthroughPC),
	})
	return false
}
