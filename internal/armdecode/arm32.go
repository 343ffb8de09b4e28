package armdecode

// ArmVisitor is the A32 (32-bit-word ISA) counterpart of ThumbVisitor.
// Coverage here is intentionally partial — full A32 coverage is a Non-goal —
// but enough to exercise the shared translator/optimizer/emitter pipeline
// end to end: data-processing immediate, PC-relative load, and branch.
type ArmVisitor interface {
	// DataProcessingImm covers the 4-bit-opcode, S-bit, immediate-operand2
	// data-processing family (AND/EOR/SUB/ADD/ORR/MOV/...).
	DataProcessingImm(cond, opcode uint8, s bool, rn, rd uint8, imm12 uint16) (cont bool)
	// LDRImm: "LDR Rt, [Rn, #+/-imm12]" (including PC-relative when Rn=15).
	LDRImm(cond uint8, rt, rn uint8, imm12 uint16, add, preIndex, writeBack bool) (cont bool)
	// BImm: "B{L}<cond> #imm24", a signed word-aligned PC-relative branch.
	BImm(cond uint8, link bool, imm24 uint32) (cont bool)

	UnpredictableInstruction() (cont bool)
}

func abits(v uint32, hi, lo uint) uint32 {
	n := hi - lo + 1
	return (v >> lo) & ((1 << n) - 1)
}

var armTable = []ArmEntry{
	{
		// Data-processing immediate: bits[27:26]==00, bit[25]==1.
		Entry: Entry{Mask: 0x0E000000, Value: 0x02000000, Name: "<dp> Rd, Rn, #imm12 (cond)"},
		Handler: func(v ArmVisitor, instr uint32) bool {
			cond := uint8(abits(instr, 31, 28))
			if cond == 0b1111 {
				return v.UnpredictableInstruction()
			}
			opcode := uint8(abits(instr, 24, 21))
			s := abits(instr, 20, 20) != 0
			rn := uint8(abits(instr, 19, 16))
			rd := uint8(abits(instr, 15, 12))
			imm12 := uint16(abits(instr, 11, 0))
			return v.DataProcessingImm(cond, opcode, s, rn, rd, imm12)
		},
	},
	{
		// LDR (immediate): bits[27:25]==010, bit[20]==1, bit[22]==0 (word, not byte).
		Entry: Entry{Mask: 0x0E500000, Value: 0x04100000, Name: "LDR Rt, [Rn, #imm12] (cond)"},
		Handler: func(v ArmVisitor, instr uint32) bool {
			cond := uint8(abits(instr, 31, 28))
			if cond == 0b1111 {
				return v.UnpredictableInstruction()
			}
			add := abits(instr, 23, 23) != 0
			preIndex := abits(instr, 24, 24) != 0
			writeBack := abits(instr, 21, 21) != 0 || !preIndex
			rn := uint8(abits(instr, 19, 16))
			rt := uint8(abits(instr, 15, 12))
			imm12 := uint16(abits(instr, 11, 0))
			return v.LDRImm(cond, rt, rn, imm12, add, preIndex, writeBack)
		},
	},
	{
		// B/BL: bits[27:25]==101.
		Entry: Entry{Mask: 0x0E000000, Value: 0x0A000000, Name: "B{L}<cond> #imm24"},
		Handler: func(v ArmVisitor, instr uint32) bool {
			cond := uint8(abits(instr, 31, 28))
			link := abits(instr, 24, 24) != 0
			imm24 := instr & 0xFFFFFF
			if cond == 0b1111 {
				// Unconditional BLX encoding space; not modelled.
				return v.UnpredictableInstruction()
			}
			return v.BImm(cond, link, imm24)
		},
	},
}
