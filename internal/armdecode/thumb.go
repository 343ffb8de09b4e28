package armdecode

// ThumbVisitor is implemented by the translator. One method per guest
// instruction classification, each returning whether the translator should
// keep decoding within the current block (the visitor contract of
// spec.md §4.3: "invoke visitor which emits IR and returns a continue?
// boolean").
//
// Only the subset of Thumb16 exercised by spec.md's concrete scenarios and a
// handful of common neighbors are covered; full A32/Thumb-32 coverage is an
// explicit Non-goal.
type ThumbVisitor interface {
	// MOVSImm: "MOVS Rd, #imm8" (T1) — Rd = ZeroExtend(imm8), sets N,Z (C
	// unaffected per ARM ARM A7.7.76 T1 encoding, which carries no shifter
	// carry-out).
	MOVSImm(rd uint8, imm8 uint8) (cont bool)
	// LDRLiteral: "LDR Rt, [PC, #imm8*4]" (T1) — PC-relative literal load.
	LDRLiteral(rt uint8, imm8 uint8) (cont bool)
	// ADDRegT2: "ADD Rdn, Rm" (T2, low/high register form). When Rdn is PC
	// (R15), this is the boundary spec §8 calls out: the visitor must emit
	// ALUWritePC and terminate with ReturnToDispatch rather than SetRegister.
	ADDRegT2(rdn uint8, rm uint8) (cont bool)
	// LSRImm / ASRImm: "LSR/ASR Rd, Rm, #imm5" (T1). Per spec §4.3, an imm5
	// of 0 encodes shift-by-32, which the translator (not the decoder) must
	// substitute.
	LSRImm(rd, rm uint8, imm5 uint8) (cont bool)
	ASRImm(rd, rm uint8, imm5 uint8) (cont bool)
	// LSLImm: "LSL Rd, Rm, #imm5" (T1). imm5=0 is a plain MOV (no shift).
	LSLImm(rd, rm uint8, imm5 uint8) (cont bool)
	// ADDImm3 / SUBImm3: "ADD/SUB Rd, Rn, #imm3" (T1).
	ADDImm3(rd, rn uint8, imm3 uint8) (cont bool)
	SUBImm3(rd, rn uint8, imm3 uint8) (cont bool)
	// ANDReg / ORRReg / EORReg: two-register-operand data processing (T1).
	ANDReg(rdn, rm uint8) (cont bool)
	ORRReg(rdn, rm uint8) (cont bool)
	EORReg(rdn, rm uint8) (cont bool)
	// BCond: "B<cond> #imm8" (T1) conditional branch.
	BCond(cond uint8, imm8 uint8) (cont bool)
	// BUncond: "B #imm11" (T2) unconditional branch.
	BUncond(imm11 uint16) (cont bool)
	// BX: "BX Rm" — branch, possibly exchanging instruction set.
	BX(rm uint8) (cont bool)

	// UnpredictableInstruction is called for any bit pattern the decode
	// table does not recognize, or a recognized pattern whose operands make
	// it UNPREDICTABLE per the ARM ARM (e.g. "ADD R8, PC, PC", spec §8
	// scenario 6). Implementations may assert-and-abort in debug or emit
	// Interpret.
	UnpredictableInstruction() (cont bool)
}

// Field extraction helpers, named after the ARM ARM's bitfield notation.
func bits(v uint16, hi, lo uint) uint16 {
	n := hi - lo + 1
	return (v >> lo) & ((1 << n) - 1)
}

var thumbTable = []ThumbEntry{
	{
		Entry: Entry{Mask: 0xF800, Value: 0x2000, Name: "MOVS Rd, #imm8"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.MOVSImm(uint8(bits(instr, 10, 8)), uint8(instr&0xFF))
		},
	},
	{
		Entry: Entry{Mask: 0xF800, Value: 0x4800, Name: "LDR Rt, [PC, #imm8*4]"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.LDRLiteral(uint8(bits(instr, 10, 8)), uint8(instr&0xFF))
		},
	},
	{
		Entry: Entry{Mask: 0xFF00, Value: 0x4400, Name: "ADD Rdn, Rm (T2)"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			dn := uint8(bits(instr, 7, 7)<<3 | bits(instr, 2, 0))
			rm := uint8(bits(instr, 6, 3))
			if dn == 15 && rm == 15 {
				// "ADD R8, PC, PC"-shaped: both PC. UNPREDICTABLE per the
				// ARM ARM (spec §8 scenario 6 uses exactly this encoding).
				return v.UnpredictableInstruction()
			}
			return v.ADDRegT2(dn, rm)
		},
	},
	{
		Entry: Entry{Mask: 0xF800, Value: 0x0800, Name: "LSR Rd, Rm, #imm5"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.LSRImm(uint8(bits(instr, 2, 0)), uint8(bits(instr, 5, 3)), uint8(bits(instr, 10, 6)))
		},
	},
	{
		Entry: Entry{Mask: 0xF800, Value: 0x1000, Name: "ASR Rd, Rm, #imm5"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.ASRImm(uint8(bits(instr, 2, 0)), uint8(bits(instr, 5, 3)), uint8(bits(instr, 10, 6)))
		},
	},
	{
		Entry: Entry{Mask: 0xF800, Value: 0x0000, Name: "LSL Rd, Rm, #imm5"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.LSLImm(uint8(bits(instr, 2, 0)), uint8(bits(instr, 5, 3)), uint8(bits(instr, 10, 6)))
		},
	},
	{
		Entry: Entry{Mask: 0xFE00, Value: 0x1C00, Name: "ADD Rd, Rn, #imm3"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.ADDImm3(uint8(bits(instr, 2, 0)), uint8(bits(instr, 5, 3)), uint8(bits(instr, 8, 6)))
		},
	},
	{
		Entry: Entry{Mask: 0xFE00, Value: 0x1E00, Name: "SUB Rd, Rn, #imm3"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.SUBImm3(uint8(bits(instr, 2, 0)), uint8(bits(instr, 5, 3)), uint8(bits(instr, 8, 6)))
		},
	},
	{
		Entry: Entry{Mask: 0xFFC0, Value: 0x4000, Name: "ANDS Rdn, Rm"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.ANDReg(uint8(bits(instr, 2, 0)), uint8(bits(instr, 5, 3)))
		},
	},
	{
		Entry: Entry{Mask: 0xFFC0, Value: 0x4300, Name: "ORRS Rdn, Rm"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.ORRReg(uint8(bits(instr, 2, 0)), uint8(bits(instr, 5, 3)))
		},
	},
	{
		Entry: Entry{Mask: 0xFFC0, Value: 0x4040, Name: "EORS Rdn, Rm"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.EORReg(uint8(bits(instr, 2, 0)), uint8(bits(instr, 5, 3)))
		},
	},
	{
		Entry: Entry{Mask: 0xFF87, Value: 0x4700, Name: "BX Rm"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.BX(uint8(bits(instr, 6, 3)))
		},
	},
	{
		// B<cond> #imm8 — 0b1101 prefix, cond != 1110 (undefined) and
		// != 1111 (SVC, not modelled here).
		Entry: Entry{Mask: 0xF000, Value: 0xD000, Name: "B<cond> #imm8"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			cond := uint8(bits(instr, 11, 8))
			if cond == 0b1110 || cond == 0b1111 {
				return v.UnpredictableInstruction()
			}
			return v.BCond(cond, uint8(instr&0xFF))
		},
	},
	{
		Entry: Entry{Mask: 0xF800, Value: 0xE000, Name: "B #imm11"},
		Handler: func(v ThumbVisitor, instr uint16) bool {
			return v.BUncond(instr & 0x7FF)
		},
	},
}
