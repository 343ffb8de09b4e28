package translate

import (
	"github.com/Annomatg/dynarmic/internal/armdecode"
	"github.com/Annomatg/dynarmic/internal/armir"
	"github.com/Annomatg/dynarmic/internal/armlog"
)

var _ armdecode.ThumbVisitor = (*Translator)(nil)

// fetchThumb16 implements spec §4.2's Thumb fetch rule: "read aligned 32-bit
// word covering the PC; if PC is 2-mod-4, take the upper 16 bits."
func (t *Translator) fetchThumb16(pc uint32) uint16 {
	word := t.cb.MemoryRead32(pc &^ 3)
	if pc&2 != 0 {
		return uint16(word >> 16)
	}
	return uint16(word)
}

func (t *Translator) stepThumb() {
	pc := t.currentPC
	h := t.fetchThumb16(pc)

	if armdecode.IsThumb32(h) {
		// Thumb-32 decode tables are not implemented (Non-goal: full
		// A32/Thumb-32 coverage); fall back to the interpreter for this
		// one instruction rather than emit incorrect IR.
		t.log.Debug("thumb-32 encoding, falling back to interpreter",
			armlog.FieldGuestPC, pc, armlog.FieldISA, "thumb")
		t.terminate(armir.Terminator{Kind: armir.TermInterpret, Target: t.nextLocation(pc)})
		return
	}

	cont := armdecode.DecodeThumb16(t, h)
	if !cont {
		t.stop = true
		return
	}
	t.currentPC = pc + 2
}

func (t *Translator) MOVSImm(rd uint8, imm8 uint8) bool {
	v := t.b.Imm32(uint32(imm8))
	t.b.SetRegister(int(rd), v)
	t.b.SetNFlag(t.b.MostSignificantBit(v))
	t.b.SetZFlag(t.b.IsZero(v))
	return true
}

// LDRLiteral lifts "LDR Rt, [PC, #imm8*4]" (spec §8 scenario 2), using
// AlignPC(4) for the PC-relative effective address per spec §4.3.
func (t *Translator) LDRLiteral(rt uint8, imm8 uint8) bool {
	base := t.AlignPC(4)
	addr := base + uint32(imm8)*4
	v := t.b.ReadMemory32(t.b.Imm32(addr))
	t.b.SetRegister(int(rt), v)
	return true
}

// ADDRegT2 lifts "ADD Rdn, Rm" (T2). When Rdn is PC, per spec §8 this must
// go through ALUWritePC and terminate with ReturnToDispatch rather than
// SetRegister.
func (t *Translator) ADDRegT2(rdn uint8, rm uint8) bool {
	a := t.b.GetRegister(int(rdn))
	b := t.b.GetRegister(int(rm))
	sum := t.b.AddWithCarry(a, b, t.b.Imm1(false)).Result()
	if rdn == 15 {
		t.b.ALUWritePC(sum)
		t.terminate(armir.Terminator{Kind: armir.TermReturnToDispatch})
		return false
	}
	t.b.SetRegister(int(rdn), sum)
	return true
}

// shiftImmResult substitutes imm5==0 with a shift amount of 32 for LSR/ASR,
// per spec §4.3: "For shifts where the immediate 0 encodes shift-by-32
// (LSR, ASR), the translator must substitute 32."
func shiftImmResult(imm5 uint8) uint32 {
	if imm5 == 0 {
		return 32
	}
	return uint32(imm5)
}

func (t *Translator) LSRImm(rd, rm uint8, imm5 uint8) bool {
	x := t.b.GetRegister(int(rm))
	n := t.b.Imm32(shiftImmResult(imm5))
	r := t.b.LogicalShiftRight(x, n, t.b.GetCFlag())
	res := r.Result()
	t.b.SetRegister(int(rd), res)
	t.b.SetNFlag(t.b.MostSignificantBit(res))
	t.b.SetZFlag(t.b.IsZero(res))
	t.b.SetCFlag(r.Carry())
	return true
}

func (t *Translator) ASRImm(rd, rm uint8, imm5 uint8) bool {
	x := t.b.GetRegister(int(rm))
	n := t.b.Imm32(shiftImmResult(imm5))
	r := t.b.ArithmeticShiftRight(x, n, t.b.GetCFlag())
	res := r.Result()
	t.b.SetRegister(int(rd), res)
	t.b.SetNFlag(t.b.MostSignificantBit(res))
	t.b.SetZFlag(t.b.IsZero(res))
	t.b.SetCFlag(r.Carry())
	return true
}

func (t *Translator) LSLImm(rd, rm uint8, imm5 uint8) bool {
	x := t.b.GetRegister(int(rm))
	n := t.b.Imm32(uint32(imm5))
	r := t.b.LogicalShiftLeft(x, n, t.b.GetCFlag())
	res := r.Result()
	t.b.SetRegister(int(rd), res)
	t.b.SetNFlag(t.b.MostSignificantBit(res))
	t.b.SetZFlag(t.b.IsZero(res))
	if imm5 != 0 {
		t.b.SetCFlag(r.Carry())
	}
	return true
}

func (t *Translator) ADDImm3(rd, rn uint8, imm3 uint8) bool {
	a := t.b.GetRegister(int(rn))
	imm := t.b.Imm32(uint32(imm3))
	r := t.b.AddWithCarry(a, imm, t.b.Imm1(false))
	res := r.Result()
	t.b.SetRegister(int(rd), res)
	t.b.SetNFlag(t.b.MostSignificantBit(res))
	t.b.SetZFlag(t.b.IsZero(res))
	t.b.SetCFlag(r.Carry())
	t.b.SetVFlag(r.Overflow())
	return true
}

func (t *Translator) SUBImm3(rd, rn uint8, imm3 uint8) bool {
	a := t.b.GetRegister(int(rn))
	imm := t.b.Imm32(uint32(imm3))
	// SUB = a + ~b + 1 (carry-in 1 for subtraction, spec §4.3).
	r := t.b.SubWithCarry(a, imm, t.b.Imm1(true))
	res := r.Result()
	t.b.SetRegister(int(rd), res)
	t.b.SetNFlag(t.b.MostSignificantBit(res))
	t.b.SetZFlag(t.b.IsZero(res))
	t.b.SetCFlag(r.Carry())
	t.b.SetVFlag(r.Overflow())
	return true
}

func (t *Translator) logicalReg(rdn, rm uint8, op func(a, b armir.Value) armir.Value) bool {
	a := t.b.GetRegister(int(rdn))
	b := t.b.GetRegister(int(rm))
	res := op(a, b)
	t.b.SetRegister(int(rdn), res)
	t.b.SetNFlag(t.b.MostSignificantBit(res))
	t.b.SetZFlag(t.b.IsZero(res))
	return true
}

func (t *Translator) ANDReg(rdn, rm uint8) bool { return t.logicalReg(rdn, rm, t.b.And) }
func (t *Translator) ORRReg(rdn, rm uint8) bool { return t.logicalReg(rdn, rm, t.b.Or) }
func (t *Translator) EORReg(rdn, rm uint8) bool { return t.logicalReg(rdn, rm, t.b.Xor) }

// BCond lifts "B<cond> #imm8": a conditional, PC-relative branch that
// terminates the block with an If whose taken side targets the branch
// destination and whose not-taken side falls through.
func (t *Translator) BCond(cond uint8, imm8 uint8) bool {
	offset := int32(int8(imm8)) * 2
	target := uint32(int64(t.AlignPC(4)) + int64(offset))
	fallthroughPC := t.currentPC + 2

	const condAL = 0b1110
	if cond == condAL {
		t.terminate(armir.Terminator{Kind: armir.TermLinkBlock, Target: t.nextLocation(target)})
		return false
	}
	condVal, ok := t.evaluateCondition(cond)
	if !ok {
		// A genuinely unmodelled condition (HI/LS/GT/LE/reserved): bail to
		// Interpret rather than emit incorrect IR, mirroring BImm's A32
		// handling of the same evaluateCondition contract.
		t.terminate(armir.Terminator{Kind: armir.TermInterpret, Target: t.nextLocation(t.currentPC)})
		return false
	}
	t.terminate(armir.Terminator{
		Kind: armir.TermIf, Cond: condVal,
		Target: t.nextLocation(target), ElseTarget: t.nextLocation(fallthroughPC),
	})
	return false
}

func (t *Translator) BUncond(imm11 uint16) bool {
	offset := int32(int16(imm11<<5)>>5) * 2
	target := uint32(int64(t.AlignPC(4)) + int64(offset))
	t.terminate(armir.Terminator{Kind: armir.TermLinkBlockFast, Target: t.nextLocation(target)})
	return false
}

func (t *Translator) BX(rm uint8) bool {
	dest := t.b.GetRegister(int(rm))
	t.b.ALUWritePC(dest)
	t.terminate(armir.Terminator{Kind: armir.TermReturnToDispatch})
	return false
}

// UnpredictableInstruction implements spec §4.2: "either (a) call the
// visitor's UnpredictableInstruction handler ... or (b) emit Interpret."
// This translator always falls back to Interpret rather than asserting, so
// a release build degrades gracefully on encodings it cannot classify.
func (t *Translator) UnpredictableInstruction() bool {
	isa := "arm"
	if t.loc.Thumb {
		isa = "thumb"
	}
	t.log.Warn("unpredictable or unrecognized encoding",
		armlog.FieldGuestPC, t.currentPC, armlog.FieldISA, isa)
	t.terminate(armir.Terminator{Kind: armir.TermInterpret, Target: t.nextLocation(t.currentPC)})
	return false
}
