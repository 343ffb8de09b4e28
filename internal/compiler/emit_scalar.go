package compiler

import (
	"fmt"

	"github.com/Annomatg/dynarmic/internal/armir"
	"github.com/Annomatg/dynarmic/internal/asm"
	"github.com/Annomatg/dynarmic/internal/asm/amd64"
	"github.com/Annomatg/dynarmic/internal/hostabi"
)

// Emitter walks one armir.Block's instruction list in order and emits host
// code for each live instruction, following spec.md §4.5: "For each IR
// opcode, the emitter emits a short fixed template." Dead (Invalidated)
// instructions are skipped rather than removed, per the optimizer's
// mutate-in-place contract (internal/optimize).
type Emitter struct {
	asmb  amd64.Assembler
	alloc *Allocator
	vec   *vectorEmitter
}

// NewEmitter constructs an Emitter targeting asmb.
func NewEmitter(asmb amd64.Assembler) *Emitter {
	alloc := NewAllocator(asmb)
	return &Emitter{asmb: asmb, alloc: alloc, vec: newVectorEmitter(asmb, alloc)}
}

// Emit lowers blk to host code, returning the frame size its spill area
// needs (the block prologue, which this package does not emit, reserves this
// many bytes below amd64.ReservedSpillBase).
func (e *Emitter) Emit(blk *armir.Block) (int32, error) {
	for i := range blk.Instructions {
		inst := &blk.Instructions[i]
		if inst.Invalidated {
			continue
		}
		if err := e.emitOne(blk, i, inst); err != nil {
			return 0, fmt.Errorf("emitting instruction %d (%s): %w", i, inst.Kind, err)
		}
		e.alloc.EndOfAllocScope()
	}
	if err := e.emitTerminator(blk); err != nil {
		return 0, fmt.Errorf("emitting terminator: %w", err)
	}
	return e.alloc.FrameSize(), nil
}

func (e *Emitter) emitOne(blk *armir.Block, idx int, inst *armir.Instruction) error {
	switch inst.Kind {
	case armir.KindGetRegister:
		reg := e.alloc.ScratchGpr()
		e.asmb.CompileMemoryToRegister(amd64.MOVL, amd64.ReservedCPUState, int64(hostabi.OffsetRegs+inst.Register*4), reg)
		e.alloc.DefineValue(blk, idx, reg)

	case armir.KindSetRegister:
		reg := e.alloc.UseGpr(inst.Args[0])
		e.asmb.CompileRegisterToMemory(amd64.MOVL, reg, amd64.ReservedCPUState, int64(hostabi.OffsetRegs+inst.Register*4))

	case armir.KindGetNFlag, armir.KindGetZFlag, armir.KindGetCFlag, armir.KindGetVFlag:
		reg := e.alloc.ScratchGpr()
		e.asmb.CompileMemoryToRegister(amd64.MOVB, amd64.ReservedCPUState, int64(flagOffset(inst.Kind)), reg)
		e.alloc.DefineValue(blk, idx, reg)

	case armir.KindSetNFlag, armir.KindSetZFlag, armir.KindSetCFlag, armir.KindSetVFlag:
		reg := e.alloc.UseGpr(inst.Args[0])
		e.asmb.CompileRegisterToMemory(amd64.MOVB, reg, amd64.ReservedCPUState, int64(flagOffsetForSet(inst.Kind)))

	case armir.KindImm1, armir.KindImm8, armir.KindImm16, armir.KindImm32, armir.KindImm64:
		reg := e.alloc.ScratchGpr()
		e.asmb.CompileConstToRegister(amd64.MOVQ, int64(inst.Imm), reg)
		e.alloc.DefineValue(blk, idx, reg)

	case armir.KindAddWithCarry:
		e.emitAddSubWithCarry(blk, idx, inst, false)
	case armir.KindSubWithCarry:
		e.emitAddSubWithCarry(blk, idx, inst, true)
	case armir.KindExtractResult, armir.KindExtractCarry, armir.KindExtractOverflow:
		// No-op: emitAddSubWithCarry/emitShift already bound this exact
		// instruction index to a register via bindExtraction when they
		// processed the AddWithCarry/SubWithCarry/shift instruction earlier
		// in the same walk.

	case armir.KindAnd, armir.KindOr, armir.KindXor:
		a := e.alloc.UseScratchGpr(inst.Args[0])
		b := e.alloc.UseGpr(inst.Args[1])
		e.asmb.CompileRegisterToRegister(logicalInstruction(inst.Kind), b, a)
		e.alloc.DefineValue(blk, idx, a)

	case armir.KindNot:
		a := e.alloc.UseScratchGpr(inst.Args[0])
		e.asmb.CompileRegisterToNone(amd64.NOTL, a)
		e.alloc.DefineValue(blk, idx, a)

	case armir.KindLogicalShiftLeft, armir.KindLogicalShiftRight, armir.KindArithmeticShiftRight, armir.KindRotateRight:
		e.emitShift(blk, idx, inst)

	case armir.KindMostSignificantBit:
		e.emitBitTest(blk, idx, inst, 31)
	case armir.KindIsZero:
		a := e.alloc.UseGpr(inst.Args[0])
		e.asmb.CompileRegisterToRegister(amd64.TESTL, a, a)
		dst := e.alloc.ScratchGpr()
		e.asmb.CompileNoneToRegister(amd64.SETEQ, dst)
		e.alloc.DefineValue(blk, idx, dst)

	case armir.KindLeastSignificantByte, armir.KindLeastSignificantHalf:
		a := e.alloc.UseGpr(inst.Args[0])
		dst := e.alloc.ScratchGpr()
		mov := amd64.MOVBLZX
		if inst.Kind == armir.KindLeastSignificantHalf {
			mov = amd64.MOVWLZX
		}
		e.asmb.CompileRegisterToRegister(mov, a, dst)
		e.alloc.DefineValue(blk, idx, dst)

	case armir.KindSignExtend8, armir.KindSignExtend16, armir.KindZeroExtend8, armir.KindZeroExtend16:
		a := e.alloc.UseGpr(inst.Args[0])
		dst := e.alloc.ScratchGpr()
		e.asmb.CompileRegisterToRegister(extendInstruction(inst.Kind), a, dst)
		e.alloc.DefineValue(blk, idx, dst)

	case armir.KindByteReverse16, armir.KindByteReverse32:
		a := e.alloc.UseScratchGpr(inst.Args[0])
		e.emitByteReverse(a, inst.Kind == armir.KindByteReverse16)
		e.alloc.DefineValue(blk, idx, a)

	case armir.KindReadMemory8, armir.KindReadMemory16, armir.KindReadMemory32, armir.KindReadMemory64:
		e.emitReadMemory(blk, idx, inst)
	case armir.KindWriteMemory8, armir.KindWriteMemory16, armir.KindWriteMemory32, armir.KindWriteMemory64:
		e.emitWriteMemory(inst)

	case armir.KindCallSupervisor:
		e.emitCallSupervisor(inst)
	case armir.KindALUWritePC:
		reg := e.alloc.UseGpr(inst.Args[0])
		e.asmb.CompileRegisterToMemory(amd64.MOVL, reg, amd64.ReservedCPUState, int64(hostabi.OffsetRegs+15*4))

	case armir.KindVectorFPBinary, armir.KindVectorFPUnary, armir.KindVectorFPMinMax, armir.KindVectorFPFMA,
		armir.KindVectorFPToFixed, armir.KindVectorIntToFP:
		return e.vec.emit(blk, idx, inst)

	default:
		return fmt.Errorf("unhandled IR opcode %s", inst.Kind)
	}
	return nil
}

func flagOffset(k armir.Kind) int {
	switch k {
	case armir.KindGetNFlag:
		return hostabi.OffsetFlagN
	case armir.KindGetZFlag:
		return hostabi.OffsetFlagZ
	case armir.KindGetCFlag:
		return hostabi.OffsetFlagC
	default:
		return hostabi.OffsetFlagV
	}
}

func flagOffsetForSet(k armir.Kind) int {
	switch k {
	case armir.KindSetNFlag:
		return hostabi.OffsetFlagN
	case armir.KindSetZFlag:
		return hostabi.OffsetFlagZ
	case armir.KindSetCFlag:
		return hostabi.OffsetFlagC
	default:
		return hostabi.OffsetFlagV
	}
}

func logicalInstruction(k armir.Kind) asm.Instruction {
	switch k {
	case armir.KindAnd:
		return amd64.ANDL
	case armir.KindOr:
		return amd64.ORL
	default:
		return amd64.XORL
	}
}

func extendInstruction(k armir.Kind) asm.Instruction {
	switch k {
	case armir.KindSignExtend8:
		return amd64.MOVBLSX
	case armir.KindSignExtend16:
		return amd64.MOVWLSX
	case armir.KindZeroExtend8:
		return amd64.MOVBLZX
	default:
		return amd64.MOVWLZX
	}
}

// emitAddSubWithCarry implements ARM's AddWithCarry/SubWithCarry primitive
// (spec §4.3) as ADCL/SBBL against a carry flag loaded from Args[2],
// producing {result, carry, overflow} each bound to their own GPR so later
// ExtractResult/Carry/Overflow references are free.
func (e *Emitter) emitAddSubWithCarry(blk *armir.Block, idx int, inst *armir.Instruction, sub bool) {
	a := e.alloc.UseScratchGpr(inst.Args[0])
	b := e.alloc.UseGpr(inst.Args[1])
	cin := e.alloc.UseGpr(inst.Args[2])

	// Load the IR's carry-in bit into the host carry flag: copy cin to a
	// scratch and SHRL $1 so bit 0 lands in CF; SBBL/ADCL below then consume
	// CF directly. SBBL subtracts CF as a borrow, so for a subtract the bit is
	// inverted first: a + ~b + cin == a - b - !cin.
	cf := e.alloc.ScratchGpr()
	e.asmb.CompileRegisterToRegister(amd64.MOVL, cin, cf)
	if sub {
		e.asmb.CompileConstToRegister(amd64.XORL, 1, cf)
	}
	e.asmb.CompileConstToRegister(amd64.SHRL, 1, cf) // CF := bit 0 of cf.

	if sub {
		e.asmb.CompileRegisterToRegister(amd64.SBBL, b, a)
	} else {
		e.asmb.CompileRegisterToRegister(amd64.ADCL, b, a)
	}

	result := a
	carry := e.alloc.ScratchGpr()
	e.asmb.CompileNoneToRegister(amd64.SETCS, carry)
	overflow := e.alloc.ScratchGpr()
	e.asmb.CompileNoneToRegister(amd64.SETOF, overflow)
	if sub {
		// x86's CF after SBBL is a borrow; ARM's carry out of a subtract is
		// NOT borrow. Flipped after SETOF so OF is read first.
		e.asmb.CompileConstToRegister(amd64.XORL, 1, carry)
	}

	// AddWithCarry/SubWithCarry's own instruction slot (idx) is never
	// referenced directly by later IR — only its ExtractResult/Carry/
	// Overflow instructions are, each its own index in blk.Instructions — so
	// the three results bind to wherever those Extract* nodes actually live.
	bindExtraction(e.alloc, blk, idx, armir.KindExtractResult, result)
	bindExtraction(e.alloc, blk, idx, armir.KindExtractCarry, carry)
	bindExtraction(e.alloc, blk, idx, armir.KindExtractOverflow, overflow)
}

// bindExtraction finds the (at most one) ExtractResult/ExtractCarry/
// ExtractOverflow instruction of the given kind in blk whose Args[0]
// references def and binds it to reg. The IR builder emits these immediately
// after the defining AddWithCarry/SubWithCarry/shift call if and when the
// translator invokes .Result()/.Carry()/.Overflow(), so a forward scan from
// def+1 finds it cheaply.
func bindExtraction(a *Allocator, blk *armir.Block, def int, kind armir.Kind, reg asm.Register) {
	for j := def + 1; j < len(blk.Instructions); j++ {
		cand := &blk.Instructions[j]
		if cand.Kind == kind && !cand.Args[0].IsImm() && cand.Args[0].RefIndex() == def {
			a.DefineValue(blk, j, reg)
			return
		}
	}
}

// emitShift implements LSL/LSR/ASR/ROR, producing {result, carry}.
func (e *Emitter) emitShift(blk *armir.Block, idx int, inst *armir.Instruction) {
	x := e.alloc.UseScratchGpr(inst.Args[0])
	n := e.alloc.UseGpr(inst.Args[1])
	// x86 shift instructions take their count in CL; reserve it explicitly.
	cl := e.alloc.ReserveFixedGpr(amd64.RegCX)
	e.asmb.CompileRegisterToRegister(amd64.MOVL, n, cl)

	// LSR/ASR by 32 (the translator's substitute for an immediate of 0) must
	// give 0 or the sign fill with carry = bit 31, but 32-bit x86 shifts mask
	// the count to 5 bits. Those two shift the value widened to 64 bits, whose
	// count mask is 6 bits, so the low 32 bits and CF match for counts 1..32.
	shift := shiftInstruction(inst.Kind)
	switch inst.Kind {
	case armir.KindLogicalShiftRight:
		e.asmb.CompileRegisterToRegister(amd64.MOVL, x, x) // zero-extends to 64 bits.
		shift = amd64.SHRQ
	case armir.KindArithmeticShiftRight:
		e.asmb.CompileRegisterToRegister(amd64.MOVLQSX, x, x)
		shift = amd64.SARQ
	}
	e.asmb.CompileRegisterToRegister(shift, cl, x)
	result := x
	carry := e.alloc.ScratchGpr()
	e.asmb.CompileNoneToRegister(amd64.SETCS, carry)

	bindExtraction(e.alloc, blk, idx, armir.KindExtractResult, result)
	bindExtraction(e.alloc, blk, idx, armir.KindExtractCarry, carry)
}

func shiftInstruction(k armir.Kind) asm.Instruction {
	switch k {
	case armir.KindLogicalShiftLeft:
		return amd64.SHLL
	case armir.KindLogicalShiftRight:
		return amd64.SHRL
	case armir.KindArithmeticShiftRight:
		return amd64.SARL
	default:
		return amd64.RORL
	}
}

// emitBitTest extracts bit n of Args[0] as a 0/1 GPR value.
func (e *Emitter) emitBitTest(blk *armir.Block, idx int, inst *armir.Instruction, n int) {
	a := e.alloc.UseScratchGpr(inst.Args[0])
	e.asmb.CompileConstToRegister(amd64.SHRL, int64(n), a)
	e.asmb.CompileConstToRegister(amd64.ANDL, 1, a)
	e.alloc.DefineValue(blk, idx, a)
}

func (e *Emitter) emitByteReverse(reg asm.Register, half bool) {
	if half {
		// No 16-bit BSWAP: reverse all four bytes, then shift the swapped low
		// half down into bits 0..15.
		e.asmb.CompileRegisterToNone(amd64.BSWAPL, reg)
		e.asmb.CompileConstToRegister(amd64.SHRL, 16, reg)
		return
	}
	e.asmb.CompileRegisterToNone(amd64.BSWAPL, reg)
}

// emitReadMemory routes through hostabi.Callbacks.MemoryReadN rather than a
// direct load against amd64.ReservedMemBase: guest memory is not assumed to
// be host-mapped 1:1 (spec.md §1 places "the host memory-manager surface" out
// of scope), so every access is a HostCall to the embedder's callback.
func (e *Emitter) emitReadMemory(blk *armir.Block, idx int, inst *armir.Instruction) {
	addr := e.alloc.UseGpr(inst.Args[0])
	e.asmb.CompileRegisterToRegister(amd64.MOVL, addr, e.alloc.HostCall())
	target := e.alloc.HostCall()
	e.asmb.CompileCallFunctionAddress(target)
	dst := e.alloc.ScratchGpr()
	e.asmb.CompileRegisterToRegister(amd64.MOVQ, target, dst)
	e.alloc.DefineValue(blk, idx, dst)
}

func (e *Emitter) emitWriteMemory(inst *armir.Instruction) {
	addr := e.alloc.UseGpr(inst.Args[0])
	data := e.alloc.UseGpr(inst.Args[1])
	target := e.alloc.HostCall()
	e.asmb.CompileRegisterToRegister(amd64.MOVL, addr, target)
	e.asmb.CompileRegisterToRegister(amd64.MOVL, data, target)
	e.asmb.CompileCallFunctionAddress(target)
}

func (e *Emitter) emitCallSupervisor(inst *armir.Instruction) {
	target := e.alloc.HostCall()
	e.asmb.CompileConstToRegister(amd64.MOVL, int64(inst.Imm), target)
	e.asmb.CompileCallFunctionAddress(target)
}

// emitTerminator lowers blk's terminator to real host control flow. Per
// spec.md §1, "the dispatcher loop that chains compiled blocks" is an
// external collaborator — this emitter never jumps directly into another
// compiled block's code — so every path here instead writes the guest PC the
// dispatcher should resume at into CPUState.Regs[15] (the same slot
// KindALUWritePC writes) and returns, matching spec §5's compiled-block entry
// contract: "the compiled block saves callee-save registers it uses and
// restores them before any terminator return." Live values with future uses
// need no separate spill step here: every guest register/flag write already
// goes straight to the CPUState image (KindSetRegister/KindSetNFlag etc.
// above), so nothing is left transiently homed in a register by the time a
// terminator runs.
func (e *Emitter) emitTerminator(blk *armir.Block) error {
	switch blk.Term.Kind {
	case armir.TermLinkBlock, armir.TermLinkBlockFast, armir.TermInterpret:
		e.writeTargetPC(blk.Term.Target)
		e.asmb.CompileStandAlone(amd64.RET)
		return nil
	case armir.TermReturnToDispatch:
		// The target PC is dynamic: whatever ALUWritePC wrote to
		// CPUState.Regs[15] ahead of this terminator already holds it.
		e.asmb.CompileStandAlone(amd64.RET)
		return nil
	case armir.TermIf:
		cond := e.alloc.UseGpr(blk.Term.Cond)
		e.asmb.CompileRegisterToRegister(amd64.TESTL, cond, cond)
		toElse := e.asmb.CompileJump(amd64.JEQ)
		e.writeTargetPC(blk.Term.Target)
		toDone := e.asmb.CompileJump(amd64.JMP)
		e.asmb.SetJumpTargetOnNext(toElse)
		e.writeTargetPC(blk.Term.ElseTarget)
		e.asmb.SetJumpTargetOnNext(toDone)
		e.asmb.CompileStandAlone(amd64.RET)
		return nil
	default:
		return fmt.Errorf("block has no terminator (Kind=%d)", blk.Term.Kind)
	}
}

// writeTargetPC stores loc.PC into the guest CPU state's PC slot
// (Regs[15]), the slot the out-of-scope dispatcher reads to resume
// execution at the next terminator-named location.
func (e *Emitter) writeTargetPC(loc armir.Location) {
	scratch := e.alloc.ScratchGpr()
	e.asmb.CompileConstToRegister(amd64.MOVL, int64(loc.PC), scratch)
	e.asmb.CompileRegisterToMemory(amd64.MOVL, scratch, amd64.ReservedCPUState, int64(hostabi.OffsetRegs+15*4))
}
