package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Annomatg/dynarmic/internal/armir"
)

// movImmThenSetRegBlock builds { r0 := GetRegister(0); imm := Imm32(5);
// SetRegister(0, imm) } terminated by TermLinkBlockFast, exercising the
// GetRegister/Imm/SetRegister templates end to end through Emit.
func movImmThenSetRegBlock() *armir.Block {
	return &armir.Block{
		Instructions: []armir.Instruction{
			{Kind: armir.KindGetRegister, Register: 0, HasResult: true, ResultWidth: armir.Width32, Uses: 0},
			{Kind: armir.KindImm32, Imm: 5, HasResult: true, ResultWidth: armir.Width32, Uses: 1},
			{Kind: armir.KindSetRegister, Register: 0, Args: [3]armir.Value{armir.RefValue(1, armir.Width32)}, NumArgs: 1},
		},
		Term: armir.Terminator{Kind: armir.TermLinkBlockFast},
	}
}

func TestEmitScalarProgramProducesNoError(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	blk := movImmThenSetRegBlock()

	frame, err := e.Emit(blk)
	require.NoError(t, err)
	require.Zero(t, frame) // nothing spilled: one GPR value, used once, never evicted.
	require.Contains(t, asmb.calls, "mem->reg") // GetRegister
	require.Contains(t, asmb.calls, "const->reg") // Imm32
	require.Contains(t, asmb.calls, "reg->mem") // SetRegister
}

func TestEmitAddWithCarryBindsExtractions(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	blk := &armir.Block{
		Instructions: []armir.Instruction{
			{Kind: armir.KindGetRegister, Register: 0, HasResult: true, Uses: 1},
			{Kind: armir.KindGetRegister, Register: 1, HasResult: true, Uses: 1},
			{Kind: armir.KindGetCFlag, HasResult: true, Uses: 1},
			{Kind: armir.KindAddWithCarry, Args: [3]armir.Value{
				armir.RefValue(0, armir.Width32), armir.RefValue(1, armir.Width32), armir.RefValue(2, armir.Width1),
			}, NumArgs: 3, HasResult: true, Uses: 0},
			{Kind: armir.KindExtractResult, Args: [3]armir.Value{armir.RefValue(3, armir.Width32)}, NumArgs: 1, HasResult: true, Uses: 1},
			{Kind: armir.KindSetRegister, Register: 0, Args: [3]armir.Value{armir.RefValue(4, armir.Width32)}, NumArgs: 1},
		},
		Term: armir.Terminator{Kind: armir.TermReturnToDispatch},
	}

	_, err := e.Emit(blk)
	require.NoError(t, err)
}

func TestEmitUnhandledOpcodeReturnsError(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	blk := &armir.Block{
		Instructions: []armir.Instruction{{Kind: armir.KindInvalid}},
		Term:         armir.Terminator{Kind: armir.TermReturnToDispatch},
	}
	_, err := e.Emit(blk)
	require.Error(t, err)
}

func TestEmitTermIfUsesConditionRegister(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	blk := &armir.Block{
		Instructions: []armir.Instruction{
			{Kind: armir.KindGetZFlag, HasResult: true, Uses: 1},
		},
		Term: armir.Terminator{
			Kind: armir.TermIf, Cond: armir.RefValue(0, armir.Width1),
			Target: armir.Location{PC: 4}, ElseTarget: armir.Location{PC: 8},
		},
	}
	_, err := e.Emit(blk)
	require.NoError(t, err)
	require.Contains(t, asmb.calls, "jump")      // the TESTL/JEQ branch to the else arm
	require.Contains(t, asmb.calls, "standalone") // the terminating RET
	require.Contains(t, asmb.calls, "const->reg") // writeTargetPC's MOVL imm,scratch
	require.Contains(t, asmb.calls, "reg->mem")   // writeTargetPC's MOVL scratch,CPUState
}

func TestEmitTermLinkBlockWritesTargetPCAndReturns(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	blk := &armir.Block{Term: armir.Terminator{Kind: armir.TermLinkBlock, Target: armir.Location{PC: 0x1000}}}
	_, err := e.Emit(blk)
	require.NoError(t, err)
	require.Contains(t, asmb.calls, "const->reg")
	require.Contains(t, asmb.calls, "reg->mem")
	require.Contains(t, asmb.calls, "standalone")
	require.NotContains(t, asmb.calls, "jump")
}

func TestEmitTermReturnToDispatchJustReturns(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	blk := &armir.Block{Term: armir.Terminator{Kind: armir.TermReturnToDispatch}}
	_, err := e.Emit(blk)
	require.NoError(t, err)
	require.Equal(t, []string{"standalone"}, asmb.calls)
}

func TestEmitTerminatorRejectsMissingKind(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	blk := &armir.Block{Term: armir.Terminator{Kind: armir.TermNone}}
	_, err := e.Emit(blk)
	require.Error(t, err)
}
