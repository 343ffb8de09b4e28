package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Annomatg/dynarmic/internal/armir"
)

func twoXmmGetsBlock(elemWidth armir.Width) []armir.Instruction {
	return []armir.Instruction{
		{Kind: armir.KindGetRegister, Register: 0, HasResult: true, ResultWidth: elemWidth, Uses: 1},
		{Kind: armir.KindGetRegister, Register: 1, HasResult: true, ResultWidth: elemWidth, Uses: 1},
	}
}

func TestVectorFPBinaryAddFastPath(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	instrs := twoXmmGetsBlock(armir.Width32)
	instrs = append(instrs, armir.Instruction{
		Kind: armir.KindVectorFPBinary, VecOp: armir.VecOpAdd, ElemWidth: armir.Width32, Signed: false,
		Args: [3]armir.Value{armir.RefValue(0, armir.Width32), armir.RefValue(1, armir.Width32)}, NumArgs: 2,
		HasResult: true, Uses: 0,
	})
	blk := &armir.Block{Instructions: instrs, Term: armir.Terminator{Kind: armir.TermReturnToDispatch}}

	_, err := e.Emit(blk)
	require.NoError(t, err)
	require.Contains(t, asmb.calls, "reg->reg")
}

func TestVectorFPBinaryUnsupportedOpReturnsError(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	instrs := twoXmmGetsBlock(armir.Width32)
	instrs = append(instrs, armir.Instruction{
		Kind: armir.KindVectorFPBinary, VecOp: armir.VecOpSqrt, ElemWidth: armir.Width32,
		Args: [3]armir.Value{armir.RefValue(0, armir.Width32), armir.RefValue(1, armir.Width32)}, NumArgs: 2,
		HasResult: true,
	})
	blk := &armir.Block{Instructions: instrs, Term: armir.Terminator{Kind: armir.TermReturnToDispatch}}

	_, err := e.Emit(blk)
	require.Error(t, err)
}

func TestVectorFPMinMaxEmitsBlendFixup(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	instrs := twoXmmGetsBlock(armir.Width64)
	instrs = append(instrs, armir.Instruction{
		Kind: armir.KindVectorFPMinMax, VecOp: armir.VecOpMax, ElemWidth: armir.Width64,
		Args: [3]armir.Value{armir.RefValue(0, armir.Width64), armir.RefValue(1, armir.Width64)}, NumArgs: 2,
		HasResult: true,
	})
	blk := &armir.Block{Instructions: instrs, Term: armir.Terminator{Kind: armir.TermReturnToDispatch}}

	_, err := e.Emit(blk)
	require.NoError(t, err)
	require.Contains(t, asmb.calls, "reg3")
}

func TestVectorFPFMAUsesThreeRegisterForm(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	instrs := []armir.Instruction{
		{Kind: armir.KindGetRegister, Register: 0, HasResult: true, ResultWidth: armir.Width32, Uses: 1},
		{Kind: armir.KindGetRegister, Register: 1, HasResult: true, ResultWidth: armir.Width32, Uses: 1},
		{Kind: armir.KindGetRegister, Register: 2, HasResult: true, ResultWidth: armir.Width32, Uses: 1},
	}
	instrs = append(instrs, armir.Instruction{
		Kind: armir.KindVectorFPFMA, VecOp: armir.VecOpFMA, ElemWidth: armir.Width32,
		Args: [3]armir.Value{armir.RefValue(0, armir.Width32), armir.RefValue(1, armir.Width32), armir.RefValue(2, armir.Width32)},
		NumArgs: 3, HasResult: true,
	})
	blk := &armir.Block{Instructions: instrs, Term: armir.Terminator{Kind: armir.TermReturnToDispatch}}

	_, err := e.Emit(blk)
	require.NoError(t, err)
	require.Contains(t, asmb.calls, "reg3")
}

func TestVectorFPToFixedFastPath(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	instrs := []armir.Instruction{
		{Kind: armir.KindGetRegister, Register: 0, HasResult: true, ResultWidth: armir.Width32, Uses: 1},
	}
	instrs = append(instrs, armir.Instruction{
		Kind: armir.KindVectorFPToFixed, ElemWidth: armir.Width32, FBits: 8, Round: armir.RoundNearestEven, Signed: true,
		Args: [3]armir.Value{armir.RefValue(0, armir.Width32)}, NumArgs: 1, HasResult: true,
	})
	blk := &armir.Block{Instructions: instrs, Term: armir.Terminator{Kind: armir.TermReturnToDispatch}}

	_, err := e.Emit(blk)
	require.NoError(t, err)
	require.Contains(t, asmb.calls, "loadstaticconst->reg")
}

func TestVectorFPToFixedTieAwayFromZeroUsesSoftwareKernel(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	instrs := []armir.Instruction{
		{Kind: armir.KindGetRegister, Register: 0, HasResult: true, ResultWidth: armir.Width32, Uses: 1},
	}
	instrs = append(instrs, armir.Instruction{
		Kind: armir.KindVectorFPToFixed, ElemWidth: armir.Width32, FBits: 0, Round: armir.RoundTieAwayFromZero, Signed: true,
		Args: [3]armir.Value{armir.RefValue(0, armir.Width32)}, NumArgs: 1, HasResult: true,
	})
	blk := &armir.Block{Instructions: instrs, Term: armir.Terminator{Kind: armir.TermReturnToDispatch}}

	_, err := e.Emit(blk)
	require.NoError(t, err)
	require.Contains(t, asmb.calls, "call")
}

func TestVectorFPToFixedUnsignedFallsBackToSoftwareKernel(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	instrs := []armir.Instruction{
		{Kind: armir.KindGetRegister, Register: 0, HasResult: true, ResultWidth: armir.Width32, Uses: 1},
	}
	instrs = append(instrs, armir.Instruction{
		Kind: armir.KindVectorFPToFixed, ElemWidth: armir.Width32, FBits: 0, Round: armir.RoundNearestEven, Signed: false,
		Args: [3]armir.Value{armir.RefValue(0, armir.Width32)}, NumArgs: 1, HasResult: true,
	})
	blk := &armir.Block{Instructions: instrs, Term: armir.Terminator{Kind: armir.TermReturnToDispatch}}

	_, err := e.Emit(blk)
	require.NoError(t, err)
	require.Contains(t, asmb.calls, "call")
}

func TestVectorFPToFixedSignedFastPathClampsAndBlends(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	instrs := []armir.Instruction{
		{Kind: armir.KindGetRegister, Register: 0, HasResult: true, ResultWidth: armir.Width32, Uses: 1},
	}
	instrs = append(instrs, armir.Instruction{
		Kind: armir.KindVectorFPToFixed, ElemWidth: armir.Width32, FBits: 8, Round: armir.RoundNearestEven, Signed: true,
		Args: [3]armir.Value{armir.RefValue(0, armir.Width32)}, NumArgs: 1, HasResult: true,
	})
	blk := &armir.Block{Instructions: instrs, Term: armir.Terminator{Kind: armir.TermReturnToDispatch}}

	_, err := e.Emit(blk)
	require.NoError(t, err)
	require.Contains(t, asmb.calls, "reg3") // VBLENDVPS clamp blends
	require.Contains(t, asmb.calls, "reg->reg/mode") // CMPPS lo/hi compares
}

func TestVectorIntToFPUnsignedFallsBackToSoftwareKernel(t *testing.T) {
	asmb := &fakeAssembler{}
	e := NewEmitter(asmb)
	instrs := []armir.Instruction{
		{Kind: armir.KindGetRegister, Register: 0, HasResult: true, ResultWidth: armir.Width32, Uses: 1},
	}
	instrs = append(instrs, armir.Instruction{
		Kind: armir.KindVectorIntToFP, ElemWidth: armir.Width32, Round: armir.RoundNearestEven, Signed: false,
		Args: [3]armir.Value{armir.RefValue(0, armir.Width32)}, NumArgs: 1, HasResult: true,
	})
	blk := &armir.Block{Instructions: instrs, Term: armir.Terminator{Kind: armir.TermReturnToDispatch}}

	_, err := e.Emit(blk)
	require.NoError(t, err)
	require.Contains(t, asmb.calls, "call")
}
