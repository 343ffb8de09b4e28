package armir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderTracksUseCounts(t *testing.T) {
	b := NewBuilder(Location{PC: 0x1000})
	x := b.GetRegister(0)
	y := b.GetRegister(1)
	sum := b.And(x, y)
	b.SetRegister(2, sum)
	b.SetTerm(Terminator{Kind: TermReturnToDispatch})

	blk := b.Block()
	require.Equal(t, 1, blk.Instructions[x.RefIndex()].Uses)
	require.Equal(t, 1, blk.Instructions[y.RefIndex()].Uses)
	require.Equal(t, 1, blk.Instructions[sum.RefIndex()].Uses)
}

func TestAddWithCarryExtractsIndependently(t *testing.T) {
	b := NewBuilder(Location{PC: 0})
	a := b.Imm32(1)
	bb := b.Imm32(2)
	cin := b.Imm1(false)
	add := b.AddWithCarry(a, bb, cin)

	result := add.Result()
	carry := add.Carry()
	overflow := add.Overflow()
	b.SetTerm(Terminator{Kind: TermReturnToDispatch})

	blk := b.Block()
	require.Equal(t, KindExtractResult, blk.Instructions[result.RefIndex()].Kind)
	require.Equal(t, KindExtractCarry, blk.Instructions[carry.RefIndex()].Kind)
	require.Equal(t, KindExtractOverflow, blk.Instructions[overflow.RefIndex()].Kind)

	def := blk.Instructions[result.RefIndex()].Args[0].RefIndex()
	require.Equal(t, KindAddWithCarry, blk.Instructions[def].Kind)
	require.Equal(t, def, blk.Instructions[carry.RefIndex()].Args[0].RefIndex())
	require.Equal(t, def, blk.Instructions[overflow.RefIndex()].Args[0].RefIndex())
}

func TestSetTermPanicsOnDoubleTerminator(t *testing.T) {
	b := NewBuilder(Location{PC: 0})
	b.SetTerm(Terminator{Kind: TermReturnToDispatch})
	require.Panics(t, func() {
		b.SetTerm(Terminator{Kind: TermReturnToDispatch})
	})
}

func TestGetRegisterRejectsOutOfRange(t *testing.T) {
	b := NewBuilder(Location{PC: 0})
	require.Panics(t, func() { b.GetRegister(16) })
}

func TestVectorFPBinaryRejectsBadElementWidth(t *testing.T) {
	b := NewBuilder(Location{PC: 0})
	a := b.Imm64(0)
	bb := b.Imm64(0)
	require.Panics(t, func() { b.VectorFPBinary(VecOpAdd, Width8, a, bb) })
}
