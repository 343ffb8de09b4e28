package optimize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Annomatg/dynarmic/internal/armir"
)

// fakeCallbacks is a minimal hostabi.Callbacks double: memory is a flat
// byte slice, and IsReadOnlyMemory reports whatever the test configures.
type fakeCallbacks struct {
	mem      [16]byte
	readOnly bool
}

func (f *fakeCallbacks) MemoryRead8(a uint32) uint8   { return f.mem[a] }
func (f *fakeCallbacks) MemoryRead16(a uint32) uint16 { return uint16(f.mem[a]) | uint16(f.mem[a+1])<<8 }
func (f *fakeCallbacks) MemoryRead32(a uint32) uint32 {
	return uint32(f.MemoryRead16(a)) | uint32(f.MemoryRead16(a+2))<<16
}
func (f *fakeCallbacks) MemoryRead64(a uint32) uint64 {
	return uint64(f.MemoryRead32(a)) | uint64(f.MemoryRead32(a+4))<<32
}
func (f *fakeCallbacks) MemoryWrite8(a uint32, v uint8)   { f.mem[a] = v }
func (f *fakeCallbacks) MemoryWrite16(a uint32, v uint16) {}
func (f *fakeCallbacks) MemoryWrite32(a uint32, v uint32) {
	f.mem[a], f.mem[a+1], f.mem[a+2], f.mem[a+3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}
func (f *fakeCallbacks) MemoryWrite64(a uint32, v uint64) {}
func (f *fakeCallbacks) IsReadOnlyMemory(a uint32, size uint8) bool { return f.readOnly }
func (f *fakeCallbacks) CallSVC(imm uint32)                         {}
func (f *fakeCallbacks) AddTicks(count uint64)                      {}
func (f *fakeCallbacks) GetTicksRemaining() uint64                  { return 0 }

func TestDeadFlagEliminationInvalidatesRoundTrippedFlag(t *testing.T) {
	b := armir.NewBuilder(armir.Location{PC: 0})
	n := b.GetNFlag()
	b.SetNFlag(n)
	b.SetTerm(armir.Terminator{Kind: armir.TermReturnToDispatch})
	blk := b.Block()

	cb := &fakeCallbacks{}
	DeadFlagElimination(blk, cb)

	found := false
	for _, inst := range blk.Instructions {
		if inst.Kind == armir.KindSetNFlag {
			require.True(t, inst.Invalidated)
			found = true
		}
	}
	require.True(t, found)
}

func TestDeadFlagEliminationLeavesComputedFlagAlone(t *testing.T) {
	b := armir.NewBuilder(armir.Location{PC: 0})
	x := b.Imm1(true)
	y := b.Imm1(false)
	computed := b.And(x, y)
	b.SetNFlag(computed)
	b.SetTerm(armir.Terminator{Kind: armir.TermReturnToDispatch})
	blk := b.Block()

	cb := &fakeCallbacks{}
	DeadFlagElimination(blk, cb)

	for _, inst := range blk.Instructions {
		if inst.Kind == armir.KindSetNFlag {
			require.False(t, inst.Invalidated)
		}
	}
}

func TestConstantMemoryReadsFoldsReadOnlyImmediateAddress(t *testing.T) {
	b := armir.NewBuilder(armir.Location{PC: 0})
	addr := b.Imm32(4)
	read := b.ReadMemory32(addr)
	b.SetRegister(0, read)
	b.SetTerm(armir.Terminator{Kind: armir.TermReturnToDispatch})
	blk := b.Block()

	cb := &fakeCallbacks{readOnly: true}
	cb.MemoryWrite32(4, 0xCAFEBABE)

	ConstantMemoryReads(blk, cb)

	readInst := blk.Instructions[read.RefIndex()]
	require.Equal(t, armir.KindImm32, readInst.Kind)
	require.Equal(t, uint64(0xCAFEBABE), readInst.Imm)
	require.Equal(t, 0, readInst.NumArgs)
}

func TestConstantMemoryReadsLeavesNonReadOnlyAlone(t *testing.T) {
	b := armir.NewBuilder(armir.Location{PC: 0})
	addr := b.Imm32(4)
	read := b.ReadMemory32(addr)
	b.SetRegister(0, read)
	b.SetTerm(armir.Terminator{Kind: armir.TermReturnToDispatch})
	blk := b.Block()

	cb := &fakeCallbacks{readOnly: false}
	ConstantMemoryReads(blk, cb)

	require.Equal(t, armir.KindReadMemory32, blk.Instructions[read.RefIndex()].Kind)
}

func TestRunAppliesBothPasses(t *testing.T) {
	b := armir.NewBuilder(armir.Location{PC: 0})
	n := b.GetNFlag()
	b.SetNFlag(n)
	b.SetTerm(armir.Terminator{Kind: armir.TermReturnToDispatch})
	blk := b.Block()

	cb := &fakeCallbacks{}
	Run(blk, cb)

	for _, inst := range blk.Instructions {
		if inst.Kind == armir.KindSetNFlag {
			require.True(t, inst.Invalidated)
		}
	}
}
