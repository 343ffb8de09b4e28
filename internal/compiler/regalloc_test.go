package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Annomatg/dynarmic/internal/armir"
	"github.com/Annomatg/dynarmic/internal/asm/amd64"
)

func oneInstBlock(uses int) *armir.Block {
	return &armir.Block{
		Instructions: []armir.Instruction{
			{Kind: armir.KindGetRegister, HasResult: true, ResultWidth: armir.Width32, Uses: uses},
		},
	}
}

func TestDefineValueThenUseGprFindsHomeWithoutReload(t *testing.T) {
	asmb := &fakeAssembler{}
	a := NewAllocator(asmb)
	blk := oneInstBlock(1)

	reg := amd64.RegAX
	a.DefineValue(blk, 0, reg)
	a.EndOfAllocScope()

	got := a.UseGpr(armir.RefValue(0, armir.Width32))
	require.Equal(t, reg, got)
	require.Empty(t, asmb.calls, "value still resident in its home register should not reload")
}

func TestUseGprAfterSpillReloadsFromMemory(t *testing.T) {
	asmb := &fakeAssembler{}
	a := NewAllocator(asmb)
	blk := oneInstBlock(1)

	a.DefineValue(blk, 0, amd64.RegAX)
	a.EndOfAllocScope()
	a.spill(false, 0)
	require.Contains(t, asmb.calls, "reg->mem")

	got := a.UseGpr(armir.RefValue(0, armir.Width32))
	require.Equal(t, amd64.RegAX, got)
	require.Contains(t, asmb.calls, "mem->reg")
}

func TestMaterializeImmLoadsConstIntoFreshRegister(t *testing.T) {
	asmb := &fakeAssembler{}
	a := NewAllocator(asmb)

	reg := a.UseGpr(armir.ImmValue(42, armir.Width32))
	require.Contains(t, asmb.calls, "const->reg")
	found := false
	for _, s := range a.gpr {
		if s.reg == reg {
			found = true
		}
	}
	require.True(t, found)
}

func TestScratchGprIsReleasedAtEndOfAllocScope(t *testing.T) {
	a := NewAllocator(&fakeAssembler{})
	reg := a.ScratchGpr()

	held := false
	for _, s := range a.gpr {
		if s.reg == reg && s.scratch {
			held = true
		}
	}
	require.True(t, held)

	a.EndOfAllocScope()
	for _, s := range a.gpr {
		if s.reg == reg {
			require.False(t, s.scratch)
			require.Equal(t, -1, s.owner)
		}
	}
}

func TestUseScratchGprCopiesWhenUsesRemain(t *testing.T) {
	asmb := &fakeAssembler{}
	a := NewAllocator(asmb)
	blk := oneInstBlock(2)

	a.DefineValue(blk, 0, amd64.RegAX)
	a.EndOfAllocScope()

	scratch := a.UseScratchGpr(armir.RefValue(0, armir.Width32))
	require.NotEqual(t, amd64.RegAX, scratch)
	require.Contains(t, asmb.calls, "reg->reg")

	// The original home is still bound since one use remains.
	require.Equal(t, amd64.RegAX, a.home[0])
}

func TestUseScratchGprReturnsHomeOnLastUse(t *testing.T) {
	a := NewAllocator(&fakeAssembler{})
	blk := oneInstBlock(1)

	a.DefineValue(blk, 0, amd64.RegAX)
	a.EndOfAllocScope()

	scratch := a.UseScratchGpr(armir.RefValue(0, armir.Width32))
	require.Equal(t, amd64.RegAX, scratch)
	_, stillHome := a.home[0]
	require.False(t, stillHome)
}

func TestHostCallSpillsEveryLiveRegisterAndAligns(t *testing.T) {
	asmb := &fakeAssembler{}
	a := NewAllocator(asmb)
	blk := &armir.Block{Instructions: []armir.Instruction{
		{Kind: armir.KindGetRegister, HasResult: true, Uses: 1},
		{Kind: armir.KindGetRegister, HasResult: true, Uses: 1},
	}}

	a.DefineValue(blk, 0, amd64.RegAX)
	a.DefineValue(blk, 1, amd64.RegCX)
	a.EndOfAllocScope()

	ret := a.HostCall()
	require.Equal(t, amd64.RegAX, ret)
	require.Equal(t, 2, countOccurrences(asmb.calls, "reg->mem"))
	require.Equal(t, int32(0), a.FrameSize()%16)

	_, ok0 := a.home[0]
	_, ok1 := a.home[1]
	require.False(t, ok0)
	require.False(t, ok1)
}

func TestReserveFixedGprEvictsCurrentOwner(t *testing.T) {
	asmb := &fakeAssembler{}
	a := NewAllocator(asmb)
	blk := oneInstBlock(1)

	a.DefineValue(blk, 0, amd64.RegCX)
	a.EndOfAllocScope()

	got := a.ReserveFixedGpr(amd64.RegCX)
	require.Equal(t, amd64.RegCX, got)
	require.Contains(t, asmb.calls, "reg->mem")

	for _, s := range a.gpr {
		if s.reg == amd64.RegCX {
			require.True(t, s.scratch)
			require.Equal(t, -1, s.owner)
		}
	}
}

func countOccurrences(haystack []string, needle string) int {
	n := 0
	for _, s := range haystack {
		if s == needle {
			n++
		}
	}
	return n
}
