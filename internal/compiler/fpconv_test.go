package compiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Annomatg/dynarmic/internal/armir"
)

func TestResolveFPToFixedKernelScalesAndRounds(t *testing.T) {
	k := ResolveFPToFixedKernel(armir.Width32, 1, armir.RoundNearestEven, true)
	require.NotNil(t, k)

	var fpsr uint32
	bits := uint64(math.Float32bits(2.5))
	got := k(bits, &fpsr)
	require.Equal(t, uint64(5), got) // 2.5 * 2^1 = 5
	require.Zero(t, fpsr)
}

func TestResolveFPToFixedKernelSetsInvalidOnNaN(t *testing.T) {
	k := ResolveFPToFixedKernel(armir.Width32, 0, armir.RoundNearestEven, true)
	var fpsr uint32
	got := k(uint64(math.Float32bits(float32(math.NaN()))), &fpsr)
	require.Equal(t, uint64(0), got)
	require.Equal(t, uint32(1), fpsr&1)
}

func TestResolveFPToFixedKernelSaturatesSignedRange(t *testing.T) {
	k := ResolveFPToFixedKernel(armir.Width32, 0, armir.RoundNearestEven, true)
	var fpsr uint32
	got := k(uint64(math.Float32bits(1e20)), &fpsr)
	require.Equal(t, uint64(math.MaxInt32), got&0xFFFFFFFF)
	require.Equal(t, uint32(1), fpsr&1)
}

func TestResolveIntToFPKernelConvertsSignedInt(t *testing.T) {
	k := ResolveIntToFPKernel(armir.Width64, armir.RoundNearestEven, true)
	var fpsr uint32
	var v int64 = -5
	got := k(uint64(v), &fpsr)
	require.Equal(t, -5.0, math.Float64frombits(got))
}

func TestResolveIntToFPKernelMasksSignBitTowardNegativeInfinityUnsigned(t *testing.T) {
	k := ResolveIntToFPKernel(armir.Width32, armir.RoundNegativeInfinity, false)
	var fpsr uint32
	got := k(0, &fpsr)
	require.Equal(t, float32(0), math.Float32frombits(uint32(got)))
	require.Zero(t, got&0x80000000)
}

func TestKernelIndexIsStableAcrossRepeatedLookups(t *testing.T) {
	a := fpToFixedKernel(armir.Width32, 10, armir.RoundTowardZero, false)
	b := fpToFixedKernel(armir.Width32, 10, armir.RoundTowardZero, false)
	require.Equal(t, a, b)

	c := fpToFixedKernel(armir.Width32, 11, armir.RoundTowardZero, false)
	require.NotEqual(t, a, c)
}
