package compiler

import (
	"math"

	"github.com/Annomatg/dynarmic/internal/armir"
)

// kernelID indexes into the conversion-kernel tables below. The emitter
// treats it as an opaque value to load into a register ahead of HostCall;
// resolving a kernelID to an actual callable host address is the embedder's
// concern (out of scope per spec.md §1's external-collaborator boundary),
// so this package only guarantees that equal (elemWidth, fbits, rounding,
// signed) parameters always produce the same kernelID.
type kernelID int64

// fixedConversionKernel is the software reference implementation a kernelID
// identifies: spec §4.6's "software per-lane conversion", operating on one
// lane's raw bits at a time and writing IEEE exception state to *fpsr.
type fixedConversionKernel func(bits uint64, fpsr *uint32) uint64

// conversionKernelKey identifies one entry of the lookup table spec §4.6
// describes as "a compile-time lookup table keyed by (fbits, rounding)".
// elemWidth and signed extend the key because the fixed-point interpretation
// (how many fractional bits fit in 32 vs 64 bits, two's-complement vs
// unsigned saturation limits) differs across both axes independently of
// fbits and rounding.
type conversionKernelKey struct {
	elemWidth armir.Width
	fbits     byte
	rounding  armir.Rounding
	signed    bool
}

var fpToFixedKernels = buildFPToFixedKernels()
var intToFPKernels = buildIntToFPKernels()

// buildFPToFixedKernels generates one kernel per (elemWidth, fbits,
// rounding, signed) combination programmatically rather than as 960 written-
// out literals: fbits ranges over [0, fsize) for each of the two element
// widths, crossed with the five ARM rounding modes and both signedness.
func buildFPToFixedKernels() map[conversionKernelKey]fixedConversionKernel {
	m := map[conversionKernelKey]fixedConversionKernel{}
	for _, ew := range []armir.Width{armir.Width32, armir.Width64} {
		fsize := 32
		if ew == armir.Width64 {
			fsize = 64
		}
		for fbits := 0; fbits < fsize; fbits++ {
			for _, r := range allRoundings {
				for _, signed := range []bool{true, false} {
					key := conversionKernelKey{ew, byte(fbits), r, signed}
					m[key] = makeFPToFixedKernel(ew, byte(fbits), r, signed)
				}
			}
		}
	}
	return m
}

func buildIntToFPKernels() map[conversionKernelKey]fixedConversionKernel {
	m := map[conversionKernelKey]fixedConversionKernel{}
	for _, ew := range []armir.Width{armir.Width32, armir.Width64} {
		for _, r := range allRoundings {
			for _, signed := range []bool{true, false} {
				key := conversionKernelKey{ew, 0, r, signed}
				m[key] = makeIntToFPKernel(ew, r, signed)
			}
		}
	}
	return m
}

var allRoundings = []armir.Rounding{
	armir.RoundNearestEven, armir.RoundPositiveInfinity, armir.RoundNegativeInfinity,
	armir.RoundTowardZero, armir.RoundTieAwayFromZero,
}

// kernelIndex is a total order over conversionKernelKey so two lookups for
// the same parameters are guaranteed to produce the same kernelID even
// though Go map iteration order is randomized.
func kernelIndex(k conversionKernelKey) kernelID {
	signedBit := int64(0)
	if k.signed {
		signedBit = 1
	}
	widthBit := int64(0)
	if k.elemWidth == armir.Width64 {
		widthBit = 1
	}
	return kernelID(int64(k.fbits)*5*2*2 + int64(k.rounding)*2*2 + signedBit*2 + widthBit)
}

func fpToFixedKernel(elemWidth armir.Width, fbits byte, rounding armir.Rounding, signed bool) kernelID {
	return kernelIndex(conversionKernelKey{elemWidth, fbits, rounding, signed})
}

func intToFPKernel(elemWidth armir.Width, rounding armir.Rounding) kernelID {
	return kernelIndex(conversionKernelKey{elemWidth, 0, rounding, false})
}

// ResolveFPToFixedKernel returns the software reference implementation for
// the given parameters, for callers (tests, or an interpreter fallback
// outside this package's scope) that need to execute a kernel directly
// rather than generate a call to it.
func ResolveFPToFixedKernel(elemWidth armir.Width, fbits byte, rounding armir.Rounding, signed bool) fixedConversionKernel {
	return fpToFixedKernels[conversionKernelKey{elemWidth, fbits, rounding, signed}]
}

// ResolveIntToFPKernel is ResolveFPToFixedKernel's int-to-FP counterpart.
func ResolveIntToFPKernel(elemWidth armir.Width, rounding armir.Rounding, signed bool) fixedConversionKernel {
	return intToFPKernels[conversionKernelKey{elemWidth, 0, rounding, signed}]
}

// makeFPToFixedKernel returns the software fallback for FP-to-fixed
// conversion: scale by 2^fbits, round per mode, saturate to the
// representable range, matching spec §4.6's fast-path arithmetic exactly so
// the slow path (tie-away-from-zero, or any host lacking the fast path's
// required ISA features) produces bit-identical results.
func makeFPToFixedKernel(elemWidth armir.Width, fbits byte, rounding armir.Rounding, signed bool) fixedConversionKernel {
	scale := math.Ldexp(1, int(fbits))
	return func(bits uint64, fpsr *uint32) uint64 {
		var f float64
		if elemWidth == armir.Width64 {
			f = math.Float64frombits(bits)
		} else {
			f = float64(math.Float32frombits(uint32(bits)))
		}
		if math.IsNaN(f) {
			const fpsrIOC = 1 << 0 // invalid-operation exception bit.
			*fpsr |= fpsrIOC
			return 0
		}
		scaled := f * scale
		rounded := applyRounding(scaled, rounding)
		return saturate(rounded, elemWidth, signed, fpsr)
	}
}

func makeIntToFPKernel(elemWidth armir.Width, rounding armir.Rounding, signed bool) fixedConversionKernel {
	return func(bits uint64, _ *uint32) uint64 {
		var f float64
		if signed {
			f = float64(int64(bits))
		} else {
			f = float64(bits)
		}
		if elemWidth == armir.Width64 {
			return math.Float64bits(f)
		}
		f32 := float32(f)
		if !signed && rounding == armir.RoundNegativeInfinity && math.Signbit(float64(f32)) {
			// Per spec §4.6: "when FPSCR rounding mode is round-toward-minus-
			// infinity, mask the sign bit of the result" for the unsigned
			// conversion's residual negative-zero case.
			return uint64(math.Float32bits(f32)) &^ 0x80000000
		}
		return uint64(math.Float32bits(f32))
	}
}

func applyRounding(f float64, r armir.Rounding) float64 {
	switch r {
	case armir.RoundPositiveInfinity:
		return math.Ceil(f)
	case armir.RoundNegativeInfinity:
		return math.Floor(f)
	case armir.RoundTowardZero:
		return math.Trunc(f)
	case armir.RoundTieAwayFromZero:
		if f >= 0 {
			return math.Floor(f + 0.5)
		}
		return math.Ceil(f - 0.5)
	default: // RoundNearestEven
		return math.RoundToEven(f)
	}
}

func saturate(f float64, elemWidth armir.Width, signed bool, fpsr *uint32) uint64 {
	const fpsrIOC = 1 << 0
	bits := 32
	if elemWidth == armir.Width64 {
		bits = 64
	}
	var lo, hi float64
	switch {
	case signed && bits == 32:
		lo, hi = math.MinInt32, math.MaxInt32
	case signed && bits == 64:
		lo, hi = math.MinInt64, math.MaxInt64
	case !signed && bits == 32:
		lo, hi = 0, math.MaxUint32
	default:
		lo, hi = 0, math.MaxUint64
	}
	if f < lo {
		*fpsr |= fpsrIOC
		f = lo
	}
	if f > hi {
		*fpsr |= fpsrIOC
		f = hi
	}
	if signed {
		return uint64(int64(f))
	}
	return uint64(f)
}
