// Package amd64 implements internal/asm's architecture-independent surface
// on top of github.com/twitchyliquid64/golang-asm, which is the actual
// x86-64 byte encoder. Per spec.md §1, the encoder itself is an external
// collaborator: nothing in this package appends a machine code byte by hand.
package amd64

import "github.com/Annomatg/dynarmic/internal/asm"

// Mode parameterizes instructions whose behavior a trailing immediate
// modifies, e.g. ROUNDSS's rounding mode or CMPPS's predicate.
type Mode = byte

// Rounding modes for ROUNDSS/ROUNDSD/ROUNDPS/ROUNDPD, matching the x86
// encoding (bit 3 set suppresses exceptions; we always set it since ARM's
// FPSCR exception reporting beyond default-NaN is explicitly out of scope).
const (
	ModeRoundNearestEven Mode = 0b1000
	ModeRoundDown        Mode = 0b1001
	ModeRoundUp          Mode = 0b1010
	ModeRoundTowardZero  Mode = 0b1011
)

// CMPPS/CMPPD predicates used by the vector-FP emitter's NaN-mask and
// signed-zero-ambiguity synthesis (unordered compare, equal compare).
const (
	CmpPredicateEQ    Mode = 0
	CmpPredicateLT    Mode = 1
	CmpPredicateLE    Mode = 2
	CmpPredicateUNORD Mode = 3
	CmpPredicateNEQ   Mode = 4
	CmpPredicateORD   Mode = 7
)

// Assembler is the amd64-specific assembler surface consumed by
// internal/compiler. It extends asm.AssemblerBase with the addressing modes
// and vector-instruction shapes the register allocator and the vector-FP
// emitter need.
type Assembler interface {
	asm.AssemblerBase

	// CompileRegisterToRegisterWithMode emits a two-register instruction
	// whose behavior Mode parameterizes (ROUNDSS's rounding mode, CMPPS's
	// predicate).
	CompileRegisterToRegisterWithMode(instruction asm.Instruction, from, to asm.Register, mode Mode)
	// CompileRegisterToRegisterWithArg emits an instruction taking an
	// integer immediate argument that is not a Mode, e.g. PINSRQ's lane
	// index or PSHUFD's shuffle-control byte.
	CompileRegisterToRegisterWithArg(instruction asm.Instruction, from, to asm.Register, arg byte)
	// CompileThreeRegisters emits an AVX-style three-operand instruction
	// (VBLENDVPS mask, src, dst) used by the min/max signed-zero fixup when
	// the host supports AVX.
	CompileThreeRegisters(instruction asm.Instruction, src1, src2, mask, dst asm.Register)
	// CompileConstToRegister adds an instruction where the source operand is
	// the constant `value` and the destination is the register `register`.
	CompileConstToRegister(instruction asm.Instruction, value int64, register asm.Register) asm.Node
	// CompileRegisterToConst adds an instruction where source operand is the
	// register `srcRegister`, and the destination is the const `value`.
	CompileRegisterToConst(instruction asm.Instruction, srcRegister asm.Register, value int64) asm.Node
	// CompileRegisterToNone adds an instruction where source operand is the
	// register `register`, and there's no destination operand.
	CompileRegisterToNone(instruction asm.Instruction, register asm.Register)
	// CompileNoneToRegister adds an instruction where destination operand is
	// the register `register`, and there's no source operand.
	CompileNoneToRegister(instruction asm.Instruction, register asm.Register)
	// CompileLoadStaticConstToRegister loads a pooled 128-bit constant (a
	// default-NaN mask, a saturation limit, a fixed-point scale) into a
	// vector register via a RIP-relative load, registering c in the
	// assembler's constant pool.
	CompileLoadStaticConstToRegister(instruction asm.Instruction, c *asm.StaticConst, register asm.Register) asm.Node
	// CompileCallFunctionAddress emits an indirect call through a register
	// holding a host helper's address, used by the register allocator's
	// HostCall and by the vector fallback/accurate-NaN-fixup paths to reach
	// software helpers.
	CompileCallFunctionAddress(target asm.Register) asm.Node
}
