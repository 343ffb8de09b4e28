// Package armir defines the intermediate representation the translator
// lifts guest ARM instructions into: a closed opcode enumeration, a single
// Instruction struct whose operands sit in a fixed three-slot array,
// SSA-style values, and a per-block instruction list ending in exactly one
// terminator.
//
// The shape follows internal/wazeroir's closed Kind enumeration; operand
// shape is checked by the Builder's per-opcode methods, not by the Go type
// system (see Instruction).
package armir

import "fmt"

// Width is the bit width of an IR value.
type Width byte

const (
	Width1 Width = 1
	Width8 Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
	Width128 Width = 128
)

// Kind identifies an IR opcode. The enumeration is closed: the emitter's
// opcode dispatch and the optimizer's pass logic both switch exhaustively
// over Kind, so adding an opcode means updating every switch, by design.
type Kind uint16

const (
	KindInvalid Kind = iota

	// Guest register / flag access.
	KindGetRegister
	KindSetRegister
	KindGetNFlag
	KindSetNFlag
	KindGetZFlag
	KindSetZFlag
	KindGetCFlag
	KindSetCFlag
	KindGetVFlag
	KindSetVFlag

	// Immediates.
	KindImm1
	KindImm8
	KindImm16
	KindImm32
	KindImm64
	KindImmVector

	// Arithmetic.
	KindAddWithCarry
	KindSubWithCarry
	KindExtractResult
	KindExtractCarry
	KindExtractOverflow

	// Logical.
	KindAnd
	KindOr
	KindXor
	KindNot

	// Shifts, producing {result, carry}.
	KindLogicalShiftLeft
	KindLogicalShiftRight
	KindArithmeticShiftRight
	KindRotateRight

	// Bit/byte manipulation.
	KindMostSignificantBit
	KindIsZero
	KindLeastSignificantByte
	KindLeastSignificantHalf
	KindSignExtend8
	KindSignExtend16
	KindSignExtend32
	KindZeroExtend8
	KindZeroExtend16
	KindZeroExtend32
	KindByteReverse16
	KindByteReverse32

	// Memory.
	KindReadMemory8
	KindReadMemory16
	KindReadMemory32
	KindReadMemory64
	KindWriteMemory8
	KindWriteMemory16
	KindWriteMemory32
	KindWriteMemory64

	// Control.
	KindCallSupervisor
	KindALUWritePC
	KindSetTerm

	// Vector floating point, parameterized by ElementWidth and VecOp.
	KindVectorFPBinary
	KindVectorFPUnary
	KindVectorFPFMA
	KindVectorFPToFixed
	KindVectorIntToFP
	KindVectorFPMinMax
)

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", k)
}

var kindNames = map[Kind]string{
	KindInvalid: "Invalid", KindGetRegister: "GetRegister", KindSetRegister: "SetRegister",
	KindGetNFlag: "GetNFlag", KindSetNFlag: "SetNFlag", KindGetZFlag: "GetZFlag", KindSetZFlag: "SetZFlag",
	KindGetCFlag: "GetCFlag", KindSetCFlag: "SetCFlag", KindGetVFlag: "GetVFlag", KindSetVFlag: "SetVFlag",
	KindImm1: "Imm1", KindImm8: "Imm8", KindImm16: "Imm16", KindImm32: "Imm32", KindImm64: "Imm64", KindImmVector: "ImmVector",
	KindAddWithCarry: "AddWithCarry", KindSubWithCarry: "SubWithCarry",
	KindExtractResult: "ExtractResult", KindExtractCarry: "ExtractCarry", KindExtractOverflow: "ExtractOverflow",
	KindAnd: "And", KindOr: "Or", KindXor: "Xor", KindNot: "Not",
	KindLogicalShiftLeft: "LogicalShiftLeft", KindLogicalShiftRight: "LogicalShiftRight",
	KindArithmeticShiftRight: "ArithmeticShiftRight", KindRotateRight: "RotateRight",
	KindMostSignificantBit: "MostSignificantBit", KindIsZero: "IsZero",
	KindLeastSignificantByte: "LeastSignificantByte", KindLeastSignificantHalf: "LeastSignificantHalf",
	KindSignExtend8: "SignExtend8", KindSignExtend16: "SignExtend16", KindSignExtend32: "SignExtend32",
	KindZeroExtend8: "ZeroExtend8", KindZeroExtend16: "ZeroExtend16", KindZeroExtend32: "ZeroExtend32",
	KindByteReverse16: "ByteReverse16", KindByteReverse32: "ByteReverse32",
	KindReadMemory8: "ReadMemory8", KindReadMemory16: "ReadMemory16", KindReadMemory32: "ReadMemory32", KindReadMemory64: "ReadMemory64",
	KindWriteMemory8: "WriteMemory8", KindWriteMemory16: "WriteMemory16", KindWriteMemory32: "WriteMemory32", KindWriteMemory64: "WriteMemory64",
	KindCallSupervisor: "CallSupervisor", KindALUWritePC: "ALUWritePC", KindSetTerm: "SetTerm",
	KindVectorFPBinary: "VectorFPBinary", KindVectorFPUnary: "VectorFPUnary", KindVectorFPFMA: "VectorFPFMA",
	KindVectorFPToFixed: "VectorFPToFixed", KindVectorIntToFP: "VectorIntToFP", KindVectorFPMinMax: "VectorFPMinMax",
}

// Value is either an immediate literal or a reference to an earlier
// instruction's result in the same block. The zero Value is not valid; use
// ImmValue/RefValue to construct one.
type Value struct {
	isImm bool
	imm   uint64
	width Width
	ref   int // index into Block.Instructions, valid when !isImm
}

// ImmValue constructs an immediate IR value of the given width.
func ImmValue(v uint64, w Width) Value { return Value{isImm: true, imm: v, width: w} }

// RefValue constructs a reference to instruction index idx's result.
func RefValue(idx int, w Width) Value { return Value{isImm: false, ref: idx, width: w} }

func (v Value) IsImm() bool    { return v.isImm }
func (v Value) ImmValue() uint64 { return v.imm }
func (v Value) Width() Width    { return v.width }
func (v Value) RefIndex() int  { return v.ref }

// VecOp identifies which vector floating-point operation KindVectorFPBinary/
// KindVectorFPUnary/KindVectorFPMinMax/KindVectorFPFMA performs, so the
// emitter's dispatch (internal/compiler) can switch on it.
type VecOp byte

const (
	VecOpAdd VecOp = iota
	VecOpSub
	VecOpMul
	VecOpDiv
	VecOpSqrt
	VecOpMax
	VecOpMin
	VecOpFMA
	VecOpFMS
)

// Rounding identifies an ARM FPSCR rounding mode, used by KindVectorFPToFixed
// and KindVectorIntToFP to select among the 2D fixed-conversion kernel table
// (spec: fbits ∈ [0, fsize) × 5 rounding modes).
type Rounding byte

const (
	RoundNearestEven Rounding = iota
	RoundPositiveInfinity
	RoundNegativeInfinity
	RoundTowardZero
	RoundTieAwayFromZero
)

// Instruction is one IR operation: an opcode, its operands, and (for
// opcodes that produce a value) the width of that value. Operand shape is
// opcode-specific; rather than modelling every opcode as its own Go struct
// (which would force the optimizer and emitter to type-switch on 40+ types),
// operands live in a small fixed-size array indexed by opcode-specific
// meaning, matching wazeroir's UnionOperation rather than its legacy
// one-struct-per-op Operation — chosen here because nearly every opcode in
// this IR takes at most three value operands plus small scalar metadata.
type Instruction struct {
	Kind  Kind
	Args  [3]Value
	// NumArgs is the number of Args actually populated; the rest are zero Value.
	NumArgs int

	// ResultWidth is the width of the value this instruction defines, if any.
	ResultWidth Width
	// HasResult is false for side-effect-only opcodes (SetRegister, WriteMemoryN, SetTerm).
	HasResult bool

	// Uses is the number of IR values in this block that reference this
	// instruction's result. Incremented by Builder.use and decremented by
	// optimizer passes that remove a use; zero means dead.
	Uses int

	// Opcode-specific scalar metadata.
	Register   int      // GetRegister/SetRegister: 0..15.
	Imm        uint64   // ImmN: the literal value (low 64 bits for ImmVector).
	ImmHi      uint64   // ImmVector: high 64 bits.
	ElemWidth  Width    // vector family: per-lane element width (16/32/64).
	VecOp      VecOp    // vector family: which operation.
	Signed     bool     // conversions / shifts: signedness.
	FBits      byte     // KindVectorFPToFixed: fractional bits.
	Round      Rounding // KindVectorFPToFixed/KindVectorIntToFP: rounding mode.
	Invalidated bool    // set by an optimizer pass; the emitter skips these.
}

// TermKind is the tag of a block terminator.
type TermKind byte

const (
	TermNone TermKind = iota
	TermLinkBlock
	TermLinkBlockFast
	TermIf
	TermInterpret
	TermReturnToDispatch
)

// Location is a guest location descriptor: {guest PC, ISA, FP codegen bits}.
// Two Locations differing in any field identify distinct compiled blocks.
type Location struct {
	PC        uint32
	Thumb     bool
	Rounding  Rounding
	DefaultNaN bool
	AccurateNaN bool
}

// Terminator describes how a block exits. Exactly one is attached to every
// completed Block.
type Terminator struct {
	Kind TermKind

	// TermLinkBlock / TermLinkBlockFast / TermIf(then branch) / TermInterpret.
	Target Location
	// TermIf only.
	Cond    Value
	ElseTarget Location
}

// Block is one IR basic block: a straight-line instruction list starting at
// a guest Location and ending in exactly one Terminator.
type Block struct {
	Start        Location
	Instructions []Instruction
	CycleCount   uint32
	Term         Terminator
}

// assert panics on a programmer error: an IR invariant the translator is
// expected to uphold by construction (spec §7's fourth error class).
func assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("armir: assertion failed: "+format, args...))
	}
}
