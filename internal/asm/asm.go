// Package asm defines the architecture-independent surface the backend
// emitter (internal/compiler) programs against. It never appends a machine
// code byte itself: per the system's scope boundary, "the x86 instruction
// encoder (treated as a black box that takes opcode + operands and appends
// bytes)" is an external collaborator. internal/asm/amd64 implements this
// surface on top of github.com/twitchyliquid64/golang-asm.
package asm

import "fmt"

// Register is an abstract host register number. Its concrete meaning
// (general-purpose vs XMM) is owned by the architecture package.
type Register int16

// NilRegister is returned where no register is assigned, e.g. to request a
// temporary register be allocated by the callee.
const NilRegister Register = -1

// Instruction identifies a host machine instruction mnemonic. Each
// architecture package defines its own closed enumeration, following Go
// assembler naming (see https://go.dev/doc/asm), so instruction sequences
// read the same way they would in a .s file.
type Instruction uint16

// ConditionalRegisterState abstracts a host condition-code state (e.g. x86
// ZF/SF/CF/OF combinations) produced by a compare or arithmetic instruction
// and consumed by a conditional branch or conditional move.
type ConditionalRegisterState byte

// ConditionalRegisterStateUnset means the node does not depend on or is not
// preceded by any condition-setting instruction.
const ConditionalRegisterStateUnset ConditionalRegisterState = 0

// ConstantValue is an immediate operand.
type ConstantValue = int64

// NodeOffsetInBinary is the byte offset of a Node once the assembler has
// finished laying out the code buffer.
type NodeOffsetInBinary uint64

// Node is a single emitted instruction, returned by every Compile* method so
// that callers can retroactively patch branch targets and constant operands
// once the values they depend on (block/NaN-fixup labels, literal-pool
// offsets) are known.
type Node interface {
	fmt.Stringer

	// OffsetInBinary returns this node's offset once assembled.
	OffsetInBinary() NodeOffsetInBinary
	// AssignJumpTarget back-patches a branch node's destination.
	AssignJumpTarget(target Node)
	// AssignDestinationConstant back-patches a node's destination immediate.
	AssignDestinationConstant(value ConstantValue)
	// AssignSourceConstant back-patches a node's source immediate.
	AssignSourceConstant(value ConstantValue)
}

// StaticConst is a blob of bytes (an ARM literal pool entry, a default-NaN
// mask, a saturation limit) that must be materialized somewhere in the code
// buffer's far region and referenced via a RIP-relative load.
type StaticConst struct {
	Raw []byte

	// offsetFinalizedCallbacks fire once the const's final offset in the
	// code buffer is known, patching every load that referenced it.
	offsetFinalizedCallbacks []func(offsetOfConstInBinary uint64)
}

// NewStaticConst allocates a StaticConst wrapping raw.
func NewStaticConst(raw []byte) *StaticConst {
	return &StaticConst{Raw: raw}
}

// AddOffsetFinalizedCallback registers cb to run once SetOffsetInBinary is called.
func (s *StaticConst) AddOffsetFinalizedCallback(cb func(offsetOfConstInBinary uint64)) {
	s.offsetFinalizedCallbacks = append(s.offsetFinalizedCallbacks, cb)
}

// SetOffsetInBinary finalizes the const's position and fires its callbacks.
func (s *StaticConst) SetOffsetInBinary(offset uint64) {
	for _, cb := range s.offsetFinalizedCallbacks {
		cb(offset)
	}
}

// StaticConstPool deduplicates StaticConst values by identity so the same
// default-NaN mask or saturation-limit table is only emitted once per
// compilation even though many opcodes reference it.
type StaticConstPool struct {
	Consts []*StaticConst
	// FirstUseOffsetInBinary records the offset of whichever instruction
	// first referenced any pooled constant, used by the assembler to decide
	// where the far-code constant pool must begin.
	FirstUseOffsetInBinary *uint64

	addedConsts map[*StaticConst]struct{}
}

// NewStaticConstPool constructs an empty pool.
func NewStaticConstPool() *StaticConstPool {
	return &StaticConstPool{addedConsts: map[*StaticConst]struct{}{}}
}

// AddConst registers c as used at useOffset, ignoring duplicate registrations
// of the same *StaticConst.
func (p *StaticConstPool) AddConst(c *StaticConst, useOffset uint64) {
	if _, ok := p.addedConsts[c]; ok {
		return
	}
	if p.FirstUseOffsetInBinary == nil {
		o := useOffset
		p.FirstUseOffsetInBinary = &o
	}
	p.Consts = append(p.Consts, c)
	p.addedConsts[c] = struct{}{}
}

// JumpTableEntry is a branch-table constant (used by BrTable-shaped guest
// dispatch, not otherwise needed by this translator but kept for parity with
// the branch-heavy control flow the emitter produces around NaN fixups).
type JumpTableEntry struct {
	Table                    *StaticConst
	LabelInitialInstructions []Node
}

// AssemblerBase is the architecture-independent subset of the assembler
// surface: label/branch bookkeeping and the final Assemble call that hands
// control to the external encoder.
type AssemblerBase interface {
	// NewLabelNode reserves a label that can be used as a branch target
	// before the instructions at that label are known.
	NewLabelNode() Node
	// SetJumpTargetOnNext marks nodes whose jump target is "whatever node
	// compiles next", used for structured forward branches (accurate-NaN
	// near/far rejoin, min/max signed-zero rejoin).
	SetJumpTargetOnNext(nodes ...Node)
	// CompileStandAlone emits an instruction with no operands (e.g. RET, NOP).
	CompileStandAlone(instruction Instruction) Node
	// CompileConstToRegister emits `register = value` or an arithmetic/compare
	// instruction between register and the immediate value.
	CompileConstToRegister(instruction Instruction, value ConstantValue, register Register) Node
	// CompileRegisterToRegister emits a two-register instruction.
	CompileRegisterToRegister(instruction Instruction, from, to Register)
	// CompileMemoryToRegister emits `to = [base+offset]`-shaped instructions.
	CompileMemoryToRegister(instruction Instruction, srcBaseReg Register, srcOffsetConst int64, dstReg Register)
	// CompileRegisterToMemory emits `[base+offset] = from`-shaped instructions.
	CompileRegisterToMemory(instruction Instruction, srcReg Register, dstBaseReg Register, dstOffsetConst int64)
	// CompileJump emits an unconditional branch, returning the branch node
	// for later AssignJumpTarget patching.
	CompileJump(jmpInstruction Instruction) Node
	// CompileJumpToRegister emits an indirect branch through a register.
	CompileJumpToRegister(jmpInstruction Instruction, reg Register)
	// CompileReadStaticConstToRegister loads a pooled constant's address (or
	// value, architecture-dependent) into register, registering c in the
	// assembler's constant pool.
	CompileReadStaticConstToRegister(instruction Instruction, c *StaticConst, register Register) Node
	// Assemble finalizes branch targets and constant-pool offsets and hands
	// the node list to the external x86 encoder, returning the machine code.
	Assemble() ([]byte, error)
}
