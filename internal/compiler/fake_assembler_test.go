package compiler

import (
	"github.com/Annomatg/dynarmic/internal/asm"
	"github.com/Annomatg/dynarmic/internal/asm/amd64"
)

// fakeNode is a no-op asm.Node: these tests exercise the allocator's
// bookkeeping, not the byte encoder (an external collaborator per
// spec.md §1), so patch calls simply do nothing.
type fakeNode struct{}

func (fakeNode) String() string                              { return "fakeNode" }
func (fakeNode) OffsetInBinary() asm.NodeOffsetInBinary       { return 0 }
func (fakeNode) AssignJumpTarget(asm.Node)                    {}
func (fakeNode) AssignDestinationConstant(asm.ConstantValue)  {}
func (fakeNode) AssignSourceConstant(asm.ConstantValue)       {}

// fakeAssembler is a recording amd64.Assembler double: it never touches a
// real byte encoder, it only logs which instruction shape each call emitted
// so tests can assert the allocator drove the assembler the way spec.md §4.5
// describes (spill to memory, reload from memory, etc.) without depending on
// github.com/twitchyliquid64/golang-asm actually being linkable in a test
// binary.
type fakeAssembler struct {
	calls []string
}

func (f *fakeAssembler) log(s string) { f.calls = append(f.calls, s) }

func (f *fakeAssembler) NewLabelNode() asm.Node                        { return fakeNode{} }
func (f *fakeAssembler) SetJumpTargetOnNext(nodes ...asm.Node)         {}
func (f *fakeAssembler) CompileStandAlone(instruction asm.Instruction) asm.Node {
	f.log("standalone")
	return fakeNode{}
}
func (f *fakeAssembler) CompileConstToRegister(instruction asm.Instruction, value asm.ConstantValue, register asm.Register) asm.Node {
	f.log("const->reg")
	return fakeNode{}
}
func (f *fakeAssembler) CompileRegisterToRegister(instruction asm.Instruction, from, to asm.Register) {
	f.log("reg->reg")
}
func (f *fakeAssembler) CompileMemoryToRegister(instruction asm.Instruction, srcBaseReg asm.Register, srcOffsetConst int64, dstReg asm.Register) {
	f.log("mem->reg")
}
func (f *fakeAssembler) CompileRegisterToMemory(instruction asm.Instruction, srcReg asm.Register, dstBaseReg asm.Register, dstOffsetConst int64) {
	f.log("reg->mem")
}
func (f *fakeAssembler) CompileJump(jmpInstruction asm.Instruction) asm.Node {
	f.log("jump")
	return fakeNode{}
}
func (f *fakeAssembler) CompileJumpToRegister(jmpInstruction asm.Instruction, reg asm.Register) {
	f.log("jump->reg")
}
func (f *fakeAssembler) CompileReadStaticConstToRegister(instruction asm.Instruction, c *asm.StaticConst, register asm.Register) asm.Node {
	f.log("staticconst->reg")
	return fakeNode{}
}
func (f *fakeAssembler) Assemble() ([]byte, error) { return nil, nil }

func (f *fakeAssembler) CompileRegisterToRegisterWithMode(instruction asm.Instruction, from, to asm.Register, mode amd64.Mode) {
	f.log("reg->reg/mode")
}
func (f *fakeAssembler) CompileRegisterToRegisterWithArg(instruction asm.Instruction, from, to asm.Register, arg byte) {
	f.log("reg->reg/arg")
}
func (f *fakeAssembler) CompileThreeRegisters(instruction asm.Instruction, src1, src2, mask, dst asm.Register) {
	f.log("reg3")
}
func (f *fakeAssembler) CompileRegisterToConst(instruction asm.Instruction, srcRegister asm.Register, value int64) asm.Node {
	f.log("reg->const")
	return fakeNode{}
}
func (f *fakeAssembler) CompileRegisterToNone(instruction asm.Instruction, register asm.Register) {
	f.log("reg->none")
}
func (f *fakeAssembler) CompileNoneToRegister(instruction asm.Instruction, register asm.Register) {
	f.log("none->reg")
}
func (f *fakeAssembler) CompileLoadStaticConstToRegister(instruction asm.Instruction, c *asm.StaticConst, register asm.Register) asm.Node {
	f.log("loadstaticconst->reg")
	return fakeNode{}
}
func (f *fakeAssembler) CompileCallFunctionAddress(target asm.Register) asm.Node {
	f.log("call")
	return fakeNode{}
}

var _ amd64.Assembler = (*fakeAssembler)(nil)
