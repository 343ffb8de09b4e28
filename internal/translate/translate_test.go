package translate

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Annomatg/dynarmic/internal/armir"
)

// fakeCallbacks backs a flat 64-byte image for translator tests; an access
// that runs past the end of the image panics.
type fakeCallbacks struct {
	mem [64]byte
}

func (f *fakeCallbacks) MemoryRead8(a uint32) uint8 { return f.mem[a] }
func (f *fakeCallbacks) MemoryRead16(a uint32) uint16 {
	return binary.LittleEndian.Uint16(f.mem[a:])
}
func (f *fakeCallbacks) MemoryRead32(a uint32) uint32 {
	return binary.LittleEndian.Uint32(f.mem[a:])
}
func (f *fakeCallbacks) MemoryRead64(a uint32) uint64 {
	return binary.LittleEndian.Uint64(f.mem[a:])
}
func (f *fakeCallbacks) MemoryWrite8(a uint32, v uint8)             { f.mem[a] = v }
func (f *fakeCallbacks) MemoryWrite16(a uint32, v uint16)           { binary.LittleEndian.PutUint16(f.mem[a:], v) }
func (f *fakeCallbacks) MemoryWrite32(a uint32, v uint32)           { binary.LittleEndian.PutUint32(f.mem[a:], v) }
func (f *fakeCallbacks) MemoryWrite64(a uint32, v uint64)           { binary.LittleEndian.PutUint64(f.mem[a:], v) }
func (f *fakeCallbacks) IsReadOnlyMemory(a uint32, size uint8) bool { return false }
func (f *fakeCallbacks) CallSVC(imm uint32)                         {}
func (f *fakeCallbacks) AddTicks(count uint64)                      {}
func (f *fakeCallbacks) GetTicksRemaining() uint64                  { return 0 }

func putWord(buf []byte, off int, w uint32) {
	binary.LittleEndian.PutUint32(buf[off:], w)
}

func TestCompileA32MovThenBranch(t *testing.T) {
	cb := &fakeCallbacks{}
	putWord(cb.mem[:], 0, 0xE3A00005) // MOV R0, #5 (AL)
	putWord(cb.mem[:], 4, 0xEA000000) // B <AL, offset 0>

	tr := New(NewConfig(), cb, nil)
	blk, err := tr.Compile(armir.Location{PC: 0})
	require.NoError(t, err)
	require.Equal(t, armir.TermLinkBlockFast, blk.Term.Kind)

	foundSetReg0 := false
	for _, inst := range blk.Instructions {
		if inst.Kind == armir.KindSetRegister && inst.Register == 0 {
			foundSetReg0 = true
		}
	}
	require.True(t, foundSetReg0)
}

func TestCompileUnpredictableInstructionInterprets(t *testing.T) {
	cb := &fakeCallbacks{}
	putWord(cb.mem[:], 0, 0xFFFFFFFF) // matches no table entry -> UnpredictableInstruction

	tr := New(NewConfig(), cb, nil)
	blk, err := tr.Compile(armir.Location{PC: 0})
	require.NoError(t, err)
	require.Equal(t, armir.TermInterpret, blk.Term.Kind)
}

func TestAlignPCMasksLowTwoBits(t *testing.T) {
	cb := &fakeCallbacks{}
	tr := New(NewConfig(), cb, nil)
	tr.currentPC = 0x1001
	require.Equal(t, uint32(0x1008)&^3, tr.AlignPC(8))
}

func TestMaxInstructionsPerBlockForcesReturnToDispatch(t *testing.T) {
	cb := &fakeCallbacks{}
	for i := 0; i < 4; i++ {
		putWord(cb.mem[:], i*4, 0xE3A00005) // MOV R0, #5, never terminates
	}
	tr := New(NewConfig(WithMaxInstructionsPerBlock(2)), cb, nil)
	blk, err := tr.Compile(armir.Location{PC: 0})
	require.NoError(t, err)
	require.Equal(t, armir.TermReturnToDispatch, blk.Term.Kind)
}
