package main

import (
	"encoding/binary"
	"fmt"
)

// flatMemory is a throwaway hostabi.Callbacks implementation backing the CLI:
// a single contiguous guest image loaded from the input file at vaddr 0,
// with supervisor call numbers recorded and cycle accounting ignored. Real embedders
// supply their own Callbacks (spec.md §1's external collaborator); this one
// exists only so `armjit` has something to decode and compile against
// without dragging in a real guest memory manager.
type flatMemory struct {
	buf []byte
	svc []uint32
}

func newFlatMemory(buf []byte) *flatMemory { return &flatMemory{buf: buf} }

func (m *flatMemory) read(vaddr uint32, size int) []byte {
	if int(vaddr)+size > len(m.buf) {
		return make([]byte, size)
	}
	return m.buf[vaddr : int(vaddr)+size]
}

func (m *flatMemory) MemoryRead8(vaddr uint32) uint8 { return m.read(vaddr, 1)[0] }
func (m *flatMemory) MemoryRead16(vaddr uint32) uint16 {
	return binary.LittleEndian.Uint16(m.read(vaddr, 2))
}
func (m *flatMemory) MemoryRead32(vaddr uint32) uint32 {
	return binary.LittleEndian.Uint32(m.read(vaddr, 4))
}
func (m *flatMemory) MemoryRead64(vaddr uint32) uint64 {
	return binary.LittleEndian.Uint64(m.read(vaddr, 8))
}

func (m *flatMemory) MemoryWrite8(vaddr uint32, value uint8) {
	if int(vaddr) < len(m.buf) {
		m.buf[vaddr] = value
	}
}
func (m *flatMemory) MemoryWrite16(vaddr uint32, value uint16) {
	if int(vaddr)+2 <= len(m.buf) {
		binary.LittleEndian.PutUint16(m.buf[vaddr:], value)
	}
}
func (m *flatMemory) MemoryWrite32(vaddr uint32, value uint32) {
	if int(vaddr)+4 <= len(m.buf) {
		binary.LittleEndian.PutUint32(m.buf[vaddr:], value)
	}
}
func (m *flatMemory) MemoryWrite64(vaddr uint32, value uint64) {
	if int(vaddr)+8 <= len(m.buf) {
		binary.LittleEndian.PutUint64(m.buf[vaddr:], value)
	}
}

// IsReadOnlyMemory reports the whole image read-only, so `armjit optimize`
// has something for the constant-memory-read fold to exercise against.
func (m *flatMemory) IsReadOnlyMemory(vaddr uint32, size uint8) bool {
	return int(vaddr)+int(size) <= len(m.buf)
}

func (m *flatMemory) CallSVC(imm uint32) { m.svc = append(m.svc, imm) }

func (m *flatMemory) AddTicks(count uint64)     {}
func (m *flatMemory) GetTicksRemaining() uint64 { return ^uint64(0) }

func (m *flatMemory) String() string {
	return fmt.Sprintf("flatMemory{%d bytes, %d SVCs}", len(m.buf), len(m.svc))
}
