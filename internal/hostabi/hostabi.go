// Package hostabi defines the external collaborator surfaces spec.md §1 and
// §6 place out of the translator's scope: the guest user-callback interface
// (memory read/write, supervisor calls, cycle accounting) and the layout of
// the persisted guest CPU-state image that compiled code reads and writes
// directly by fixed offset.
package hostabi

// Callbacks is the guest user-callback surface the embedder supplies.
// Per spec.md §1, memory access, supervisor calls, and cycle accounting are
// external collaborators — the translator only emits calls through this
// interface, it never implements guest memory itself.
type Callbacks interface {
	MemoryRead8(vaddr uint32) uint8
	MemoryRead16(vaddr uint32) uint16
	MemoryRead32(vaddr uint32) uint32
	MemoryRead64(vaddr uint32) uint64

	MemoryWrite8(vaddr uint32, value uint8)
	MemoryWrite16(vaddr uint32, value uint16)
	MemoryWrite32(vaddr uint32, value uint32)
	MemoryWrite64(vaddr uint32, value uint64)

	// IsReadOnlyMemory reports whether the byte range starting at vaddr is
	// known read-only, which internal/optimize's constant-memory-reads pass
	// uses to decide whether a ReadMemoryN of an immediate address may be
	// folded to a literal at compile time.
	IsReadOnlyMemory(vaddr uint32, size uint8) bool

	CallSVC(imm uint32)

	AddTicks(count uint64)
	GetTicksRemaining() uint64
}

// CPUState is the persisted guest CPU-state image: the layout spec §6
// requires compiled code to read/write directly through a fixed host
// register (R13, amd64.ReservedCPUState). Field order and sizes here ARE the ABI
// contract between the register allocator's spill/fill code and the
// interpreter/dispatcher that also reads this struct, so it must not be
// reordered without updating every offset the compiler's emitter hardcodes.
type CPUState struct {
	// 16 ARM general-purpose registers, R0..R15 (R15 = PC), little-endian.
	Regs [16]uint32

	// 32 VFP/NEON registers, each a 128-bit lane (covers S0-31/D0-31 views
	// as sub-slices of the same storage, per spec §6: "32 VFP/NEON
	// single-lane or 32 double-lane registers (treated as 4×128-bit vector
	// slots)"). Stored as 4 uint32 words per register to keep the struct
	// free of unsafe/SIMD-typed fields.
	Vregs [32][4]uint32

	// CPSR condition flags, broken into individually addressable bytes so
	// the emitter's flag-set templates write a single byte rather than a
	// read-modify-write of a packed word.
	FlagN, FlagZ, FlagC, FlagV uint8
	_pad0                      [4]byte // keep CPSRPacked 8-aligned.

	// CPSRPacked mirrors the four flag bytes above in the architectural
	// N:Z:C:V bit-28..31 layout, for interpreter fallback and debugging.
	// Compiled code never writes it: the emitter updates only the four flag
	// bytes, so it is current only when the embedder refreshes it.
	CPSRPacked uint32
	_pad1      [4]byte

	// FPSCR image: rounding mode (bits 22:23), default-NaN enable (bit 25),
	// flush-to-zero (bit 24), and the condition flags VFP instructions set.
	FPSCR uint32

	// CycleCounter and TicksRemaining back AddTicks/GetTicksRemaining for
	// compiled code that wants to check budget without a host call.
	CycleCounter   uint64
	TicksRemaining uint64

	// ExclusiveMonitorAddr/Valid back LDREX/STREX; the translator does not
	// implement exclusive-access semantics beyond recording the address
	// (full coprocessor/exclusive-monitor support is out of scope).
	ExclusiveMonitorAddr  uint32
	ExclusiveMonitorValid uint8
	_pad2                 [3]byte

	// FPSR exception slot: fallback helpers (internal/compiler's
	// software-conversion lookup table) write IEEE exception flags here at
	// a fixed offset, per spec §4.6: "a pointer to an FPSR update slot."
	FPSR uint32
}

// Offset-of constants the emitter hardcodes when generating direct
// field-offset loads/stores against the R13-resident CPUState pointer,
// rather than relying on reflection at codegen time.
const (
	OffsetRegs       = 0
	OffsetVregs      = OffsetRegs + 16*4
	OffsetFlagN      = OffsetVregs + 32*4*4
	OffsetFlagZ      = OffsetFlagN + 1
	OffsetFlagC      = OffsetFlagZ + 1
	OffsetFlagV      = OffsetFlagC + 1
)
