// Package compiler is the backend: it walks a completed armir.Block and
// emits host x86-64 machine code for it via internal/asm/amd64, allocating
// host registers to IR values as it goes.
//
// Grounded on wasm/jit/jit_value_location.go's valueLocationStack — free-
// register search, steal-from-last-used-register, mark-used/mark-unused —
// generalized from a virtual operand *stack* (wazeroir pops/pushes operands)
// to a flat *use-count* model, since armir.Instruction already carries a
// statically-known Uses count per spec.md §4.1 and this IR has no explicit
// stack to mirror.
package compiler

import (
	"fmt"

	"github.com/Annomatg/dynarmic/internal/armir"
	"github.com/Annomatg/dynarmic/internal/asm"
	"github.com/Annomatg/dynarmic/internal/asm/amd64"
)

// regSlot is one physical register's allocation state.
type regSlot struct {
	reg    asm.Register
	owner  int  // instruction index whose result lives here, or -1 if free.
	scratch bool // true for a ScratchGpr/ScratchXmm allocation with no owner.
}

// Allocator implements spec.md §4.5's register-allocator operation set. One
// Allocator is constructed per armir.Block compilation and discarded
// afterward (spec §5: "The allocator's register/spill state is local to a
// compilation and invalid afterward").
type Allocator struct {
	asmb amd64.Assembler

	gpr []regSlot
	xmm []regSlot

	// home maps an instruction index to the register currently holding its
	// result, once DefineValue has bound it.
	home map[int]asm.Register
	// remainingUses counts not-yet-consumed uses of each defined value,
	// seeded from armir.Instruction.Uses at DefineValue time and decremented
	// by every UseGpr/UseXmm/UseScratchGpr/UseScratchXmm call.
	remainingUses map[int]int

	// spillSlots assigns a stack-frame offset (relative to
	// amd64.ReservedSpillBase) to an instruction index once it has been
	// evicted from a register under pressure.
	spillSlots    map[int]int32
	nextSpillSlot int32
}

// NewAllocator constructs an Allocator that emits through asmb.
func NewAllocator(asmb amd64.Assembler) *Allocator {
	a := &Allocator{
		asmb:          asmb,
		home:          map[int]asm.Register{},
		remainingUses: map[int]int{},
		spillSlots:    map[int]int32{},
	}
	a.gpr = make([]regSlot, len(amd64.GeneralPurposeRegisters))
	for i, r := range amd64.GeneralPurposeRegisters {
		a.gpr[i] = regSlot{reg: r, owner: -1}
	}
	a.xmm = make([]regSlot, len(amd64.XMMRegisters))
	for i, r := range amd64.XMMRegisters {
		a.xmm[i] = regSlot{reg: r, owner: -1}
	}
	return a
}

func (a *Allocator) pool(xmm bool) []regSlot {
	if xmm {
		return a.xmm
	}
	return a.gpr
}

func (a *Allocator) findFree(xmm bool) (int, bool) {
	pool := a.pool(xmm)
	for i := range pool {
		if pool[i].owner == -1 && !pool[i].scratch {
			return i, true
		}
	}
	return 0, false
}

// spillSlotStride is the number of stack-frame bytes a spill slot occupies:
// every xmm-homed IR value is a full 128-bit vector (armir.Width128, set by
// every internal/armir/vector.go builder method), not a 64-bit scalar, so
// its spill slot must be 16 bytes wide or a spill/reload truncates the
// value's upper 64 bits.
func spillSlotStride(xmm bool) int32 {
	if xmm {
		return 16
	}
	return 8
}

// spill evicts slotIdx's current owner to its spill slot, freeing the
// register. Per spec §4.5: "Register pressure overflow falls back to memory
// spill slots reserved within the block's stack frame."
func (a *Allocator) spill(xmm bool, slotIdx int) {
	pool := a.pool(xmm)
	owner := pool[slotIdx].owner
	if owner == -1 {
		return
	}
	off, ok := a.spillSlots[owner]
	if !ok {
		off = a.nextSpillSlot
		a.nextSpillSlot += spillSlotStride(xmm)
		a.spillSlots[owner] = off
	}
	mov := amd64.MOVQ
	if xmm {
		mov = amd64.MOVUPS
	}
	a.asmb.CompileRegisterToMemory(mov, pool[slotIdx].reg, amd64.ReservedSpillBase, int64(off))
	delete(a.home, owner)
	pool[slotIdx].owner = -1
}

// takeFree returns a free register, spilling the first occupied slot in the
// pool (steal-from-in-use, mirroring takeStealTargetFromUsedRegister) if none
// is free.
func (a *Allocator) takeFree(xmm bool) asm.Register {
	if i, ok := a.findFree(xmm); ok {
		return a.pool(xmm)[i].reg
	}
	pool := a.pool(xmm)
	for i := range pool {
		if pool[i].owner != -1 {
			a.spill(xmm, i)
			return pool[i].reg
		}
	}
	panic("compiler: every register in the pool is held as scratch")
}

// reload ensures v's value (a ref to an already-defined instruction) is in a
// register and returns it. If v still has a register home, that register is
// returned whichever class it belongs to; only a spilled value is reloaded,
// into a register of the requested class.
func (a *Allocator) reload(v armir.Value, xmm bool) asm.Register {
	idx := v.RefIndex()
	if reg, ok := a.home[idx]; ok {
		return reg
	}
	off, ok := a.spillSlots[idx]
	if !ok {
		panic(fmt.Sprintf("compiler: value %d has neither a register home nor a spill slot", idx))
	}
	reg := a.takeFree(xmm)
	mov := amd64.MOVQ
	if xmm {
		mov = amd64.MOVUPS
	}
	a.asmb.CompileMemoryToRegister(mov, amd64.ReservedSpillBase, int64(off), reg)
	a.bindOwner(xmm, reg, idx)
	return reg
}

func (a *Allocator) bindOwner(xmm bool, reg asm.Register, owner int) {
	pool := a.pool(xmm)
	for i := range pool {
		if pool[i].reg == reg {
			pool[i].owner = owner
			pool[i].scratch = false
		}
	}
	a.home[owner] = reg
}

// materializeImm loads an immediate into a fresh scratch register.
func (a *Allocator) materializeImm(v armir.Value, xmm bool) asm.Register {
	reg := a.scratchReg(xmm)
	if xmm {
		// Scalar-FP immediates are rare (NaN masks and the like go through
		// the static-const pool, internal/compiler/emit_vector.go); integer
		// bit patterns still route through a GPR move-then-transfer.
		tmp := a.scratchReg(false)
		a.asmb.CompileConstToRegister(amd64.MOVQ, int64(v.ImmValue()), tmp)
		a.asmb.CompileRegisterToRegisterWithMode(amd64.MOVQXMM, tmp, reg, amd64.Mode(0))
		return reg
	}
	a.asmb.CompileConstToRegister(amd64.MOVQ, int64(v.ImmValue()), reg)
	return reg
}

func (a *Allocator) use(v armir.Value, xmm bool) asm.Register {
	if v.IsImm() {
		return a.materializeImm(v, xmm)
	}
	reg := a.reload(v, xmm)
	if n, ok := a.remainingUses[v.RefIndex()]; ok && n > 0 {
		a.remainingUses[v.RefIndex()] = n - 1
	}
	return reg
}

// UseGpr ensures v is in a GPR and returns it; v remains live for further use.
func (a *Allocator) UseGpr(v armir.Value) asm.Register { return a.use(v, false) }

// UseXmm is UseGpr's XMM counterpart.
func (a *Allocator) UseXmm(v armir.Value) asm.Register { return a.use(v, true) }

// useScratch is UseGpr/UseXmm's clobber-permitting counterpart: if v still
// has uses remaining after this one, its value is copied to a fresh register
// first so the emitter's in-place op doesn't corrupt a value a later
// instruction still needs.
func (a *Allocator) useScratch(v armir.Value, xmm bool) asm.Register {
	reg := a.use(v, xmm)
	if v.IsImm() {
		return reg // materializeImm already produced a fresh, ownerless register.
	}
	idx := v.RefIndex()
	if a.remainingUses[idx] > 0 {
		fresh := a.takeFree(xmm)
		mov := amd64.MOVQ
		if xmm {
			mov = amd64.MOVUPS
		}
		a.asmb.CompileRegisterToRegister(mov, reg, fresh)
		return fresh
	}
	// Last use: the def's slot becomes a scratch-owned (no-owner) register
	// the emitter may clobber freely; EndOfAllocScope will reclaim it like
	// any other scratch allocation.
	a.release(xmm, idx)
	pool := a.pool(xmm)
	for i := range pool {
		if pool[i].reg == reg {
			pool[i].scratch = true
		}
	}
	return reg
}

func (a *Allocator) UseScratchGpr(v armir.Value) asm.Register { return a.useScratch(v, false) }
func (a *Allocator) UseScratchXmm(v armir.Value) asm.Register { return a.useScratch(v, true) }

// ScratchGpr allocates a free register with undefined contents, released at
// EndOfAllocScope.
func (a *Allocator) ScratchGpr() asm.Register { return a.scratchReg(false) }
func (a *Allocator) ScratchXmm() asm.Register { return a.scratchReg(true) }

func (a *Allocator) scratchReg(xmm bool) asm.Register {
	reg := a.takeFree(xmm)
	pool := a.pool(xmm)
	for i := range pool {
		if pool[i].reg == reg {
			pool[i].owner = -1
			pool[i].scratch = true
		}
	}
	return reg
}

func (a *Allocator) release(xmm bool, owner int) {
	pool := a.pool(xmm)
	for i := range pool {
		if pool[i].owner == owner {
			pool[i].owner = -1
		}
	}
	delete(a.home, owner)
}

// DefineValue binds instIdx's result to reg, seeding its remaining-use
// counter from the IR's statically-known use count.
func (a *Allocator) DefineValue(blk *armir.Block, instIdx int, reg asm.Register) {
	xmm := isXmmHome(reg)
	a.bindOwner(xmm, reg, instIdx)
	a.remainingUses[instIdx] = blk.Instructions[instIdx].Uses
}

func isXmmHome(reg asm.Register) bool {
	for _, r := range amd64.XMMRegisters {
		if r == reg {
			return true
		}
	}
	return false
}

// EndOfAllocScope releases every register whose owner's remaining-use count
// has reached zero and every still-held Scratch* allocation, called once per
// emitted IR instruction after its DefineValue (if any).
func (a *Allocator) EndOfAllocScope() {
	for _, pool := range [][]regSlot{a.gpr, a.xmm} {
		for i := range pool {
			if pool[i].scratch {
				pool[i].scratch = false
				pool[i].owner = -1
				continue
			}
			if pool[i].owner == -1 {
				continue
			}
			if n, ok := a.remainingUses[pool[i].owner]; ok && n <= 0 {
				delete(a.home, pool[i].owner)
				pool[i].owner = -1
			}
		}
	}
}

// callerSaveGpr is the set of GPRs HostCall treats as clobbered by a call:
// the allocator's whole GPR pool, which is wider than System V's caller-save
// set since it includes BX and R12. HostCall spills every GPR and XMM
// register holding a live value before the call.
var callerSaveGpr = amd64.GeneralPurposeRegisters

// HostCall spills every caller-save register currently holding a live value,
// aligns the stack to the host ABI's 16-byte boundary, and returns the
// register DefineValue should bind the call's return value to (AX, the
// System V integer/pointer return register) once the caller emits the actual
// CALL via asmb.CompileCallFunctionAddress. Per spec §4.5: "spill all
// caller-save registers, align the stack to the host ABI."
func (a *Allocator) HostCall() asm.Register {
	for i := range a.gpr {
		if a.gpr[i].owner != -1 {
			a.spill(false, i)
		}
	}
	for i := range a.xmm {
		if a.xmm[i].owner != -1 {
			a.spill(true, i)
		}
	}
	// The spill slot frame is always allocated in 8-byte units; padding to a
	// 16-byte boundary here keeps the call site's RSP 16-byte aligned
	// regardless of how many slots preceded it, per the System V ABI's call
	// requirement.
	if a.nextSpillSlot%16 != 0 {
		a.nextSpillSlot += 8
	}
	return callerSaveGpr[0]
}

// FrameSize returns the number of bytes this compilation's spill area
// needs, which the block prologue must reserve below amd64.ReservedSpillBase.
func (a *Allocator) FrameSize() int32 { return a.nextSpillSlot }

// ReserveFixedGpr evicts whatever currently owns the specific physical
// register reg (spilling it like any other eviction) and marks reg a
// scratch allocation, freed at the next EndOfAllocScope. Used where the x86
// ISA hardcodes a register — CL as a shift count — that the allocator
// otherwise treats as fungible.
func (a *Allocator) ReserveFixedGpr(reg asm.Register) asm.Register {
	for i := range a.gpr {
		if a.gpr[i].reg == reg && a.gpr[i].owner != -1 {
			a.spill(false, i)
		}
	}
	for i := range a.gpr {
		if a.gpr[i].reg == reg {
			a.gpr[i].owner = -1
			a.gpr[i].scratch = true
		}
	}
	return reg
}
