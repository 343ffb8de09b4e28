// Package optimize implements the IR peephole passes of spec.md §4.4: dead
// flag-set elimination and constant-memory-read folding. Both mutate a
// armir.Block in place, invalidating instructions rather than removing them
// from the slice — the same mutate-in-place discipline
// internal/engine/compiler/drop.go applies to its location stack — so that
// indices already captured by other Value references stay valid.
package optimize

import (
	"github.com/Annomatg/dynarmic/internal/armir"
	"github.com/Annomatg/dynarmic/internal/hostabi"
)

// Pass is one optimization pass. Passes are idempotent and order-insensitive
// with respect to correctness (spec §4.4); Run applies all of them once in a
// fixed, documented order so "order may affect code quality only".
type Pass func(blk *armir.Block, cb hostabi.Callbacks)

// Run applies the standard pass pipeline to blk in place.
func Run(blk *armir.Block, cb hostabi.Callbacks) {
	DeadFlagElimination(blk, cb)
	ConstantMemoryReads(blk, cb)
}

func invalidate(blk *armir.Block, idx int) {
	inst := &blk.Instructions[idx]
	if inst.Invalidated {
		return
	}
	inst.Invalidated = true
	for _, arg := range inst.Args[:inst.NumArgs] {
		if !arg.IsImm() {
			blk.Instructions[arg.RefIndex()].Uses--
		}
	}
}

var setFlagKinds = map[armir.Kind]armir.Kind{
	armir.KindSetNFlag: armir.KindGetNFlag,
	armir.KindSetZFlag: armir.KindGetZFlag,
	armir.KindSetCFlag: armir.KindGetCFlag,
	armir.KindSetVFlag: armir.KindGetVFlag,
}

// DeadFlagElimination implements spec §4.4: "If a SetCFlag(x) consumes a
// value that is itself a GetCFlag(), invalidate the set. Generalize to all
// flag pairs." A set whose operand traces to arithmetic is never removed:
// the set is its only observable effect.
func DeadFlagElimination(blk *armir.Block, _ hostabi.Callbacks) {
	for i := range blk.Instructions {
		inst := &blk.Instructions[i]
		getKind, isSetFlag := setFlagKinds[inst.Kind]
		if !isSetFlag || inst.Invalidated {
			continue
		}
		src := inst.Args[0]
		if src.IsImm() {
			continue
		}
		srcInst := blk.Instructions[src.RefIndex()]
		if srcInst.Kind == getKind {
			invalidate(blk, i)
		}
	}
}

var memReadKindWidth = map[armir.Kind]uint8{
	armir.KindReadMemory8:  1,
	armir.KindReadMemory16: 2,
	armir.KindReadMemory32: 4,
	armir.KindReadMemory64: 8,
}

// ConstantMemoryReads implements spec §4.4's "Constant memory reads" pass:
// a ReadMemoryN of an immediate address (a literal operand, or a ref to a
// live ImmN instruction as the Builder emits it), when the host reports the address
// range read-only, is performed at compile time and every use of the
// instruction is redirected to the literal result. Non-read-only reads are
// never folded — doing so would lose MMIO side effects.
func ConstantMemoryReads(blk *armir.Block, cb hostabi.Callbacks) {
	for i := range blk.Instructions {
		inst := &blk.Instructions[i]
		size, isRead := memReadKindWidth[inst.Kind]
		if !isRead || inst.Invalidated {
			continue
		}
		addr := inst.Args[0]
		var vaddr uint32
		if addr.IsImm() {
			vaddr = uint32(addr.ImmValue())
		} else {
			def := blk.Instructions[addr.RefIndex()]
			switch def.Kind {
			case armir.KindImm8, armir.KindImm16, armir.KindImm32, armir.KindImm64:
			default:
				continue
			}
			if def.Invalidated {
				continue
			}
			vaddr = uint32(def.Imm)
		}
		if cb == nil || !cb.IsReadOnlyMemory(vaddr, size) {
			continue
		}

		var value uint64
		switch inst.Kind {
		case armir.KindReadMemory8:
			value = uint64(cb.MemoryRead8(vaddr))
		case armir.KindReadMemory16:
			value = uint64(cb.MemoryRead16(vaddr))
		case armir.KindReadMemory32:
			value = uint64(cb.MemoryRead32(vaddr))
		case armir.KindReadMemory64:
			value = cb.MemoryRead64(vaddr)
		}

		// Replace-uses-with: rewrite the read in place into an immediate
		// carrying the folded value, preserving its instruction index (and
		// therefore every existing Value reference to it) while dropping
		// its memory-read identity entirely.
		inst.Kind = immKindForWidth(inst.ResultWidth)
		inst.Imm = value
		inst.NumArgs = 0
		if !addr.IsImm() {
			blk.Instructions[addr.RefIndex()].Uses--
		}
	}
}

func immKindForWidth(w armir.Width) armir.Kind {
	switch w {
	case armir.Width8:
		return armir.KindImm8
	case armir.Width16:
		return armir.KindImm16
	case armir.Width32:
		return armir.KindImm32
	case armir.Width64:
		return armir.KindImm64
	default:
		return armir.KindImm32
	}
}
