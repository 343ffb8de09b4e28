package main

import (
	"fmt"
	"io"

	"github.com/Annomatg/dynarmic/internal/armir"
)

// dumpBlock prints blk in a flat "%4: Kind args..." form, one
// instruction per line, matching the register-dump style the teacher's own
// wazero CLI uses for its --debug IR listings (cmd/wazero/wazero.go).
func dumpBlock(w io.Writer, blk *armir.Block) {
	fmt.Fprintf(w, "block @ pc=%#x thumb=%v (%d instructions, %d cycles)\n",
		blk.Start.PC, blk.Start.Thumb, len(blk.Instructions), blk.CycleCount)
	for i, inst := range blk.Instructions {
		if inst.Invalidated {
			fmt.Fprintf(w, "  %4d: (dead) %s\n", i, inst.Kind)
			continue
		}
		fmt.Fprintf(w, "  %4d: %s%s\n", i, inst.Kind, formatArgs(inst))
	}
	fmt.Fprintf(w, "  term: %s\n", formatTerm(blk.Term))
}

func formatArgs(inst armir.Instruction) string {
	s := ""
	for i := 0; i < inst.NumArgs; i++ {
		s += " " + formatValue(inst.Args[i])
	}
	switch inst.Kind {
	case armir.KindGetRegister, armir.KindSetRegister:
		s += fmt.Sprintf(" r%d", inst.Register)
	case armir.KindImm1, armir.KindImm8, armir.KindImm16, armir.KindImm32, armir.KindImm64:
		s += fmt.Sprintf(" #%#x", inst.Imm)
	case armir.KindVectorFPBinary, armir.KindVectorFPUnary, armir.KindVectorFPMinMax, armir.KindVectorFPFMA:
		s += fmt.Sprintf(" op=%d width=%d", inst.VecOp, inst.ElemWidth)
	case armir.KindVectorFPToFixed:
		s += fmt.Sprintf(" fbits=%d round=%d signed=%v", inst.FBits, inst.Round, inst.Signed)
	case armir.KindVectorIntToFP:
		s += fmt.Sprintf(" round=%d signed=%v", inst.Round, inst.Signed)
	}
	if inst.HasResult {
		s += fmt.Sprintf(" (uses=%d, width=%d)", inst.Uses, inst.ResultWidth)
	}
	return s
}

func formatValue(v armir.Value) string {
	if v.IsImm() {
		return fmt.Sprintf("#%#x", v.ImmValue())
	}
	return fmt.Sprintf("%%%d", v.RefIndex())
}

func formatTerm(t armir.Terminator) string {
	switch t.Kind {
	case armir.TermLinkBlock:
		return fmt.Sprintf("LinkBlock -> pc=%#x", t.Target.PC)
	case armir.TermLinkBlockFast:
		return fmt.Sprintf("LinkBlockFast -> pc=%#x", t.Target.PC)
	case armir.TermIf:
		return fmt.Sprintf("If %s then pc=%#x else pc=%#x", formatValue(t.Cond), t.Target.PC, t.ElseTarget.PC)
	case armir.TermInterpret:
		return fmt.Sprintf("Interpret @ pc=%#x", t.Target.PC)
	case armir.TermReturnToDispatch:
		return "ReturnToDispatch"
	default:
		return "None"
	}
}
