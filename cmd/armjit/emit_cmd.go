package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/arch/x86/x86asm"

	"github.com/Annomatg/dynarmic/internal/asm/amd64"
	"github.com/Annomatg/dynarmic/internal/compiler"
	"github.com/Annomatg/dynarmic/internal/optimize"
)

func newEmitCmd() *cobra.Command {
	f := &pipelineFlags{}
	var raw bool
	cmd := &cobra.Command{
		Use:   "emit <image>",
		Short: "Run the full pipeline and print the emitted x86-64, disassembled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blk, mem, err := f.compileOne(args[0])
			if err != nil {
				return fmt.Errorf("emit: %w", err)
			}
			optimize.Run(blk, mem)

			asmb, err := amd64.NewAssembler()
			if err != nil {
				return fmt.Errorf("emit: constructing assembler: %w", err)
			}
			e := compiler.NewEmitter(asmb)
			frameSize, err := e.Emit(blk)
			if err != nil {
				return fmt.Errorf("emit: %w", err)
			}
			code, err := asmb.Assemble()
			if err != nil {
				return fmt.Errorf("emit: assembling: %w", err)
			}

			if raw {
				_, err := os.Stdout.Write(code)
				return err
			}

			fmt.Fprintf(os.Stdout, "; %d bytes, spill frame %d bytes\n", len(code), frameSize)
			disassemble(os.Stdout, code)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "write the raw machine code to stdout instead of disassembling it")
	return cmd
}

// disassemble prints code in GNU syntax via the reference x86-64
// disassembler, one instruction per line, so a reviewer can sanity-check the
// emitter's templates without reaching for objdump.
func disassemble(w *os.File, code []byte) {
	for off := 0; off < len(code); {
		inst, err := x86asm.Decode(code[off:], 64)
		if err != nil {
			fmt.Fprintf(w, "%4d: <bad: %v>\n", off, err)
			off++
			continue
		}
		fmt.Fprintf(w, "%4d: %s\n", off, x86asm.GNUSyntax(inst, uint64(off), nil))
		off += inst.Len
	}
}
