// Command armjit is a diagnostic CLI for the translator pipeline: decode a
// guest instruction stream, lift it to IR, run the optimizer over it, and
// emit (then disassemble) the resulting x86-64. It exists to exercise the
// pipeline's stages independently of the (out-of-scope) dispatcher loop a
// real embedder would drive it from, in the same spirit as the teacher's
// own `cmd/wazero` diagnostic binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "armjit",
		Short: "Diagnostic CLI for the ARM32-on-x86-64 dynamic binary translator",
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newTranslateCmd(), newOptimizeCmd(), newEmitCmd())
	return root
}
