package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Annomatg/dynarmic/internal/optimize"
)

func newOptimizeCmd() *cobra.Command {
	f := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   "optimize <image>",
		Short: "Lift one guest block, run the peephole passes, and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blk, mem, err := f.compileOne(args[0])
			if err != nil {
				return fmt.Errorf("optimize: %w", err)
			}
			optimize.Run(blk, mem)
			dumpBlock(os.Stdout, blk)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
