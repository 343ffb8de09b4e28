package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newTranslateCmd() *cobra.Command {
	f := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   "translate <image>",
		Short: "Lift one guest block to IR and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blk, _, err := f.compileOne(args[0])
			if err != nil {
				return fmt.Errorf("translate: %w", err)
			}
			dumpBlock(os.Stdout, blk)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
