package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Annomatg/dynarmic/internal/armir"
	"github.com/Annomatg/dynarmic/internal/armlog"
	"github.com/Annomatg/dynarmic/internal/translate"
)

// pipelineFlags are shared across translate/optimize/emit: where to start
// decoding and what ISA/FP mode to decode it under.
type pipelineFlags struct {
	pc          uint32
	thumb       bool
	defaultNaN  bool
	accurateNaN bool
	verbose     bool
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&f.pc, "pc", 0, "guest PC to start decoding at")
	cmd.Flags().BoolVar(&f.thumb, "thumb", false, "decode as Thumb/Thumb-2 rather than A32")
	cmd.Flags().BoolVar(&f.defaultNaN, "default-nan", true, "translate vector FP ops in Default-NaN mode")
	cmd.Flags().BoolVar(&f.accurateNaN, "accurate-nan", false, "request accurate NaN propagation over Default-NaN")
	cmd.Flags().BoolVar(&f.verbose, "v", false, "log translator diagnostics to stderr")
}

// compileOne reads path as a flat guest memory image and lifts exactly one
// armir.Block starting at f.pc, returning the block and the memory image the
// translator ran against (the optimize and emit commands pass it on to the
// optimizer's constant-memory-read pass).
func (f *pipelineFlags) compileOne(path string) (*armir.Block, *flatMemory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	mem := newFlatMemory(data)

	log := armlog.Discard()
	if f.verbose {
		log = armlog.New(os.Stderr, slog.LevelDebug)
	}

	cfg := translate.NewConfig(
		translate.WithDefaultNaN(f.defaultNaN),
		translate.WithAccurateNaN(f.accurateNaN),
	)
	tr := translate.New(cfg, mem, log)
	loc := armir.Location{PC: f.pc, Thumb: f.thumb, DefaultNaN: f.defaultNaN, AccurateNaN: f.accurateNaN}
	blk, err := tr.Compile(loc)
	if err != nil {
		return nil, nil, err
	}
	return blk, mem, nil
}
