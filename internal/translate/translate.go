// Package translate implements the frontend: it drives the decoder
// (internal/armdecode) over guest memory, implements both ThumbVisitor and
// ArmVisitor by emitting IR (internal/armir) for each recognized
// instruction, and produces one completed armir.Block per call to Compile.
//
// Grounded on internal/engine/compiler's visitor-driven translation loop
// (each compileXXX method reads the location-stack/IR state, emits
// operations, and returns an error/continue signal) generalized from
// WebAssembly opcodes to ARM guest instructions.
package translate

import (
	"fmt"

	"github.com/Annomatg/dynarmic/internal/armir"
	"github.com/Annomatg/dynarmic/internal/armlog"
	"github.com/Annomatg/dynarmic/internal/hostabi"
)

// Config carries the per-compilation parameters that affect codegen
// (SPEC_FULL.md §1 Ambient Stack: "Configuration"), built functional-options
// style after wazero.RuntimeConfig.
type Config struct {
	Rounding    armir.Rounding
	DefaultNaN  bool
	AccurateNaN bool
	// MaxInstructionsPerBlock bounds translation loop length; guest code
	// with no control-flow transfer for this many instructions forces a
	// block split: the next guest PC is written via ALUWritePC and the block
	// ends with ReturnToDispatch, bounding worst-case compile latency.
	MaxInstructionsPerBlock int
}

// Option configures a Config.
type Option func(*Config)

func WithRounding(r armir.Rounding) Option   { return func(c *Config) { c.Rounding = r } }
func WithDefaultNaN(v bool) Option           { return func(c *Config) { c.DefaultNaN = v } }
func WithAccurateNaN(v bool) Option          { return func(c *Config) { c.AccurateNaN = v } }
func WithMaxInstructionsPerBlock(n int) Option {
	return func(c *Config) { c.MaxInstructionsPerBlock = n }
}

// NewConfig builds a Config from opts, defaulting to round-to-nearest-even,
// Default-NaN mode enabled (the common case for JIT'd guest code that
// hasn't explicitly requested accurate NaN propagation), and a generous
// per-block instruction cap.
func NewConfig(opts ...Option) Config {
	c := Config{Rounding: armir.RoundNearestEven, DefaultNaN: true, MaxInstructionsPerBlock: 4096}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// Translator lifts guest code at a single armir.Location into one armir.Block.
// Per spec.md §5, a Translator is single-threaded per compilation; its
// fields are scratch state for exactly one Compile call.
type Translator struct {
	cfg  Config
	cb   hostabi.Callbacks
	log  armlog.Logger

	b          *armir.Builder
	loc        armir.Location
	currentPC  uint32
	stop       bool
}

// New constructs a Translator. log may be armlog.Discard() if the embedder
// does not want compile-time diagnostics.
func New(cfg Config, cb hostabi.Callbacks, log armlog.Logger) *Translator {
	if log == nil {
		log = armlog.Discard()
	}
	return &Translator{cfg: cfg, cb: cb, log: log}
}

// Compile lifts guest code starting at loc into a completed armir.Block.
// The only error it returns is a block left without a terminator; guest
// faults and translation limitations are encoded as terminators, not
// errors. It does not allocate host code memory.
func (t *Translator) Compile(loc armir.Location) (*armir.Block, error) {
	t.loc = loc
	t.currentPC = loc.PC
	t.b = armir.NewBuilder(loc)
	t.stop = false

	for i := 0; !t.stop; i++ {
		if i >= t.cfg.MaxInstructionsPerBlock {
			t.b.ALUWritePC(t.b.Imm32(t.currentPC))
			t.terminate(armir.Terminator{Kind: armir.TermReturnToDispatch})
			break
		}
		if loc.Thumb {
			t.stepThumb()
		} else {
			t.stepArm()
		}
		t.b.Block().CycleCount++
	}

	blk := t.b.Block()
	if blk.Term.Kind == armir.TermNone {
		return nil, fmt.Errorf("translate: block at pc=%#x produced no terminator", loc.PC)
	}
	return blk, nil
}

// terminate attaches term and marks the translation loop stopped. Per
// spec §9's flagged bug, this is called *before* any further PC advance, so
// a rewrite does not increment currentPC past a terminator the way the
// flagged source does.
func (t *Translator) terminate(term armir.Terminator) {
	t.b.SetTerm(term)
	t.stop = true
}

func (t *Translator) nextLocation(pc uint32) armir.Location {
	l := t.loc
	l.PC = pc
	return l
}

// AlignPC implements spec §4.3's AlignPC(4): "(current_guest_pc + 4) & ~3",
// modelling ARM's PC-reads-ahead-by-8 (for ARM) / +4 (for Thumb) when
// computing PC-relative effective addresses.
func (t *Translator) AlignPC(pcBias uint32) uint32 {
	return (t.currentPC + pcBias) &^ 3
}

// evaluateCondition lowers a 4-bit ARM condition code into flag-get/compare
// IR ahead of a conditional instruction's semantic IR (SPEC_FULL.md §4,
// "Condition-code evaluation"). When cond is AL (0b1110), it returns the
// zero Value and ok=false: the overwhelmingly common case, not worth
// spending IR instructions on.
func (t *Translator) evaluateCondition(cond uint8) (v armir.Value, ok bool) {
	const condAL = 0b1110
	if cond == condAL {
		return armir.Value{}, false
	}
	n, z, c, ov := t.b.GetNFlag(), t.b.GetZFlag(), t.b.GetCFlag(), t.b.GetVFlag()
	switch cond {
	case 0b0000: // EQ
		return z, true
	case 0b0001: // NE
		return t.b.Not(z), true
	case 0b0010: // CS/HS
		return c, true
	case 0b0011: // CC/LO
		return t.b.Not(c), true
	case 0b0100: // MI
		return n, true
	case 0b0101: // PL
		return t.b.Not(n), true
	case 0b0110: // VS
		return ov, true
	case 0b0111: // VC
		return t.b.Not(ov), true
	case 0b1010: // GE: N==V
		return t.b.Not(t.b.Xor(n, ov)), true
	case 0b1011: // LT: N!=V
		return t.b.Xor(n, ov), true
	default:
		// HI/LS/GT/LE and reserved patterns: not modelled by this
		// translator; fall back to interpretation rather than emit
		// incorrect IR (spec §4.2's unpredictable-encoding discipline
		// applies equally to under-specified conditions).
		return armir.Value{}, false
	}
}
