package armir

// Builder accumulates instructions into a single in-progress Block. One
// method per opcode, each returning the Value handle for its result (or the
// zero Value for side-effect-only opcodes), following spec.md §4.1: "The
// builder exposes one method per opcode ... It appends an instruction to
// the current block and records operand types."
type Builder struct {
	block *Block
}

// NewBuilder starts building a fresh block at start.
func NewBuilder(start Location) *Builder {
	return &Builder{block: &Block{Start: start}}
}

// Block returns the block under construction. Valid to call at any point;
// the terminator is absent until SetTerm (or a PC-writing visitor) is called.
func (b *Builder) Block() *Block { return b.block }

// emit appends inst, returning a RefValue pointing at it when it defines a
// result, or the zero Value otherwise.
func (b *Builder) emit(inst Instruction) Value {
	idx := len(b.block.Instructions)
	b.block.Instructions = append(b.block.Instructions, inst)
	if inst.HasResult {
		return RefValue(idx, inst.ResultWidth)
	}
	return Value{}
}

// use records that v is consumed by a newly emitted instruction, incrementing
// its def's use-count when v is a reference (immediates have no use-count).
func (b *Builder) use(v Value) {
	if !v.IsImm() {
		b.block.Instructions[v.RefIndex()].Uses++
	}
}

func (b *Builder) args(vs ...Value) [3]Value {
	assert(len(vs) <= 3, "opcode takes at most 3 operands, got %d", len(vs))
	var a [3]Value
	for i, v := range vs {
		b.use(v)
		a[i] = v
	}
	return a
}

// GetRegister reads guest register r (0..15; 15 is PC).
func (b *Builder) GetRegister(r int) Value {
	assert(r >= 0 && r <= 15, "register out of range: %d", r)
	return b.emit(Instruction{Kind: KindGetRegister, Register: r, HasResult: true, ResultWidth: Width32})
}

// SetRegister writes v to guest register r. The translator, not the
// builder, enforces write restrictions on r=15 (PC writes must go through
// ALUWritePC).
func (b *Builder) SetRegister(r int, v Value) {
	assert(r >= 0 && r <= 15, "register out of range: %d", r)
	assert(v.Width() == Width32, "SetRegister operand must be 32-bit, got %d", v.Width())
	b.emit(Instruction{Kind: KindSetRegister, Register: r, Args: b.args(v), NumArgs: 1})
}

func (b *Builder) flagGetter(k Kind) Value {
	return b.emit(Instruction{Kind: k, HasResult: true, ResultWidth: Width1})
}
func (b *Builder) flagSetter(k Kind, v Value) {
	assert(v.Width() == Width1, "flag set operand must be 1-bit, got %d", v.Width())
	b.emit(Instruction{Kind: k, Args: b.args(v), NumArgs: 1})
}

func (b *Builder) GetNFlag() Value    { return b.flagGetter(KindGetNFlag) }
func (b *Builder) SetNFlag(v Value)   { b.flagSetter(KindSetNFlag, v) }
func (b *Builder) GetZFlag() Value    { return b.flagGetter(KindGetZFlag) }
func (b *Builder) SetZFlag(v Value)   { b.flagSetter(KindSetZFlag, v) }
func (b *Builder) GetCFlag() Value    { return b.flagGetter(KindGetCFlag) }
func (b *Builder) SetCFlag(v Value)   { b.flagSetter(KindSetCFlag, v) }
func (b *Builder) GetVFlag() Value    { return b.flagGetter(KindGetVFlag) }
func (b *Builder) SetVFlag(v Value)   { b.flagSetter(KindSetVFlag, v) }

func (b *Builder) Imm1(v bool) Value {
	u := uint64(0)
	if v {
		u = 1
	}
	return b.emit(Instruction{Kind: KindImm1, Imm: u, HasResult: true, ResultWidth: Width1})
}
func (b *Builder) Imm8(v uint8) Value {
	return b.emit(Instruction{Kind: KindImm8, Imm: uint64(v), HasResult: true, ResultWidth: Width8})
}
func (b *Builder) Imm32(v uint32) Value {
	return b.emit(Instruction{Kind: KindImm32, Imm: uint64(v), HasResult: true, ResultWidth: Width32})
}
func (b *Builder) Imm64(v uint64) Value {
	return b.emit(Instruction{Kind: KindImm64, Imm: v, HasResult: true, ResultWidth: Width64})
}

// addSubWithCarryResult bundles the three-value result of Add/SubWithCarry;
// ExtractResult/Carry/Overflow pull out the individual fields as their own
// IR instructions, so the register allocator can skip computing the flags
// entirely when the caller never extracts Carry/Overflow.
type addSubWithCarryResult struct {
	b   *Builder
	def int
}

func (r addSubWithCarryResult) Result() Value {
	return r.b.emit(Instruction{Kind: KindExtractResult, Args: [3]Value{RefValue(r.def, Width32)}, NumArgs: 1, HasResult: true, ResultWidth: Width32})
}
func (r addSubWithCarryResult) Carry() Value {
	return r.b.emit(Instruction{Kind: KindExtractCarry, Args: [3]Value{RefValue(r.def, Width32)}, NumArgs: 1, HasResult: true, ResultWidth: Width1})
}
func (r addSubWithCarryResult) Overflow() Value {
	return r.b.emit(Instruction{Kind: KindExtractOverflow, Args: [3]Value{RefValue(r.def, Width32)}, NumArgs: 1, HasResult: true, ResultWidth: Width1})
}

// AddWithCarry computes a + b + cin, returning a handle from which Result,
// Carry, and Overflow can each be extracted independently.
func (b *Builder) AddWithCarry(a, bb, cin Value) addSubWithCarryResult {
	idx := len(b.block.Instructions)
	b.block.Instructions = append(b.block.Instructions, Instruction{
		Kind: KindAddWithCarry, Args: b.args(a, bb, cin), NumArgs: 3, HasResult: true, ResultWidth: Width32,
	})
	return addSubWithCarryResult{b: b, def: idx}
}

// SubWithCarry computes a - b by emitting a + ~b + cin; callers pass cin=1
// for a normal subtract per spec §4.3: "Carry-in for subtraction is 1."
func (b *Builder) SubWithCarry(a, bb, cin Value) addSubWithCarryResult {
	idx := len(b.block.Instructions)
	b.block.Instructions = append(b.block.Instructions, Instruction{
		Kind: KindSubWithCarry, Args: b.args(a, bb, cin), NumArgs: 3, HasResult: true, ResultWidth: Width32,
	})
	return addSubWithCarryResult{b: b, def: idx}
}

func (b *Builder) binLogic(k Kind, a, bb Value) Value {
	assert(a.Width() == bb.Width(), "logic op operand width mismatch: %d vs %d", a.Width(), bb.Width())
	return b.emit(Instruction{Kind: k, Args: b.args(a, bb), NumArgs: 2, HasResult: true, ResultWidth: a.Width()})
}

func (b *Builder) And(a, bb Value) Value { return b.binLogic(KindAnd, a, bb) }
func (b *Builder) Or(a, bb Value) Value  { return b.binLogic(KindOr, a, bb) }
func (b *Builder) Xor(a, bb Value) Value { return b.binLogic(KindXor, a, bb) }
func (b *Builder) Not(a Value) Value {
	return b.emit(Instruction{Kind: KindNot, Args: b.args(a), NumArgs: 1, HasResult: true, ResultWidth: a.Width()})
}

// shiftResult bundles {result, carry} from a shift/rotate opcode.
type shiftResult struct {
	b   *Builder
	def int
	w   Width
}

func (r shiftResult) Result() Value {
	return r.b.emit(Instruction{Kind: KindExtractResult, Args: [3]Value{RefValue(r.def, r.w)}, NumArgs: 1, HasResult: true, ResultWidth: r.w})
}
func (r shiftResult) Carry() Value {
	return r.b.emit(Instruction{Kind: KindExtractCarry, Args: [3]Value{RefValue(r.def, r.w)}, NumArgs: 1, HasResult: true, ResultWidth: Width1})
}

func (b *Builder) shift(k Kind, x, n, cin Value) shiftResult {
	idx := len(b.block.Instructions)
	b.block.Instructions = append(b.block.Instructions, Instruction{
		Kind: k, Args: b.args(x, n, cin), NumArgs: 3, HasResult: true, ResultWidth: x.Width(),
	})
	return shiftResult{b: b, def: idx, w: x.Width()}
}

// LogicalShiftLeft, LogicalShiftRight, ArithmeticShiftRight, and RotateRight
// all produce {result, carry}. Per spec §4.3, when n==0 encodes shift-by-32
// for LSR/ASR, the translator (not the builder) must substitute 32 before
// calling these.
func (b *Builder) LogicalShiftLeft(x, n, cin Value) shiftResult  { return b.shift(KindLogicalShiftLeft, x, n, cin) }
func (b *Builder) LogicalShiftRight(x, n, cin Value) shiftResult { return b.shift(KindLogicalShiftRight, x, n, cin) }
func (b *Builder) ArithmeticShiftRight(x, n, cin Value) shiftResult {
	return b.shift(KindArithmeticShiftRight, x, n, cin)
}
func (b *Builder) RotateRight(x, n, cin Value) shiftResult { return b.shift(KindRotateRight, x, n, cin) }

func (b *Builder) MostSignificantBit(x Value) Value {
	return b.emit(Instruction{Kind: KindMostSignificantBit, Args: b.args(x), NumArgs: 1, HasResult: true, ResultWidth: Width1})
}
func (b *Builder) IsZero(x Value) Value {
	return b.emit(Instruction{Kind: KindIsZero, Args: b.args(x), NumArgs: 1, HasResult: true, ResultWidth: Width1})
}
func (b *Builder) LeastSignificantByte(x Value) Value {
	return b.emit(Instruction{Kind: KindLeastSignificantByte, Args: b.args(x), NumArgs: 1, HasResult: true, ResultWidth: Width8})
}
func (b *Builder) LeastSignificantHalf(x Value) Value {
	return b.emit(Instruction{Kind: KindLeastSignificantHalf, Args: b.args(x), NumArgs: 1, HasResult: true, ResultWidth: Width16})
}

func (b *Builder) extend(k Kind, x Value, result Width) Value {
	return b.emit(Instruction{Kind: k, Args: b.args(x), NumArgs: 1, HasResult: true, ResultWidth: result})
}

func (b *Builder) SignExtend8(x Value) Value  { return b.extend(KindSignExtend8, x, Width32) }
func (b *Builder) SignExtend16(x Value) Value { return b.extend(KindSignExtend16, x, Width32) }
func (b *Builder) ZeroExtend8(x Value) Value  { return b.extend(KindZeroExtend8, x, Width32) }
func (b *Builder) ZeroExtend16(x Value) Value { return b.extend(KindZeroExtend16, x, Width32) }
func (b *Builder) ByteReverse16(x Value) Value { return b.extend(KindByteReverse16, x, Width16) }
func (b *Builder) ByteReverse32(x Value) Value { return b.extend(KindByteReverse32, x, Width32) }

func (b *Builder) readMemory(k Kind, addr Value, w Width) Value {
	return b.emit(Instruction{Kind: k, Args: b.args(addr), NumArgs: 1, HasResult: true, ResultWidth: w})
}

func (b *Builder) ReadMemory8(addr Value) Value  { return b.readMemory(KindReadMemory8, addr, Width8) }
func (b *Builder) ReadMemory16(addr Value) Value { return b.readMemory(KindReadMemory16, addr, Width16) }
func (b *Builder) ReadMemory32(addr Value) Value { return b.readMemory(KindReadMemory32, addr, Width32) }
func (b *Builder) ReadMemory64(addr Value) Value { return b.readMemory(KindReadMemory64, addr, Width64) }

func (b *Builder) writeMemory(k Kind, addr, data Value) {
	b.emit(Instruction{Kind: k, Args: b.args(addr, data), NumArgs: 2})
}

func (b *Builder) WriteMemory8(addr, data Value)  { b.writeMemory(KindWriteMemory8, addr, data) }
func (b *Builder) WriteMemory16(addr, data Value) { b.writeMemory(KindWriteMemory16, addr, data) }
func (b *Builder) WriteMemory32(addr, data Value) { b.writeMemory(KindWriteMemory32, addr, data) }
func (b *Builder) WriteMemory64(addr, data Value) { b.writeMemory(KindWriteMemory64, addr, data) }

// CallSupervisor emits a supervisor-call guest fault; per spec §7 this is
// data, not a host error.
func (b *Builder) CallSupervisor(imm uint32) {
	b.emit(Instruction{Kind: KindCallSupervisor, Imm: uint64(imm)})
}

// ALUWritePC is the only path through which an ALU result may reach the PC.
// Callers must follow it with SetTerm(TermReturnToDispatch) and stop
// translating the current block.
func (b *Builder) ALUWritePC(v Value) {
	assert(v.Width() == Width32, "ALUWritePC operand must be 32-bit")
	b.emit(Instruction{Kind: KindALUWritePC, Args: b.args(v), NumArgs: 1})
}

// SetTerm attaches t as the block's terminator. Must be called exactly once
// per block, as the final instruction.
func (b *Builder) SetTerm(t Terminator) {
	assert(b.block.Term.Kind == TermNone, "block already has a terminator")
	b.block.Term = t
}
