package armir

// Vector floating-point opcodes, parameterized by ElemWidth (16/32/64) and
// VecOp, per spec §4.1's "Vector family (see §4.5)" and §4.6's dispatch
// policy (fast/accurate/fallback path, chosen later by internal/compiler,
// not here — the IR only records what operation was requested).

// VectorFPBinary emits a lanewise binary op (add/sub/mul/div) over two
// 128-bit vector operands with the given per-lane element width.
func (b *Builder) VectorFPBinary(op VecOp, elemWidth Width, a, bb Value) Value {
	assert(elemWidth == Width16 || elemWidth == Width32 || elemWidth == Width64, "bad vector element width: %d", elemWidth)
	return b.emit(Instruction{
		Kind: KindVectorFPBinary, Args: b.args(a, bb), NumArgs: 2,
		ElemWidth: elemWidth, VecOp: op, HasResult: true, ResultWidth: Width128,
	})
}

// VectorFPUnary emits a lanewise unary op (sqrt) over a 128-bit operand.
func (b *Builder) VectorFPUnary(op VecOp, elemWidth Width, a Value) Value {
	return b.emit(Instruction{
		Kind: KindVectorFPUnary, Args: b.args(a), NumArgs: 1,
		ElemWidth: elemWidth, VecOp: op, HasResult: true, ResultWidth: Width128,
	})
}

// VectorFPMinMax emits ARM-semantics (signed-zero-aware) lanewise min/max.
func (b *Builder) VectorFPMinMax(op VecOp, elemWidth Width, a, bb Value) Value {
	assert(op == VecOpMax || op == VecOpMin, "VectorFPMinMax requires VecOpMax or VecOpMin")
	return b.emit(Instruction{
		Kind: KindVectorFPMinMax, Args: b.args(a, bb), NumArgs: 2,
		ElemWidth: elemWidth, VecOp: op, HasResult: true, ResultWidth: Width128,
	})
}

// VectorFPFMA emits a fused multiply-add/subtract: acc + a*b (or acc - a*b).
func (b *Builder) VectorFPFMA(op VecOp, elemWidth Width, acc, a, bb Value) Value {
	assert(op == VecOpFMA || op == VecOpFMS, "VectorFPFMA requires VecOpFMA or VecOpFMS")
	return b.emit(Instruction{
		Kind: KindVectorFPFMA, Args: b.args(acc, a, bb), NumArgs: 3,
		ElemWidth: elemWidth, VecOp: op, HasResult: true, ResultWidth: Width128,
	})
}

// VectorFPToFixed converts a floating-point vector to fixed-point, scaling
// by 2^fbits and rounding per mode. signed selects the target's signedness.
func (b *Builder) VectorFPToFixed(elemWidth Width, a Value, fbits byte, signed bool, round Rounding) Value {
	assert(int(fbits) < int(elemWidth), "fbits %d out of range for %d-bit element", fbits, elemWidth)
	return b.emit(Instruction{
		Kind: KindVectorFPToFixed, Args: b.args(a), NumArgs: 1,
		ElemWidth: elemWidth, FBits: fbits, Signed: signed, Round: round,
		HasResult: true, ResultWidth: Width128,
	})
}

// VectorIntToFP converts a fixed/integer vector to floating point.
func (b *Builder) VectorIntToFP(elemWidth Width, a Value, fbits byte, signed bool, round Rounding) Value {
	return b.emit(Instruction{
		Kind: KindVectorIntToFP, Args: b.args(a), NumArgs: 1,
		ElemWidth: elemWidth, FBits: fbits, Signed: signed, Round: round,
		HasResult: true, ResultWidth: Width128,
	})
}

// ImmVector materializes a 128-bit literal, e.g. the default-NaN pattern or
// a saturation limit broadcast across lanes.
func (b *Builder) ImmVector(lo, hi uint64) Value {
	return b.emit(Instruction{Kind: KindImmVector, Imm: lo, ImmHi: hi, HasResult: true, ResultWidth: Width128})
}
