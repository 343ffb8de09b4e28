package amd64

import (
	"encoding/binary"
	"fmt"

	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/Annomatg/dynarmic/internal/asm"
	"github.com/Annomatg/dynarmic/internal/asm/golang_asm"
)

// assemblerGoAsmImpl is the sole x86-64 encoder backend: every Compile*
// method here builds a golang-asm obj.Prog and defers the actual byte
// encoding to goasm.Builder.Assemble, which is the external collaborator
// spec.md §1 calls "the x86 instruction encoder".
type assemblerGoAsmImpl struct {
	*golang_asm.GolangAsmBaseAssembler
	pool *asm.StaticConstPool
}

var _ Assembler = (*assemblerGoAsmImpl)(nil)

// NewAssembler constructs the amd64 encoder backend.
func NewAssembler() (Assembler, error) {
	b, err := golang_asm.NewGolangAsmBaseAssembler("amd64")
	if err != nil {
		return nil, fmt.Errorf("creating amd64 assembler: %w", err)
	}
	return &assemblerGoAsmImpl{GolangAsmBaseAssembler: b, pool: asm.NewStaticConstPool()}, nil
}

func (a *assemblerGoAsmImpl) newProg() *obj.Prog {
	return a.NewProg()
}

func (a *assemblerGoAsmImpl) add(p *obj.Prog) asm.Node {
	a.AddInstruction(p)
	return golang_asm.NewGolangAsmNode(p)
}

func (a *assemblerGoAsmImpl) CompileStandAlone(instruction asm.Instruction) asm.Node {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[instruction]
	return a.add(p)
}

func (a *assemblerGoAsmImpl) CompileConstToRegister(instruction asm.Instruction, value asm.ConstantValue, register asm.Register) asm.Node {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[instruction]
	p.From.Type = obj.TYPE_CONST
	p.From.Offset = value
	p.To.Type = obj.TYPE_REG
	p.To.Reg = int16(register)
	return a.add(p)
}

func (a *assemblerGoAsmImpl) CompileRegisterToRegister(instruction asm.Instruction, from, to asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[instruction]
	p.From.Type = obj.TYPE_REG
	p.From.Reg = int16(from)
	p.To.Type = obj.TYPE_REG
	p.To.Reg = int16(to)
	a.add(p)
}

func (a *assemblerGoAsmImpl) CompileMemoryToRegister(instruction asm.Instruction, srcBaseReg asm.Register, srcOffsetConst int64, dstReg asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[instruction]
	p.From.Type = obj.TYPE_MEM
	p.From.Reg = int16(srcBaseReg)
	p.From.Offset = srcOffsetConst
	p.To.Type = obj.TYPE_REG
	p.To.Reg = int16(dstReg)
	a.add(p)
}

func (a *assemblerGoAsmImpl) CompileRegisterToMemory(instruction asm.Instruction, srcReg asm.Register, dstBaseReg asm.Register, dstOffsetConst int64) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[instruction]
	p.From.Type = obj.TYPE_REG
	p.From.Reg = int16(srcReg)
	p.To.Type = obj.TYPE_MEM
	p.To.Reg = int16(dstBaseReg)
	p.To.Offset = dstOffsetConst
	a.add(p)
}

func (a *assemblerGoAsmImpl) CompileJump(jmpInstruction asm.Instruction) asm.Node {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[jmpInstruction]
	p.To.Type = obj.TYPE_BRANCH
	return a.add(p)
}

func (a *assemblerGoAsmImpl) CompileJumpToRegister(jmpInstruction asm.Instruction, reg asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[jmpInstruction]
	p.To.Type = obj.TYPE_REG
	p.To.Reg = int16(reg)
	a.add(p)
}

// CompileReadStaticConstToRegister loads a pooled constant's address into
// register via a RIP-relative LEA, following the same placeholder-register
// hack the teacher uses for CompileReadInstructionAddress: golang-asm cannot
// directly emit "LEAQ sym(SB), reg" against a constant blob we haven't laid
// out yet, so we emit "LEAQ [BP+0xffff]" and patch the real RIP offset once
// the constant pool's final position is known.
func (a *assemblerGoAsmImpl) CompileReadStaticConstToRegister(instruction asm.Instruction, c *asm.StaticConst, register asm.Register) asm.Node {
	p := a.newProg()
	p.As = x86.ALEAQ
	p.To.Type = obj.TYPE_REG
	p.To.Reg = int16(register)
	p.From.Type = obj.TYPE_MEM
	p.From.Offset = 0xffff
	p.From.Reg = x86.REG_BP
	a.add(p)

	a.pool.AddConst(c, 0)
	c.AddOffsetFinalizedCallback(func(offsetOfConstInBinary uint64) {
		a.AddOnGenerateCallBack(func(code []byte) error {
			offset := uint32(offsetOfConstInBinary) - uint32(p.Pc) - 7
			binary.LittleEndian.PutUint32(code[p.Pc+3:], offset)
			code[p.Pc+2] &= 0b01111111
			return nil
		})
	})
	return golang_asm.NewGolangAsmNode(p)
}

func (a *assemblerGoAsmImpl) CompileRegisterToRegisterWithMode(instruction asm.Instruction, from, to asm.Register, mode Mode) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[instruction]
	p.From.Type = obj.TYPE_REG
	p.From.Reg = int16(from)
	p.To.Type = obj.TYPE_REG
	p.To.Reg = int16(to)
	p.RestArgs = append(p.RestArgs, obj.Addr{Type: obj.TYPE_CONST, Offset: int64(mode)})
	a.add(p)
}

func (a *assemblerGoAsmImpl) CompileRegisterToRegisterWithArg(instruction asm.Instruction, from, to asm.Register, arg byte) {
	a.CompileRegisterToRegisterWithMode(instruction, from, to, arg)
}

func (a *assemblerGoAsmImpl) CompileThreeRegisters(instruction asm.Instruction, src1, src2, mask, dst asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[instruction]
	p.From.Type = obj.TYPE_REG
	p.From.Reg = int16(src1)
	p.To.Type = obj.TYPE_REG
	p.To.Reg = int16(dst)
	p.RestArgs = append(p.RestArgs,
		obj.Addr{Type: obj.TYPE_REG, Reg: int16(src2)},
		obj.Addr{Type: obj.TYPE_REG, Reg: int16(mask)},
	)
	a.add(p)
}

func (a *assemblerGoAsmImpl) CompileRegisterToConst(instruction asm.Instruction, srcRegister asm.Register, value int64) asm.Node {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[instruction]
	p.From.Type = obj.TYPE_REG
	p.From.Reg = int16(srcRegister)
	p.To.Type = obj.TYPE_CONST
	p.To.Offset = value
	return a.add(p)
}

func (a *assemblerGoAsmImpl) CompileRegisterToNone(instruction asm.Instruction, register asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[instruction]
	p.From.Type = obj.TYPE_REG
	p.From.Reg = int16(register)
	p.To.Type = obj.TYPE_NONE
	a.add(p)
}

func (a *assemblerGoAsmImpl) CompileNoneToRegister(instruction asm.Instruction, register asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[instruction]
	p.To.Type = obj.TYPE_REG
	p.To.Reg = int16(register)
	p.From.Type = obj.TYPE_NONE
	a.add(p)
}

func (a *assemblerGoAsmImpl) CompileLoadStaticConstToRegister(instruction asm.Instruction, c *asm.StaticConst, register asm.Register) asm.Node {
	return a.CompileReadStaticConstToRegister(instruction, c, register)
}

func (a *assemblerGoAsmImpl) CompileCallFunctionAddress(target asm.Register) asm.Node {
	p := a.newProg()
	p.As = obj.ACALL
	p.To.Type = obj.TYPE_REG
	p.To.Reg = int16(target)
	return a.add(p)
}

// castAsGolangAsmInstruction maps every asm.Instruction this package defines
// to its golang-asm (cmd/internal/obj/x86-derived) opcode. Naming follows
// the Go assembler (https://go.dev/doc/asm) by construction, since consts.go
// named these constants after exactly that convention.
var castAsGolangAsmInstruction = map[asm.Instruction]obj.As{
	NOP: obj.ANOP,
	RET: obj.ARET,

	ADDL: x86.AADDL, ADDQ: x86.AADDQ,
	SUBL: x86.ASUBL, SUBQ: x86.ASUBQ,
	ANDL: x86.AANDL, ANDQ: x86.AANDQ,
	ORL: x86.AORL, ORQ: x86.AORQ,
	XORL: x86.AXORL, XORQ: x86.AXORQ,
	NOTL: x86.ANOTL, NOTQ: x86.ANOTQ,
	NEGL: x86.ANEGL, NEGQ: x86.ANEGQ,
	IMULL: x86.AIMULL, IMULQ: x86.AIMULQ,
	MULL: x86.AMULL, MULQ: x86.AMULQ,
	DIVL: x86.ADIVL, DIVQ: x86.ADIVQ,
	IDIVL: x86.AIDIVL, IDIVQ: x86.AIDIVQ,
	CDQ: x86.ACDQ, CQO: x86.ACQO,
	SHLL: x86.ASHLL, SHLQ: x86.ASHLQ,
	SHRL: x86.ASHRL, SHRQ: x86.ASHRQ,
	SARL: x86.ASARL, SARQ: x86.ASARQ,
	ROLL: x86.AROLL, ROLQ: x86.AROLQ,
	RORL: x86.ARORL, RORQ: x86.ARORQ,
	BSFL: x86.ABSFL, BSFQ: x86.ABSFQ,
	BSRL: x86.ABSRL, BSRQ: x86.ABSRQ,
	LZCNTL: x86.ALZCNTL, LZCNTQ: x86.ALZCNTQ,
	TZCNTL: x86.ATZCNTL, TZCNTQ: x86.ATZCNTQ,
	POPCNTL: x86.APOPCNTL, POPCNTQ: x86.APOPCNTQ,
	BSWAPL: x86.ABSWAPL, BSWAPQ: x86.ABSWAPQ,
	ADCL: x86.AADCL, ADCQ: x86.AADCQ,
	SBBL: x86.ASBBL, SBBQ: x86.ASBBQ,
	CMPL: x86.ACMPL, CMPQ: x86.ACMPQ,
	TESTL: x86.ATESTL, TESTQ: x86.ATESTQ,
	INCQ: x86.AINCQ, DECQ: x86.ADECQ,
	LEAQ: x86.ALEAQ,

	MOVB: x86.AMOVB, MOVW: x86.AMOVW, MOVL: x86.AMOVL, MOVQ: x86.AMOVQ,
	MOVBLSX: x86.AMOVBLSX, MOVBLZX: x86.AMOVBLZX,
	MOVBQSX: x86.AMOVBQSX, MOVBQZX: x86.AMOVBQZX,
	MOVWLSX: x86.AMOVWLSX, MOVWLZX: x86.AMOVWLZX,
	MOVWQSX: x86.AMOVWQSX, MOVWQZX: x86.AMOVWQZX,
	MOVLQSX: x86.AMOVLQSX, MOVLQZX: x86.AMOVLQZX,
	CMOVQCS: x86.ACMOVQCS,

	SETEQ: x86.ASETEQ, SETNE: x86.ASETNE,
	SETMI: x86.ASETMI, SETPL: x86.ASETPL,
	SETGT: x86.ASETGT, SETGE: x86.ASETGE,
	SETLT: x86.ASETLT, SETLE: x86.ASETLE,
	SETHI: x86.ASETHI, SETCC: x86.ASETCC,
	SETLS: x86.ASETLS, SETCS: x86.ASETCS,
	SETOF: x86.ASETOS,

	JMP: obj.AJMP,
	JEQ: x86.AJEQ, JNE: x86.AJNE,
	JMI: x86.AJMI, JPL: x86.AJPL,
	JGT: x86.AJGT, JGE: x86.AJGE,
	JLT: x86.AJLT, JLE: x86.AJLE,
	JHI: x86.AJHI, JCC: x86.AJCC,
	JLS: x86.AJLS, JCS: x86.AJCS,

	MOVSS: x86.AMOVSS, MOVSD: x86.AMOVSD,
	ADDSS: x86.AADDSS, ADDSD: x86.AADDSD,
	SUBSS: x86.ASUBSS, SUBSD: x86.ASUBSD,
	MULSS: x86.AMULSS, MULSD: x86.AMULSD,
	DIVSS: x86.ADIVSS, DIVSD: x86.ADIVSD,
	SQRTSS: x86.ASQRTSS, SQRTSD: x86.ASQRTSD,
	MAXSS: x86.AMAXSS, MAXSD: x86.AMAXSD,
	MINSS: x86.AMINSS, MINSD: x86.AMINSD,
	COMISS: x86.ACOMISS, COMISD: x86.ACOMISD,
	UCOMISS: x86.AUCOMISS, UCOMISD: x86.AUCOMISD,
	CVTSS2SD: x86.ACVTSS2SD, CVTSD2SS: x86.ACVTSD2SS,
	CVTSL2SS: x86.ACVTSL2SS, CVTSL2SD: x86.ACVTSL2SD,
	CVTSQ2SS: x86.ACVTSQ2SS, CVTSQ2SD: x86.ACVTSQ2SD,
	CVTTSS2SL: x86.ACVTTSS2SL, CVTTSS2SQ: x86.ACVTTSS2SQ,
	CVTTSD2SL: x86.ACVTTSD2SL, CVTTSD2SQ: x86.ACVTTSD2SQ,
	ROUNDSS: x86.AROUNDSS, ROUNDSD: x86.AROUNDSD,

	MOVUPS: x86.AMOVUPS, MOVUPD: x86.AMOVUPD,
	MOVDQU: x86.AMOVOU, MOVDQA: x86.AMOVO,
	MOVQXMM: x86.AMOVQ,
	PINSRQ:  x86.APINSRQ, PEXTRQ: x86.APEXTRQ,
	PINSRD: x86.APINSRD, PEXTRD: x86.APEXTRD,
	PSHUFD: x86.APSHUFD, PSHUFB: x86.APSHUFB,
	PUNPCKLQDQ:   x86.APUNPCKLQDQ,
	VPBROADCASTD: x86.AVPBROADCASTD,
	VPBROADCASTQ: x86.AVPBROADCASTQ,

	PADDB: x86.APADDB, PADDW: x86.APADDW, PADDL: x86.APADDL, PADDQ: x86.APADDQ,
	PSUBB: x86.APSUBB, PSUBW: x86.APSUBW, PSUBL: x86.APSUBL, PSUBQ: x86.APSUBQ,
	PMULLW: x86.APMULLW, PMULLD: x86.APMULLD,
	PAND: x86.APAND, PANDN: x86.APANDN, POR: x86.APOR, PXOR: x86.APXOR,
	PCMPEQB: x86.APCMPEQB, PCMPEQW: x86.APCMPEQW,
	PCMPEQL: x86.APCMPEQL, PCMPEQQ: x86.APCMPEQQ,
	PSLLD: x86.APSLLL, PSLLQ: x86.APSLLQ,
	PSRLD: x86.APSRLL, PSRLQ: x86.APSRLQ,
	PSRAD:    x86.APSRAL,
	PMOVMSKB: x86.APMOVMSKB,

	ADDPS: x86.AADDPS, ADDPD: x86.AADDPD,
	SUBPS: x86.ASUBPS, SUBPD: x86.ASUBPD,
	MULPS: x86.AMULPS, MULPD: x86.AMULPD,
	DIVPS: x86.ADIVPS, DIVPD: x86.ADIVPD,
	SQRTPS: x86.ASQRTPS, SQRTPD: x86.ASQRTPD,
	MAXPS: x86.AMAXPS, MAXPD: x86.AMAXPD,
	MINPS: x86.AMINPS, MINPD: x86.AMINPD,
	ANDPS: x86.AANDPS, ANDPD: x86.AANDPD,
	ANDNPS: x86.AANDNPS, ANDNPD: x86.AANDNPD,
	ORPS: x86.AORPS, ORPD: x86.AORPD,
	XORPS: x86.AXORPS, XORPD: x86.AXORPD,
	CMPPS: x86.ACMPPS, CMPPD: x86.ACMPPD,
	BLENDVPS: x86.ABLENDVPS, BLENDVPD: x86.ABLENDVPD,
	VBLENDVPS: x86.AVBLENDVPS, VBLENDVPD: x86.AVBLENDVPD,
	ROUNDPS: x86.AROUNDPS, ROUNDPD: x86.AROUNDPD,
	CVTPS2PD: x86.ACVTPS2PD, CVTPD2PS: x86.ACVTPD2PS,
	CVTDQ2PS: x86.ACVTPL2PS, CVTPS2DQ: x86.ACVTPS2PL,
	CVTTPS2DQ: x86.ACVTTPS2PL,
	CVTDQ2PD:  x86.ACVTPL2PD, CVTPD2DQ: x86.ACVTPD2PL,
	CVTTPD2DQ: x86.ACVTTPD2PL,

	VFMADD213PS: x86.AVFMADD213PS, VFMADD213PD: x86.AVFMADD213PD,

	CALL: obj.ACALL, PUSHQ: x86.APUSHQ, POPQ: x86.APOPQ,
}
