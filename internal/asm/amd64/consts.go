package amd64

import "github.com/Annomatg/dynarmic/internal/asm"

// Condition flags, named after the x86 condition codes they are tested on.
// https://www.lri.fr/~filliatr/ens/compil/x86-64.pdf
const (
	ConditionalRegisterStateE  = asm.ConditionalRegisterStateUnset + 1 + iota // ZF equal to zero
	ConditionalRegisterStateNE                                                // ZF not equal to zero
	ConditionalRegisterStateS                                                 // SF negative
	ConditionalRegisterStateNS                                                // SF non-negative
	ConditionalRegisterStateG                                                 // signed >
	ConditionalRegisterStateGE                                                // signed >=
	ConditionalRegisterStateL                                                 // signed <
	ConditionalRegisterStateLE                                                // signed <=
	ConditionalRegisterStateA                                                 // unsigned >
	ConditionalRegisterStateAE                                                // unsigned >=
	ConditionalRegisterStateB                                                 // unsigned <
	ConditionalRegisterStateBE                                                // unsigned <=
)

// Instructions, named exactly as the Go assembler names them
// (https://go.dev/doc/asm), since they are handed unmodified to
// github.com/twitchyliquid64/golang-asm.
//
// Only the subset the register allocator and vector-FP emitter (internal/compiler)
// actually issue is defined here; see spec.md §1 for why the encoder itself is
// out of scope.
const (
	NONE asm.Instruction = iota
	NOP
	RET

	// Integer arithmetic / logic.
	ADDL
	ADDQ
	SUBL
	SUBQ
	ANDL
	ANDQ
	ORL
	ORQ
	XORL
	XORQ
	NOTL
	NOTQ
	NEGL
	NEGQ
	IMULL
	IMULQ
	MULL
	MULQ
	DIVL
	DIVQ
	IDIVL
	IDIVQ
	CDQ
	CQO
	SHLL
	SHLQ
	SHRL
	SHRQ
	SARL
	SARQ
	ROLL
	ROLQ
	RORL
	RORQ
	BSFL
	BSFQ
	BSRL
	BSRQ
	LZCNTL
	LZCNTQ
	TZCNTL
	TZCNTQ
	POPCNTL
	POPCNTQ
	BSWAPL
	BSWAPQ
	ADCL
	ADCQ
	SBBL
	SBBQ
	CMPL
	CMPQ
	TESTL
	TESTQ
	INCQ
	DECQ
	LEAQ

	// Moves and extensions.
	MOVB
	MOVW
	MOVL
	MOVQ
	MOVBLSX
	MOVBLZX
	MOVBQSX
	MOVBQZX
	MOVWLSX
	MOVWLZX
	MOVWQSX
	MOVWQZX
	MOVLQSX
	MOVLQZX
	CMOVQCS

	// Conditional sets, one per ConditionalRegisterState above, plus SETOF.
	SETEQ
	SETNE
	SETMI
	SETPL
	SETGT
	SETGE
	SETLT
	SETLE
	SETHI
	SETCC
	SETLS
	SETCS
	SETOF

	// Jumps, one per ConditionalRegisterState above plus the unconditional JMP.
	JMP
	JEQ
	JNE
	JMI
	JPL
	JGT
	JGE
	JLT
	JLE
	JHI
	JCC
	JLS
	JCS

	// Scalar floating point (SSE2).
	MOVSS
	MOVSD
	ADDSS
	ADDSD
	SUBSS
	SUBSD
	MULSS
	MULSD
	DIVSS
	DIVSD
	SQRTSS
	SQRTSD
	MAXSS
	MAXSD
	MINSS
	MINSD
	COMISS
	COMISD
	UCOMISS
	UCOMISD
	CVTSS2SD
	CVTSD2SS
	CVTSL2SS
	CVTSL2SD
	CVTSQ2SS
	CVTSQ2SD
	CVTTSS2SL
	CVTTSS2SQ
	CVTTSD2SL
	CVTTSD2SQ
	ROUNDSS
	ROUNDSD

	// Vector moves.
	MOVUPS
	MOVUPD
	MOVDQU
	MOVDQA
	MOVQXMM
	PINSRQ
	PEXTRQ
	PINSRD
	PEXTRD
	PSHUFD
	PSHUFB
	PUNPCKLQDQ
	VPBROADCASTD
	VPBROADCASTQ

	// Vector integer.
	PADDB
	PADDW
	PADDL
	PADDQ
	PSUBB
	PSUBW
	PSUBL
	PSUBQ
	PMULLW
	PMULLD
	PAND
	PANDN
	POR
	PXOR
	PCMPEQB
	PCMPEQW
	PCMPEQL
	PCMPEQQ
	PSLLD
	PSLLQ
	PSRLD
	PSRLQ
	PSRAD
	PMOVMSKB

	// Vector float (packed, SSE2/AVX).
	ADDPS
	ADDPD
	SUBPS
	SUBPD
	MULPS
	MULPD
	DIVPS
	DIVPD
	SQRTPS
	SQRTPD
	MAXPS
	MAXPD
	MINPS
	MINPD
	ANDPS
	ANDPD
	ANDNPS
	ANDNPD
	ORPS
	ORPD
	XORPS
	XORPD
	CMPPS
	CMPPD
	BLENDVPS
	BLENDVPD
	VBLENDVPS
	VBLENDVPD
	ROUNDPS
	ROUNDPD
	CVTPS2PD
	CVTPD2PS
	CVTDQ2PS
	CVTPS2DQ
	CVTTPS2DQ
	CVTDQ2PD
	CVTPD2DQ
	CVTTPD2DQ

	// Fused multiply-add (requires CPUID FMA; emitted without a CPUID check).
	VFMADD213PS
	VFMADD213PD

	// Control-flow / call glue used by the register allocator's HostCall.
	CALL
	PUSHQ
	POPQ
)
