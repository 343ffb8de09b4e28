package amd64

import (
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/Annomatg/dynarmic/internal/asm"
)

// Reserved registers, following the teacher's reservedRegisterFor* convention
// (wasm/jit/jit_value_location_amd64.go) but rebound to this domain: R13
// holds the guest hostabi.CPUState pointer compiled code reads/writes
// register and flag fields through, R14 the base of this compilation's spill
// slot frame, and R15 the guest memory base used by ReadMemoryN/WriteMemoryN.
const (
	ReservedCPUState  = asm.Register(x86.REG_R13)
	ReservedSpillBase = asm.Register(x86.REG_R14)
	ReservedMemBase   = asm.Register(x86.REG_R15)
)

// Individually named GPRs, exported so the emitter can request a specific
// physical register where the ISA demands one (e.g. CL as a shift count).
const (
	RegAX  = asm.Register(x86.REG_AX)
	RegCX  = asm.Register(x86.REG_CX)
	RegDX  = asm.Register(x86.REG_DX)
	RegBX  = asm.Register(x86.REG_BX)
	RegSI  = asm.Register(x86.REG_SI)
	RegDI  = asm.Register(x86.REG_DI)
	RegR8  = asm.Register(x86.REG_R8)
	RegR9  = asm.Register(x86.REG_R9)
	RegR10 = asm.Register(x86.REG_R10)
	RegR11 = asm.Register(x86.REG_R11)
	RegR12 = asm.Register(x86.REG_R12)
)

// GeneralPurposeRegisters is the allocator's GPR pool: every addressable
// 64-bit integer register minus the three reserved above and SP and BP.
var GeneralPurposeRegisters = []asm.Register{
	RegAX, RegCX, RegDX, RegBX, RegSI, RegDI, RegR8, RegR9, RegR10, RegR11, RegR12,
}

// XMMRegisters is the allocator's vector/scalar-FP pool: all sixteen XMM
// registers (the teacher reserves none of these; this translator doesn't
// either, since guest VFP/NEON state lives in hostabi.CPUState, not pinned
// to a host XMM register across blocks).
var XMMRegisters = []asm.Register{
	asm.Register(x86.REG_X0), asm.Register(x86.REG_X1), asm.Register(x86.REG_X2), asm.Register(x86.REG_X3),
	asm.Register(x86.REG_X4), asm.Register(x86.REG_X5), asm.Register(x86.REG_X6), asm.Register(x86.REG_X7),
	asm.Register(x86.REG_X8), asm.Register(x86.REG_X9), asm.Register(x86.REG_X10), asm.Register(x86.REG_X11),
	asm.Register(x86.REG_X12), asm.Register(x86.REG_X13), asm.Register(x86.REG_X14), asm.Register(x86.REG_X15),
}
