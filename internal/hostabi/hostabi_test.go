package hostabi

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// TestOffsetConstantsMatchStructLayout guards the ABI contract the emitter's
// direct field-offset loads/stores depend on: if CPUState's field order ever
// changes, these constants must change with it.
func TestOffsetConstantsMatchStructLayout(t *testing.T) {
	var s CPUState

	require.Equal(t, OffsetRegs, int(unsafe.Offsetof(s.Regs)))
	require.Equal(t, OffsetVregs, int(unsafe.Offsetof(s.Vregs)))
	require.Equal(t, OffsetFlagN, int(unsafe.Offsetof(s.FlagN)))
	require.Equal(t, OffsetFlagZ, int(unsafe.Offsetof(s.FlagZ)))
	require.Equal(t, OffsetFlagC, int(unsafe.Offsetof(s.FlagC)))
	require.Equal(t, OffsetFlagV, int(unsafe.Offsetof(s.FlagV)))
}
