package armdecode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/arch/arm/armasm"
)

// TestArmTableEntriesDecodeAsRealARM cross-checks every armTable entry's
// (mask, value) against the reference ARM disassembler: a synthesized word
// built from an entry's Value (condition field forced to AL, all other
// don't-care bits left zero) must decode as a real ARM32 instruction, not
// as something the reference decoder rejects. This doesn't assert the
// resulting mnemonic matches the entry's Name — that would require modelling
// armasm's own opcode table — only that the table's bit patterns identify a
// real ARM32 encoding rather than an unused/unpredictable one.
func TestArmTableEntriesDecodeAsRealARM(t *testing.T) {
	const condAL = 0xE
	for _, e := range armTable {
		word := e.Value | (condAL << 28)
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, word)

		_, err := armasm.Decode(buf, armasm.ModeARM)
		require.NoError(t, err, "table entry %q (mask=%#x value=%#x) did not decode as a real ARM32 instruction: %#08x", e.Name, e.Mask, e.Value, word)
	}
}
