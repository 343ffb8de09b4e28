package armlog

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscardDropsRecords(t *testing.T) {
	l := Discard()
	require.NotPanics(t, func() {
		l.Debug("should not appear", FieldGuestPC, uint32(0x1000))
		l.Warn("neither should this")
	})
}

func TestWithAddsFields(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	l := New(w, slog.LevelDebug).With(FieldISA, "thumb")
	l.Debug("translating", FieldGuestPC, uint32(0x2000))
	w.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "isa=thumb")
	require.Contains(t, out, "guest_pc=8192")
	require.Contains(t, out, "translating")
}
