// Package armlog wraps log/slog with the handful of fields the translator
// actually needs to report: guest PC, ISA, opcode, and fallback
// reason. Grounded on the retrieval pack's go-ethereum-derived slog wrapper
// (jam-duna-jamduna/log), scaled down to this module's needs — a compiler is
// not a long-running service, so no syslog/legacy-level bridging is carried.
//
// Logging only happens during compilation (Debug/Warn, never the hot
// compiled-code path itself): internal/translate reports Interpret fallbacks
// and unpredictable encodings. internal/compiler does not log.
package armlog

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the narrow logging surface internal/translate depends on, so
// tests can substitute a recording logger
// without constructing a real slog.Handler.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New returns a Logger writing text-formatted records to w at minLevel.
func New(w *os.File, minLevel slog.Level) Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: minLevel})
	return &slogLogger{l: slog.New(h)}
}

// Discard returns a Logger that drops every record, used by default in
// tests and by embedders that don't want compiler diagnostics.
func Discard() Logger {
	return &slogLogger{l: slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Log(context.Background(), slog.LevelDebug, msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Log(context.Background(), slog.LevelWarn, msg, args...) }
func (s *slogLogger) With(args ...any) Logger       { return &slogLogger{l: s.l.With(args...)} }

// Fields used consistently across translator/compiler log calls, so grep
// for "guest_pc" finds every compilation-time diagnostic.
const (
	FieldGuestPC = "guest_pc"
	FieldISA     = "isa"
	FieldOpcode  = "opcode"
	FieldReason  = "reason"
)
