// Package zlog adapts the teacher's hooks.SlogLogger wrapper
// (hooks/hooks.go) to structured logging over log/slog, replacing the
// original zimg implementation's printf-style LOG_PRINT calls. The
// dispatcher logs failures only, as one Error call carrying the operation
// name and the error; successful requests are not logged, and no remote
// address, fingerprint, or transform params are attached.
package zlog

import (
	"log/slog"
	"os"
)

// Logger is the minimal structured logging interface threaded explicitly
// into the dispatcher and worker pool — never a package-level global,
// per the teacher's own SlogLogger/core.Logger split.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// SlogLogger wraps a *slog.Logger to satisfy Logger.
type SlogLogger struct {
	l *slog.Logger
}

// New wraps l. A nil l gets a default JSON logger over stderr, matching
// the teacher's examples/main.go construction style.
func New(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(msg string, fields ...any) { s.l.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...any)  { s.l.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...any)  { s.l.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...any) { s.l.Error(msg, fields...) }
