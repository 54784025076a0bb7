// Package testutil holds helpers shared by the package test suites.
package testutil

import (
	"log/slog"
	"strings"
	"testing"
)

// NewTestLogger returns a debug-level slog.Logger whose output lands in
// the test log, hidden unless the test fails or runs under -v.
func NewTestLogger(tb testing.TB) *slog.Logger {
	tb.Helper()
	return slog.New(slog.NewTextHandler(tlogWriter{tb}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// tlogWriter adapts testing.TB to io.Writer. The handler emits one line
// per write; the trailing newline is stripped so t.Log output is not
// double-spaced.
type tlogWriter struct {
	tb testing.TB
}

func (w tlogWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
