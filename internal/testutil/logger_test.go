package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTB struct {
	testing.TB
	lines []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Log(args ...any) {
	for _, arg := range args {
		r.lines = append(r.lines, arg.(string))
	}
}

func TestNewTestLogger(t *testing.T) {
	rec := &recordingTB{TB: t}

	logger := NewTestLogger(rec)
	logger.Debug("probing remote source", "url", "http://example.test")

	require.Len(t, rec.lines, 1)
	assert.Contains(t, rec.lines[0], "probing remote source")
	assert.NotContains(t, rec.lines[0], "\n")
}
