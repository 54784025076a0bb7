package provenance

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_DifferentThan(t *testing.T) {
	withSize := func(size string) *Record {
		return New("", time.Time{}, map[string]string{"content-length": size})
	}

	tests := []struct {
		name      string
		a, b      *Record
		different bool
	}{
		{
			name:      "equal sizes",
			a:         withSize("1000"),
			b:         withSize("1000"),
			different: false,
		},
		{
			name:      "unequal sizes",
			a:         withSize("1000"),
			b:         withSize("1001"),
			different: true,
		},
		{
			name:      "left side has no headers",
			a:         New("", time.Time{}, nil),
			b:         withSize("1000"),
			different: true,
		},
		{
			name:      "right side has no headers",
			a:         withSize("1000"),
			b:         New("", time.Time{}, nil),
			different: true,
		},
		{
			name:      "both sides have no headers",
			a:         New("", time.Time{}, nil),
			b:         New("", time.Time{}, nil),
			different: true,
		},
		{
			name:      "unparseable content length",
			a:         withSize("not-a-number"),
			b:         withSize("1000"),
			different: true,
		},
		{
			name:      "headers without content length",
			a:         New("", time.Time{}, map[string]string{"accept-ranges": "bytes"}),
			b:         withSize("1000"),
			different: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.different, tt.a.DifferentThan(tt.b))
		})
	}
}

func TestRecord_HeaderNormalization(t *testing.T) {
	rec := New("file.csv", time.Time{}, map[string]string{"Content-Length": "42"})

	size, ok := rec.Size()
	require.True(t, ok)
	assert.Equal(t, int64(42), size)
}

func TestRecord_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.saved-data.json")

	date := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := New("010121COVID19MEXICO.csv", date, map[string]string{
		"Content-Length": "123456",
		"Accept-Ranges":  "bytes",
	})
	require.NoError(t, rec.Save(path))

	loaded, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "010121COVID19MEXICO.csv", loaded.SourceFileName)
	assert.True(t, date.Equal(loaded.SourceDate))
	assert.Equal(t, "123456", loaded.HTTPHeaders["content-length"])
	assert.False(t, loaded.DifferentThan(rec))
}

func TestRecord_SaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	first := New("a.csv", time.Time{}, map[string]string{"content-length": "1"})
	require.NoError(t, first.Save(path))

	second := New("b.csv", time.Time{}, map[string]string{"content-length": "2"})
	require.NoError(t, second.Save(path))

	loaded, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b.csv", loaded.SourceFileName)

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFromFile_Missing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFromFile_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{not json"},
		{"bad date", `{"source_file_name":"x.csv","source_data_date":"01/01/2021"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := FromFile(path)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestRecord_SaveOmitsEmptyDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.json")
	rec := New("", time.Time{}, map[string]string{"content-length": "9"})
	require.NoError(t, rec.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "source_data_date")
}
