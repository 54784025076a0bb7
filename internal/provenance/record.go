// Package provenance tracks where a downloaded data file came from and
// whether the remote copy has been superseded. A Record is persisted as a
// small JSON sidecar next to the artifact it describes.
package provenance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrParse reports a sidecar file whose contents could not be decoded.
var ErrParse = fmt.Errorf("provenance: malformed record")

// Record describes the origin of one fetched resource. It is immutable
// once constructed.
type Record struct {
	// SourceFileName is the name of the extracted data file, when known.
	SourceFileName string

	// SourceDate is the as-of date derived from the file name. The zero
	// value means "unknown".
	SourceDate time.Time

	// HTTPHeaders holds the transfer headers observed when the resource
	// was probed or downloaded, keys lowercased. Nil when the record was
	// built from a local file with no transfer context.
	HTTPHeaders map[string]string
}

// New builds a Record, normalizing header keys to lowercase.
func New(fileName string, sourceDate time.Time, headers map[string]string) *Record {
	return &Record{
		SourceFileName: fileName,
		SourceDate:     sourceDate,
		HTTPHeaders:    normalizeHeaders(headers),
	}
}

// wireRecord is the sidecar JSON shape.
type wireRecord struct {
	SourceFileName string            `json:"source_file_name,omitempty"`
	SourceDataDate string            `json:"source_data_date,omitempty"`
	HTTPHeaders    map[string]string `json:"http_headers,omitempty"`
}

// FromFile loads a Record from a sidecar file. A missing file surfaces as
// an error satisfying errors.Is(err, fs.ErrNotExist).
func FromFile(path string) (*Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sidecar %s: %w", path, err)
	}

	var wire wireRecord
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding sidecar %s: %v", ErrParse, path, err)
	}

	var sourceDate time.Time
	if wire.SourceDataDate != "" {
		sourceDate, err = time.Parse("2006-01-02", wire.SourceDataDate)
		if err != nil {
			return nil, fmt.Errorf("%w: bad source_data_date in %s: %v", ErrParse, path, err)
		}
	}

	return New(wire.SourceFileName, sourceDate, wire.HTTPHeaders), nil
}

// Save writes the record to path. The write goes to a temporary file in the
// same directory which is then renamed over the destination, so a reader
// never observes a half-written sidecar.
func (r *Record) Save(path string) error {
	wire := wireRecord{
		SourceFileName: r.SourceFileName,
		HTTPHeaders:    r.HTTPHeaders,
	}
	if !r.SourceDate.IsZero() {
		wire.SourceDataDate = r.SourceDate.Format("2006-01-02")
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating sidecar temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing sidecar temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming sidecar into place: %w", err)
	}
	return nil
}

// Size returns the resource size parsed from the content-length header.
// The second return is false when headers are absent or carry no usable
// content-length.
func (r *Record) Size() (int64, bool) {
	if r == nil || r.HTTPHeaders == nil {
		return 0, false
	}
	raw, ok := r.HTTPHeaders["content-length"]
	if !ok {
		return 0, false
	}
	size, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return size, true
}

// DifferentThan reports whether the data behind the two records should be
// treated as different. The comparison is size-based and conservative:
// when either side lacks a resolvable size it returns true. A same-size
// republication with different content is therefore undetectable; that is
// a known limitation of the upstream feed, not something to paper over
// with content hashing here.
func (r *Record) DifferentThan(other *Record) bool {
	size, ok := r.Size()
	if !ok {
		return true
	}
	otherSize, ok := other.Size()
	if !ok {
		return true
	}
	return size != otherSize
}

func normalizeHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	normalized := make(map[string]string, len(headers))
	for k, v := range headers {
		normalized[strings.ToLower(k)] = v
	}
	return normalized
}
