// Package stream reads the extracted cases CSV in bounded-size row
// batches. The authoritative database load bypasses this package and lets
// DuckDB ingest the CSV natively; the chunker exists for validating and
// inspecting the data without holding the whole file in memory. Both
// paths share the column table in internal/schema so they cannot diverge
// on layout or null handling.
package stream

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/covidmx-labs/covidsync/internal/schema"
)

// DefaultBatchSize is the number of rows per batch when the caller does
// not choose one.
const DefaultBatchSize = 32768

// timestampLayouts are the value shapes seen in the published CSV for the
// date columns. Time-of-day, when present, is discarded.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Batch is one bounded slice of transformed rows. Fields follow the order
// of schema.Columns.
type Batch struct {
	Rows [][]string
}

// Chunker produces successive Batches from a cases CSV. A Chunker is a
// single forward pass; to restart, open a new one.
type Chunker struct {
	file      *os.File
	reader    *csv.Reader
	batchSize int
	dateCols  []int
	deathCol  int
}

// Open validates the file header against the expected column layout and
// positions the chunker at the first data row.
func Open(path string, batchSize int) (*Chunker, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cases file: %w", err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(schema.Columns)

	header, err := reader.Read()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("reading cases header from %s: %w", path, err)
	}

	dateCols, deathCol, err := dateIndexes(header)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Chunker{
		file:      file,
		reader:    reader,
		batchSize: batchSize,
		dateCols:  dateCols,
		deathCol:  deathCol,
	}, nil
}

// Next returns the next batch of rows. At end of file it returns io.EOF;
// the final batch before that may hold fewer than batchSize rows.
func (c *Chunker) Next() (*Batch, error) {
	rows := make([][]string, 0, c.batchSize)
	for len(rows) < c.batchSize {
		record, err := c.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading cases row: %w", err)
		}
		if err := c.transform(record); err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	if len(rows) == 0 {
		return nil, io.EOF
	}
	return &Batch{Rows: rows}, nil
}

// Close releases the underlying file.
func (c *Chunker) Close() error {
	return c.file.Close()
}

// transform rewrites the date columns in place: values are truncated to
// calendar-date precision, and the death-date sentinel becomes an empty
// value instead of a parse attempt.
func (c *Chunker) transform(record []string) error {
	for _, idx := range c.dateCols {
		raw := record[idx]
		if raw == "" {
			continue
		}
		if idx == c.deathCol && raw == schema.DeathDateSentinel {
			record[idx] = ""
			continue
		}
		date, err := parseDate(raw)
		if err != nil {
			return fmt.Errorf("row with %s=%q: %w", schema.Columns[idx].Name, raw, err)
		}
		record[idx] = date.Format("2006-01-02")
	}
	return nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date value %q", raw)
}

// dateIndexes resolves the positions of the date columns in the header,
// which must match the fixed schema layout.
func dateIndexes(header []string) (dateCols []int, deathCol int, err error) {
	position := make(map[string]int, len(header))
	for i, name := range header {
		position[name] = i
	}

	for i, col := range schema.Columns {
		idx, ok := position[col.Name]
		if !ok || idx != i {
			return nil, 0, fmt.Errorf("header does not match cases layout at column %s", col.Name)
		}
	}

	deathCol = -1
	for _, name := range schema.DateColumns {
		idx := position[name]
		dateCols = append(dateCols, idx)
		if name == schema.FechaDef {
			deathCol = idx
		}
	}
	return dateCols, deathCol, nil
}
