// Package source retrieves the national COVID-19 open-data archives and
// prepares their contents for loading. It covers the metadata-only remote
// probe, the archive download, idempotent member extraction and the
// enumeration of exported catalog files.
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/covidmx-labs/covidsync/internal/provenance"
)

var (
	// ErrRemoteUnavailable reports a failed probe or download. There is no
	// retry anywhere in the pipeline; the error surfaces to the caller.
	ErrRemoteUnavailable = errors.New("source: remote unavailable")

	// ErrMalformedArchive reports a ZIP archive missing an expected member.
	ErrMalformedArchive = errors.New("source: malformed archive")
)

// Member name suffixes inside the published archives.
const (
	// DatasetSuffix identifies the single cases CSV inside the data archive.
	DatasetSuffix = "COVID19MEXICO.csv"

	// DescriptorsSuffix and CatalogsSuffix identify the two spreadsheet
	// members of the data-dictionary archive.
	DescriptorsSuffix = "Descriptores_.xlsx"
	CatalogsSuffix    = "Catalogos.xlsx"
)

// Layouts of the date prefixes the publisher embeds in member names. The
// fixed member suffix is stripped before parsing; it must never reach
// time.Parse, which would read its digits as layout specifiers.
const (
	datasetDateLayout     = "020106"
	descriptorsDateLayout = "060102"
)

// DatasetDate extracts the as-of date embedded in a cases file name such
// as 010121COVID19MEXICO.csv.
func DatasetDate(fileName string) (time.Time, error) {
	prefix, ok := strings.CutSuffix(fileName, DatasetSuffix)
	if !ok || len(prefix) != len(datasetDateLayout) {
		return time.Time{}, fmt.Errorf("%w: unexpected dataset file name %q",
			provenance.ErrParse, fileName)
	}
	date, err := time.Parse(datasetDateLayout, prefix)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unexpected dataset file name %q: %v",
			provenance.ErrParse, fileName, err)
	}
	return date, nil
}

// DescriptorsDate extracts the as-of date embedded in a descriptors member
// name such as "210411 Descriptores_.xlsx".
func DescriptorsDate(fileName string) (time.Time, error) {
	prefix, ok := strings.CutSuffix(fileName, " "+DescriptorsSuffix)
	if !ok || len(prefix) != len(descriptorsDateLayout) {
		return time.Time{}, fmt.Errorf("%w: unexpected descriptors file name %q",
			provenance.ErrParse, fileName)
	}
	date, err := time.Parse(descriptorsDateLayout, prefix)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unexpected descriptors file name %q: %v",
			provenance.ErrParse, fileName, err)
	}
	return date, nil
}

// DatasetRecord builds the provenance record describing an extracted cases
// file. Headers may be nil when the archive came from local storage.
func DatasetRecord(csvPath string, headers map[string]string) (*provenance.Record, error) {
	name := filepath.Base(csvPath)
	date, err := DatasetDate(name)
	if err != nil {
		return nil, err
	}
	return provenance.New(name, date, headers), nil
}

// Dataset is an extracted cases file together with its provenance.
type Dataset struct {
	Path string
	Info *provenance.Record
}

// Spec is the pair of data-dictionary spreadsheets extracted from the
// companion archive.
type Spec struct {
	DescriptorsPath string
	CatalogsPath    string
	Info            *provenance.Record
}

// Catalog is a named auxiliary reference table backed by a CSV file. Name
// doubles as the destination table identifier; catalog files are written
// upstream with alphanumeric stems precisely so the name needs no quoting.
type Catalog struct {
	Name string
	Path string
}

// Catalogs lists the CSV files in dir as (name, path) pairs, in directory
// order. The table name is the lowercased file stem with a trailing _cat
// marker stripped, so sexo_cat.csv becomes table sexo.
func Catalogs(dir string) ([]Catalog, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("listing catalogs in %s: %w", dir, err)
	}

	catalogs := make([]Catalog, 0, len(matches))
	for _, path := range matches {
		stem := strings.TrimSuffix(filepath.Base(path), ".csv")
		name := strings.TrimSuffix(strings.ToLower(stem), "_cat")
		catalogs = append(catalogs, Catalog{Name: name, Path: path})
	}
	return catalogs, nil
}
