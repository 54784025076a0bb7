// Package pipeline orchestrates a full change-aware ingestion pass:
// remote change detection, archive fetch and extraction, database build,
// and rotation of the superseded database out of the current slot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/covidmx-labs/covidsync/internal/config"
	"github.com/covidmx-labs/covidsync/internal/db"
	"github.com/covidmx-labs/covidsync/internal/provenance"
	"github.com/covidmx-labs/covidsync/internal/source"
)

// Outcome is the terminal state of one pipeline pass.
type Outcome string

const (
	// OutcomeUpToDate means the loaded data already matches the remote
	// publication; nothing was touched.
	OutcomeUpToDate Outcome = "up-to-date"

	// OutcomeLoaded means a new database was built and promoted.
	OutcomeLoaded Outcome = "loaded"
)

// Options tune a single pass.
type Options struct {
	// Force re-ingests even when the change checks see identical data.
	Force bool

	// LocalArchive, when set, uses an already-downloaded archive instead
	// of fetching. The remote probe is skipped; with no transfer headers
	// the change check is conservative and the data is treated as new.
	LocalArchive string
}

// Result reports what a pass did.
type Result struct {
	Outcome         Outcome
	SourceFileName  string
	RowsLoaded      int64
	CatalogsLoaded  int
	RotatedDatabase string
	RotatedSidecar  string
}

// Pipeline runs ingestion passes. Not safe for concurrent invocations
// against the same data directory and database path; the rotation renames
// carry no locking, and external serialization (one process at a time) is
// assumed.
type Pipeline struct {
	cfg       *config.Config
	client    *source.Client
	extractor *source.Extractor
	logger    *slog.Logger
}

// New builds a Pipeline. A nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		cfg:       cfg,
		client:    source.NewClient(logger),
		extractor: source.NewExtractor(logger),
		logger:    logger,
	}
}

// Run performs one pass. A crash mid-pass never leaves the sidecar
// pointing at a half-built database: the new database is built under a
// staging name, the previous database and sidecar are renamed out of the
// way only after the build fully succeeds, and the sidecar is rewritten
// last.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	// CHECKING: compare the persisted sidecar against a remote probe.
	previous, err := p.loadSidecar()
	if err != nil {
		return nil, err
	}

	if opts.LocalArchive == "" && previous != nil && !opts.Force {
		remote, err := p.client.Probe(ctx, p.cfg.DataURL)
		if err != nil {
			return nil, err
		}
		if !previous.DifferentThan(remote) {
			p.logger.Info("remote data matches loaded data, nothing to do")
			return &Result{Outcome: OutcomeUpToDate, SourceFileName: previous.SourceFileName}, nil
		}
	}

	// FETCHING: download or accept a cached archive, extract the cases
	// CSV, and derive its own provenance from the extracted name.
	archivePath := opts.LocalArchive
	var headers map[string]string
	if archivePath == "" {
		archivePath, headers, err = p.client.Fetch(ctx, p.cfg.DataURL, p.cfg.DataDir)
		if err != nil {
			return nil, err
		}
	}

	csvPath, err := p.extractor.ExtractDataset(archivePath, p.cfg.DataDir)
	if err != nil {
		return nil, err
	}

	record, err := source.DatasetRecord(csvPath, headers)
	if err != nil {
		return nil, err
	}

	// Second change check, post-extraction: the download may have
	// happened, but an unchanged payload skips the database rebuild.
	if previous != nil && !opts.Force && !previous.DifferentThan(record) {
		p.logger.Info("extracted data matches loaded data, skipping load",
			"source", record.SourceFileName)
		return &Result{Outcome: OutcomeUpToDate, SourceFileName: record.SourceFileName}, nil
	}

	// LOADING: build the new database under a staging name.
	staging := p.cfg.Database + ".staging"
	rows, catalogCount, err := p.loadStaging(ctx, staging, csvPath)
	if err != nil {
		p.discardStaging(staging)
		return nil, err
	}

	// ROTATING: move the superseded database out of the current slot,
	// named after the data it held, then promote the staging build.
	result := &Result{
		Outcome:        OutcomeLoaded,
		SourceFileName: record.SourceFileName,
		RowsLoaded:     rows,
		CatalogsLoaded: catalogCount,
	}
	if err := p.rotate(previous, result); err != nil {
		p.discardStaging(staging)
		return nil, err
	}
	if err := os.Rename(staging, p.cfg.Database); err != nil {
		return nil, fmt.Errorf("promoting staged database: %w", err)
	}

	// PERSISTING: the sidecar is the durable marker of what is loaded;
	// it is written last, atomically.
	if err := record.Save(p.cfg.Sidecar()); err != nil {
		return nil, err
	}

	p.logger.Info("ingestion complete", "source", record.SourceFileName,
		"rows", rows, "catalogs", catalogCount)

	return result, nil
}

// loadSidecar reads the current sidecar; a missing sidecar is not an
// error, it just means nothing has been loaded yet.
func (p *Pipeline) loadSidecar() (*provenance.Record, error) {
	record, err := provenance.FromFile(p.cfg.Sidecar())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// loadStaging builds the complete database at path: cases table first so
// a failure of the large load is detected before the smaller catalog
// loads run.
func (p *Pipeline) loadStaging(ctx context.Context, path, csvPath string) (rows int64, catalogCount int, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, 0, fmt.Errorf("creating database directory: %w", err)
	}
	p.discardStaging(path)

	loader, err := db.Open(ctx, path, p.logger)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = loader.Close() }()

	if err := loader.CreateCasesTable(ctx, p.cfg.TableName); err != nil {
		return 0, 0, err
	}
	if err := loader.LoadCases(ctx, p.cfg.TableName, csvPath); err != nil {
		return 0, 0, err
	}

	catalogs, err := source.Catalogs(p.cfg.CatalogsDir)
	if err != nil {
		return 0, 0, err
	}
	if err := loader.LoadCatalogs(ctx, catalogs); err != nil {
		return 0, 0, err
	}

	rows, err = loader.TableCount(ctx, p.cfg.TableName)
	if err != nil {
		return 0, 0, err
	}
	return rows, len(catalogs), nil
}

// rotate renames the current database and sidecar using the previous
// record's source name, preserving history instead of deleting it. An
// orphaned database with no sidecar has no provenance to rotate to and is
// removed.
func (p *Pipeline) rotate(previous *provenance.Record, result *Result) error {
	_, statErr := os.Stat(p.cfg.Database)
	dbExists := statErr == nil

	if previous == nil {
		if dbExists {
			p.logger.Warn("removing orphaned database with no sidecar", "path", p.cfg.Database)
			if err := os.Remove(p.cfg.Database); err != nil {
				return fmt.Errorf("removing orphaned database: %w", err)
			}
		}
		return nil
	}

	if !dbExists {
		return nil
	}

	base := strings.TrimSuffix(previous.SourceFileName, ".csv")
	if base == "" {
		base = "unknown-source"
	}
	dir := filepath.Dir(p.cfg.Database)
	rotatedDB := filepath.Join(dir, base+filepath.Ext(p.cfg.Database))
	rotatedSidecar := filepath.Join(dir, base+config.SidecarSuffix)

	p.logger.Info("rotating superseded database", "to", rotatedDB)

	if err := os.Rename(p.cfg.Database, rotatedDB); err != nil {
		return fmt.Errorf("rotating database: %w", err)
	}
	if err := os.Rename(p.cfg.Sidecar(), rotatedSidecar); err != nil {
		return fmt.Errorf("rotating sidecar: %w", err)
	}

	result.RotatedDatabase = rotatedDB
	result.RotatedSidecar = rotatedSidecar
	return nil
}

// discardStaging removes a staging database and its write-ahead log, best
// effort.
func (p *Pipeline) discardStaging(path string) {
	_ = os.Remove(path)
	_ = os.Remove(path + ".wal")
}
