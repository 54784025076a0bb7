// Package db owns the analytical DuckDB database: the cases table schema,
// the bulk CSV load, and the catalog tables.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/covidmx-labs/covidsync/internal/schema"
	"github.com/covidmx-labs/covidsync/internal/source"
)

var (
	// ErrAlreadyExists reports a schema-creation collision. Callers must
	// rotate or drop the table before recreating it.
	ErrAlreadyExists = errors.New("db: table already exists")

	// ErrLoad reports a bulk copy rejected by the engine. The engine's
	// transactional boundary applies; there is no partial-row recovery.
	ErrLoad = errors.New("db: bulk load failed")
)

// memoryLimit caps DuckDB's working memory during the bulk ingest so a
// multi-hundred-megabyte load cannot exhaust the host. Binary unit:
// DuckDB reads GB as 10^9 bytes, GiB as 2^30.
const memoryLimit = "2GiB"

// Loader owns one database connection for the duration of a load. It is
// opened, used, and closed by the same logical operation; there is no
// cross-operation pooling.
type Loader struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the DuckDB database at path, creating the file if
// needed. Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Loader, error) {
	handle, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb database %s: %w", path, err)
	}
	if err := handle.PingContext(ctx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("pinging duckdb database %s: %w", path, err)
	}
	return NewWithDB(handle, logger), nil
}

// NewWithDB wraps an existing connection. Used by tests to substitute a
// mock driver.
func NewWithDB(handle *sql.DB, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{db: handle, logger: logger}
}

// Close closes the database connection.
func (l *Loader) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// CreateCasesTable creates the cases table with the fixed column layout
// from internal/schema. A pre-existing table of the same name is an
// ErrAlreadyExists; the caller decides whether to rotate or drop first.
func (l *Loader) CreateCasesTable(ctx context.Context, name string) error {
	var count int
	err := l.db.QueryRowContext(ctx,
		"SELECT count(*) FROM information_schema.tables WHERE table_name = ?", name,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking for table %s: %w", name, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	cols := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		cols[i] = fmt.Sprintf("%s %s", col.Name, col.Type)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(cols, ", "))

	l.logger.Debug("creating cases table", "table", name)

	if _, err := l.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("creating table %s: %w", name, err)
	}
	return nil
}

// LoadCases bulk-copies the cases CSV straight into the named table using
// the engine's native CSV reader, treating the first line as the header.
// The row-batch stream is intentionally bypassed here for throughput.
func (l *Loader) LoadCases(ctx context.Context, name, csvPath string) error {
	absPath, err := filepath.Abs(csvPath)
	if err != nil {
		return fmt.Errorf("resolving cases file path: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, fmt.Sprintf("SET memory_limit = '%s'", memoryLimit)); err != nil {
		return fmt.Errorf("setting memory limit: %w", err)
	}

	l.logger.Debug("bulk loading cases", "table", name, "path", absPath)

	stmt := fmt.Sprintf("COPY %s FROM '%s' (FORMAT CSV, HEADER)", name, sqlQuote(absPath))
	if _, err := l.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%w: copying %s into %s: %v", ErrLoad, absPath, name, err)
	}
	return nil
}

// UpsertCatalog replaces the named catalog table with the contents of its
// CSV file. Full replace, not a merge. Catalog names come from pre-
// sanitized alphanumeric file stems and are used unescaped.
func (l *Loader) UpsertCatalog(ctx context.Context, name, csvPath string) error {
	absPath, err := filepath.Abs(csvPath)
	if err != nil {
		return fmt.Errorf("resolving catalog file path: %w", err)
	}

	l.logger.Debug("loading catalog", "table", name, "path", absPath)

	stmt := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto('%s', header=true)",
		name, sqlQuote(absPath),
	)
	if _, err := l.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%w: loading catalog %s: %v", ErrLoad, name, err)
	}
	return nil
}

// LoadCatalogs loads each catalog in order, stopping at the first failure.
func (l *Loader) LoadCatalogs(ctx context.Context, catalogs []source.Catalog) error {
	for _, cat := range catalogs {
		if err := l.UpsertCatalog(ctx, cat.Name, cat.Path); err != nil {
			return err
		}
	}
	return nil
}

// TableCount returns the number of rows in the named table.
func (l *Loader) TableCount(ctx context.Context, name string) (int64, error) {
	var count int64
	err := l.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", name)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", name, err)
	}
	return count, nil
}

// Tables lists the user tables in the database.
func (l *Loader) Tables(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}
	return tables, nil
}

// sqlQuote doubles single quotes for embedding a path in a SQL string
// literal.
func sqlQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
