package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covidmx-labs/covidsync/internal/config"
	"github.com/covidmx-labs/covidsync/internal/db"
	"github.com/covidmx-labs/covidsync/internal/provenance"
	"github.com/covidmx-labs/covidsync/internal/schema"
	"github.com/covidmx-labs/covidsync/internal/source"
	"github.com/covidmx-labs/covidsync/internal/testutil"
)

// casesCSV renders a full-width cases file with rowCount data rows.
func casesCSV(t *testing.T, rowCount int) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(schema.Names()))
	for i := 0; i < rowCount; i++ {
		row := make([]string, len(schema.Columns))
		for j, col := range schema.Columns {
			switch {
			case col.Name == schema.IDRegistro:
				row[j] = fmt.Sprintf("id%04d", i)
			case col.Name == schema.FechaDef:
				row[j] = schema.DeathDateSentinel
			case col.Type == "DATE":
				row[j] = "2021-04-01"
			case col.Type == "TEXT":
				row[j] = "México"
			default:
				row[j] = "1"
			}
		}
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf.Bytes()
}

// casesArchive wraps a cases CSV into a ZIP with the given member name.
func casesArchive(t *testing.T, memberName string, rowCount int) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	member, err := w.Create(memberName)
	require.NoError(t, err)
	_, err = member.Write(casesCSV(t, rowCount))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// serveArchive serves *archive on every path, answering HEAD probes with
// the body size only. The pointer lets a test swap the payload mid-flight.
func serveArchive(t *testing.T, archive *[]byte) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := *archive
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, dataURL string) *config.Config {
	t.Helper()

	root := t.TempDir()
	return &config.Config{
		DataDir:     filepath.Join(root, "data"),
		Database:    filepath.Join(root, "db", "covid19mx.duckdb"),
		CatalogsDir: filepath.Join(root, "catalogs"),
		DataURL:     dataURL,
		TableName:   "covid_cases",
	}
}

func writeCatalog(t *testing.T, dir, name string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o750))
	content := []byte("CLAVE,DESCRIPCION\n1,MUJER\n2,HOMBRE\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o600))
}

func TestPipeline_FirstRunLoads(t *testing.T) {
	archive := casesArchive(t, "010421COVID19MEXICO.csv", 5)
	srv := serveArchive(t, &archive)
	cfg := testConfig(t, srv.URL+"/datos_abiertos_covid19.zip")
	writeCatalog(t, cfg.CatalogsDir, "sexo_cat.csv")
	writeCatalog(t, cfg.CatalogsDir, "sector_cat.csv")
	writeCatalog(t, cfg.CatalogsDir, "resultado_cat.csv")

	ctx := context.Background()
	result, err := New(cfg, testutil.NewTestLogger(t)).Run(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeLoaded, result.Outcome)
	assert.Equal(t, "010421COVID19MEXICO.csv", result.SourceFileName)
	assert.Equal(t, int64(5), result.RowsLoaded)
	assert.Equal(t, 3, result.CatalogsLoaded)
	assert.Empty(t, result.RotatedDatabase)

	assert.FileExists(t, cfg.Database)
	assert.NoFileExists(t, cfg.Database+".staging")

	// The promoted database holds the cases table and one table per
	// catalog present at run time.
	loader, err := db.Open(ctx, cfg.Database, nil)
	require.NoError(t, err)
	defer func() { _ = loader.Close() }()

	tables, err := loader.Tables(ctx)
	require.NoError(t, err)
	assert.Subset(t, tables, []string{"covid_cases", "sexo", "sector", "resultado"})

	count, err := loader.TableCount(ctx, "sexo")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	rec, err := provenance.FromFile(cfg.Sidecar())
	require.NoError(t, err)
	assert.Equal(t, "010421COVID19MEXICO.csv", rec.SourceFileName)
	size, ok := rec.Size()
	require.True(t, ok)
	assert.Equal(t, int64(len(archive)), size)
}

func TestPipeline_UnchangedRemoteIsUpToDate(t *testing.T) {
	archive := casesArchive(t, "010421COVID19MEXICO.csv", 5)
	srv := serveArchive(t, &archive)
	cfg := testConfig(t, srv.URL+"/datos_abiertos_covid19.zip")

	pipe := New(cfg, testutil.NewTestLogger(t))
	_, err := pipe.Run(context.Background(), Options{})
	require.NoError(t, err)

	dbInfo, err := os.Stat(cfg.Database)
	require.NoError(t, err)

	result, err := pipe.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpToDate, result.Outcome)
	assert.Equal(t, "010421COVID19MEXICO.csv", result.SourceFileName)

	// The database was not rebuilt.
	after, err := os.Stat(cfg.Database)
	require.NoError(t, err)
	assert.Equal(t, dbInfo.ModTime(), after.ModTime())
}

func TestPipeline_ChangedRemoteRotates(t *testing.T) {
	archive := casesArchive(t, "010421COVID19MEXICO.csv", 5)
	srv := serveArchive(t, &archive)
	cfg := testConfig(t, srv.URL+"/datos_abiertos_covid19.zip")

	pipe := New(cfg, testutil.NewTestLogger(t))
	_, err := pipe.Run(context.Background(), Options{})
	require.NoError(t, err)

	archive = casesArchive(t, "020421COVID19MEXICO.csv", 8)

	result, err := pipe.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeLoaded, result.Outcome)
	assert.Equal(t, "020421COVID19MEXICO.csv", result.SourceFileName)
	assert.Equal(t, int64(8), result.RowsLoaded)

	dbDir := filepath.Dir(cfg.Database)
	assert.Equal(t, filepath.Join(dbDir, "010421COVID19MEXICO.duckdb"), result.RotatedDatabase)
	assert.Equal(t, filepath.Join(dbDir, "010421COVID19MEXICO"+config.SidecarSuffix), result.RotatedSidecar)
	assert.FileExists(t, result.RotatedDatabase)
	assert.FileExists(t, result.RotatedSidecar)

	// The rotated sidecar still describes the superseded data.
	rotated, err := provenance.FromFile(result.RotatedSidecar)
	require.NoError(t, err)
	assert.Equal(t, "010421COVID19MEXICO.csv", rotated.SourceFileName)

	current, err := provenance.FromFile(cfg.Sidecar())
	require.NoError(t, err)
	assert.Equal(t, "020421COVID19MEXICO.csv", current.SourceFileName)
}

func TestPipeline_ForceReloadsUnchangedData(t *testing.T) {
	archive := casesArchive(t, "010421COVID19MEXICO.csv", 5)
	srv := serveArchive(t, &archive)
	cfg := testConfig(t, srv.URL+"/datos_abiertos_covid19.zip")

	pipe := New(cfg, testutil.NewTestLogger(t))
	_, err := pipe.Run(context.Background(), Options{})
	require.NoError(t, err)

	result, err := pipe.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, result.Outcome)
	assert.NotEmpty(t, result.RotatedDatabase)
}

func TestPipeline_LocalArchive(t *testing.T) {
	cfg := testConfig(t, "http://unreachable.invalid/datos_abiertos_covid19.zip")

	archivePath := filepath.Join(t.TempDir(), "datos_abiertos_covid19.zip")
	require.NoError(t, os.WriteFile(archivePath, casesArchive(t, "010421COVID19MEXICO.csv", 3), 0o600))

	result, err := New(cfg, testutil.NewTestLogger(t)).Run(context.Background(), Options{LocalArchive: archivePath})
	require.NoError(t, err)

	assert.Equal(t, OutcomeLoaded, result.Outcome)
	assert.Equal(t, int64(3), result.RowsLoaded)

	// No transfer context: the sidecar records the source name only.
	rec, err := provenance.FromFile(cfg.Sidecar())
	require.NoError(t, err)
	_, ok := rec.Size()
	assert.False(t, ok)
}

func TestPipeline_RemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL+"/datos_abiertos_covid19.zip")

	_, err := New(cfg, testutil.NewTestLogger(t)).Run(context.Background(), Options{})
	assert.ErrorIs(t, err, source.ErrRemoteUnavailable)
}

func TestPipeline_OrphanedDatabaseRemoved(t *testing.T) {
	archive := casesArchive(t, "010421COVID19MEXICO.csv", 5)
	srv := serveArchive(t, &archive)
	cfg := testConfig(t, srv.URL+"/datos_abiertos_covid19.zip")

	// A database with no sidecar has no provenance to rotate under.
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Database), 0o750))
	require.NoError(t, os.WriteFile(cfg.Database, []byte("orphan"), 0o600))

	result, err := New(cfg, testutil.NewTestLogger(t)).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeLoaded, result.Outcome)
	assert.Empty(t, result.RotatedDatabase)

	got, err := os.ReadFile(cfg.Database)
	require.NoError(t, err)
	assert.NotEqual(t, "orphan", string(got))
}

func TestPipeline_FailedLoadLeavesCurrentStateIntact(t *testing.T) {
	archive := casesArchive(t, "010421COVID19MEXICO.csv", 5)
	srv := serveArchive(t, &archive)
	cfg := testConfig(t, srv.URL+"/datos_abiertos_covid19.zip")

	pipe := New(cfg, testutil.NewTestLogger(t))
	_, err := pipe.Run(context.Background(), Options{})
	require.NoError(t, err)

	// A malformed archive fails extraction before any load starts.
	badArchive := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(badArchive, []byte("not a zip"), 0o600))

	_, err = pipe.Run(context.Background(), Options{LocalArchive: badArchive, Force: true})
	require.ErrorIs(t, err, source.ErrMalformedArchive)

	assert.FileExists(t, cfg.Database)
	rec, sidecarErr := provenance.FromFile(cfg.Sidecar())
	require.NoError(t, sidecarErr)
	assert.Equal(t, "010421COVID19MEXICO.csv", rec.SourceFileName)
	assert.NoFileExists(t, cfg.Database+".staging")
}
