package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultDataURL, cfg.DataURL)
	assert.Equal(t, DefaultSpecURL, cfg.SpecURL)
	assert.Equal(t, DefaultTableName, cfg.TableName)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, filepath.Join(DefaultDataDir, DefaultDatabase), cfg.Database)
	assert.Equal(t, filepath.Join(DefaultDataDir, "catalogs"), cfg.CatalogsDir)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "covidsync.yaml")
	content := []byte("data_dir: /srv/covid\ntable_name: casos\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/srv/covid", cfg.DataDir)
	assert.Equal(t, "casos", cfg.TableName)
	assert.Equal(t, filepath.Join("/srv/covid", DefaultDatabase), cfg.Database)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "covidsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("table_name: from_file\n"), 0o600))

	t.Setenv("COVIDSYNC_TABLE_NAME", "from_env")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.TableName)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("COVIDSYNC_TABLE_NAME", "from_env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("table-name", "", "")
	flags.String("data-dir", "", "")
	require.NoError(t, flags.Parse([]string{"--table-name", "from_flag"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "from_flag", cfg.TableName)
	// An unset flag never overrides lower-precedence sources.
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
}

func TestConfig_Sidecar(t *testing.T) {
	cfg := &Config{Database: "/srv/covid/covid19mx.duckdb"}
	assert.Equal(t, "/srv/covid/covid19mx"+SidecarSuffix, cfg.Sidecar())
}

func TestConfig_ArchiveSidecars(t *testing.T) {
	cfg := &Config{
		DataDir: "/srv/covid",
		DataURL: DefaultDataURL,
		SpecURL: DefaultSpecURL,
	}
	assert.Equal(t, filepath.Join("/srv/covid", "datos_abiertos_covid19.json"), cfg.DataArchiveSidecar())
	assert.Equal(t, filepath.Join("/srv/covid", "diccionario_datos_covid19.json"), cfg.SpecArchiveSidecar())
}
