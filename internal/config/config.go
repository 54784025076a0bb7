// Package config resolves the tool configuration from defaults, an
// optional YAML file, COVIDSYNC_-prefixed environment variables, and CLI
// flags, in increasing order of precedence.
package config

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Default configuration values.
const (
	DefaultDataDir   = "data"
	DefaultDatabase  = "covid19mx.duckdb"
	DefaultTableName = "covid_cases"
	DefaultStateFile = ".covidsync/state.db"

	// DefaultDataURL is the national cases archive.
	DefaultDataURL = "http://datosabiertos.salud.gob.mx/gobmx/salud/datos_abiertos/datos_abiertos_covid19.zip"

	// DefaultSpecURL is the companion data-dictionary archive.
	DefaultSpecURL = "http://datosabiertos.salud.gob.mx/gobmx/salud/datos_abiertos/diccionario_datos_covid19.zip"

	// SidecarSuffix marks the provenance sidecar of the currently loaded
	// database. It shares the database's base name.
	SidecarSuffix = ".saved-data.json"
)

// Config groups the resolved configuration. It is constructed once by
// LoadConfig and passed by reference into each component; there is no
// ambient global configuration.
type Config struct {
	DataDir     string `koanf:"data_dir"`
	Database    string `koanf:"database"`
	CatalogsDir string `koanf:"catalogs_dir"`
	DataURL     string `koanf:"data_url"`
	SpecURL     string `koanf:"spec_url"`
	TableName   string `koanf:"table_name"`
	StatePath   string `koanf:"state_path"`
	Verbose     bool   `koanf:"verbose"`
}

// Sidecar returns the path of the provenance sidecar describing the
// currently loaded database.
func (c *Config) Sidecar() string {
	return strings.TrimSuffix(c.Database, filepath.Ext(c.Database)) + SidecarSuffix
}

// DataArchiveSidecar returns the sidecar path for the downloaded cases
// archive, co-located with the archive in the data directory.
func (c *Config) DataArchiveSidecar() string {
	return c.archiveSidecar(c.DataURL)
}

// SpecArchiveSidecar returns the sidecar path for the downloaded
// data-dictionary archive.
func (c *Config) SpecArchiveSidecar() string {
	return c.archiveSidecar(c.SpecURL)
}

func (c *Config) archiveSidecar(rawURL string) string {
	name := "archive"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			name = base
		}
	}
	name = strings.TrimSuffix(name, path.Ext(name)) + ".json"
	return filepath.Join(c.DataDir, name)
}
