// Package commands implements the covidsync subcommands.
package commands

import (
	"context"
	"log/slog"

	"github.com/covidmx-labs/covidsync/internal/config"
)

// ConfigKey stores the resolved configuration in the command context.
type ConfigKey struct{}

// LoggerKey stores the logger in the command context.
type LoggerKey struct{}

// getConfig retrieves the configuration from the command context.
func getConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(ConfigKey{}).(*config.Config); ok {
		return c
	}
	cfg, _ := config.LoadConfig("", nil)
	return cfg
}

// getLogger retrieves the logger from the command context.
func getLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
