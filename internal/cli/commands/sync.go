package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/covidmx-labs/covidsync/internal/cli/output"
	"github.com/covidmx-labs/covidsync/internal/pipeline"
	"github.com/covidmx-labs/covidsync/internal/state"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	var (
		force        bool
		localArchive string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the full ingestion pipeline",
		Long: `Run one change-aware ingestion pass: probe the remote publication,
download and extract the cases archive when it changed, build a fresh
database, rotate the superseded one out of the current slot, and record
the new provenance sidecar. Each pass is recorded in the run history.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, force, localArchive)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"Re-ingest even when the remote data appears unchanged")
	cmd.Flags().StringVarP(&localArchive, "source-file", "s", "",
		"Use an already-downloaded archive at PATH instead of fetching")

	return cmd
}

func runSync(cmd *cobra.Command, force bool, localArchive string) error {
	ctx := cmd.Context()
	cfg := getConfig(ctx)
	logger := getLogger(ctx)
	r := output.NewRenderer(cmd.OutOrStdout())

	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o750); err != nil {
		return err
	}
	store, err := state.Open(cfg.StatePath, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.CreateRun()
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, logger)
	result, err := p.Run(ctx, pipeline.Options{Force: force, LocalArchive: localArchive})
	if err != nil {
		_ = store.CompleteRun(run.ID, state.RunStatusFailed, "", 0, 0, err.Error())
		return err
	}

	switch result.Outcome {
	case pipeline.OutcomeUpToDate:
		if err := store.CompleteRun(run.ID, state.RunStatusUpToDate, result.SourceFileName, 0, 0, ""); err != nil {
			return err
		}
		r.Success("Database is up to date.")
	case pipeline.OutcomeLoaded:
		if err := store.CompleteRun(run.ID, state.RunStatusCompleted, result.SourceFileName,
			result.RowsLoaded, result.CatalogsLoaded, ""); err != nil {
			return err
		}
		r.Success("Database loaded.")
		r.Printf("Source: %s", result.SourceFileName)
		r.Printf("Cases loaded: %d", result.RowsLoaded)
		r.Printf("Catalogs loaded: %d", result.CatalogsLoaded)
		if result.RotatedDatabase != "" {
			r.Muted("Previous database kept at " + result.RotatedDatabase)
		}
	}
	return nil
}
