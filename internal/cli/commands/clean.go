package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/covidmx-labs/covidsync/internal/cli/output"
	"github.com/covidmx-labs/covidsync/internal/source"
)

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	var sidecars bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove extracted cases files from the data directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClean(cmd, sidecars)
		},
	}

	cmd.Flags().BoolVar(&sidecars, "sidecars", false,
		"Also remove the provenance sidecars of the deleted files")

	return cmd
}

func runClean(cmd *cobra.Command, sidecars bool) error {
	cfg := getConfig(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout())

	removed, err := source.CleanDatasets(cfg.DataDir, sidecars)
	if err != nil {
		return err
	}

	for _, path := range removed {
		r.Muted("Removed " + path)
	}
	r.Success(fmt.Sprintf("%d files removed.", len(removed)))
	return nil
}
