package commands

import (
	"context"
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/covidmx-labs/covidsync/internal/cli/output"
	"github.com/covidmx-labs/covidsync/internal/provenance"
	"github.com/covidmx-labs/covidsync/internal/source"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether new data is available at the remote sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd)
		},
	}
}

func runCheck(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := getConfig(ctx)
	logger := getLogger(ctx)
	r := output.NewRenderer(cmd.OutOrStdout())

	client := source.NewClient(logger)

	checks := []struct {
		label   string
		url     string
		sidecar string
	}{
		{"cases data", cfg.DataURL, cfg.DataArchiveSidecar()},
		{"data dictionary", cfg.SpecURL, cfg.SpecArchiveSidecar()},
	}

	for _, check := range checks {
		if err := checkSource(ctx, client, r, check.label, check.url, check.sidecar); err != nil {
			return err
		}
	}
	return nil
}

func checkSource(ctx context.Context, client *source.Client, r *output.Renderer, label, url, sidecar string) error {
	local, err := provenance.FromFile(sidecar)
	if errors.Is(err, fs.ErrNotExist) {
		r.Muted("Local " + label + " has not been downloaded yet.")
		return nil
	}
	if err != nil {
		return err
	}

	remote, err := client.Probe(ctx, url)
	if err != nil {
		return err
	}

	if local.DifferentThan(remote) {
		r.Printf("Local %s does not match the remote source size. Run 'covidsync fetch' to update.", label)
	} else {
		r.Success("Local " + label + " is up to date.")
	}
	return nil
}
