package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/covidmx-labs/covidsync/internal/cli/output"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			r := output.NewRenderer(cmd.OutOrStdout())
			r.Printf("covidsync %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
