package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/covidmx-labs/covidsync/internal/cli/output"
	"github.com/covidmx-labs/covidsync/internal/db"
	"github.com/covidmx-labs/covidsync/internal/source"
)

// NewSetupDBCommand creates the setup-db command.
func NewSetupDBCommand() *cobra.Command {
	var (
		sourceFile string
		skipCases  bool
	)

	cmd := &cobra.Command{
		Use:   "setup-db",
		Short: "Build the database from already-extracted data",
		Long: `Build the analytical database from a cases CSV already present on disk,
bypassing the remote change checks and rotation. Any existing database
file is replaced. Useful for rebuilding from an archived extraction.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetupDB(cmd, sourceFile, skipCases)
		},
	}

	cmd.Flags().StringVarP(&sourceFile, "source-file", "s", "",
		"Use the cases CSV at PATH instead of the most recent extraction")
	cmd.Flags().BoolVar(&skipCases, "skip-cases", false,
		"Omit the cases data and load only the catalogs")

	return cmd
}

func runSetupDB(cmd *cobra.Command, sourceFile string, skipCases bool) error {
	ctx := cmd.Context()
	cfg := getConfig(ctx)
	logger := getLogger(ctx)
	r := output.NewRenderer(cmd.OutOrStdout())

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o750); err != nil {
		return err
	}
	if err := os.Remove(cfg.Database); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing existing database: %w", err)
	}

	loader, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() { _ = loader.Close() }()

	if !skipCases {
		csvPath := sourceFile
		if csvPath == "" {
			csvPath, err = latestDataset(cfg.DataDir)
			if err != nil {
				return err
			}
		}

		if err := loader.CreateCasesTable(ctx, cfg.TableName); err != nil {
			return err
		}
		if err := loader.LoadCases(ctx, cfg.TableName, csvPath); err != nil {
			return err
		}
		r.Success("Cases data saved to the database.")
	}

	catalogs, err := source.Catalogs(cfg.CatalogsDir)
	if err != nil {
		return err
	}
	if err := loader.LoadCatalogs(ctx, catalogs); err != nil {
		return err
	}
	r.Success(fmt.Sprintf("%d catalogs saved to the database.", len(catalogs)))

	return nil
}

// latestDataset picks the extracted cases file with the newest embedded
// date from the data directory.
func latestDataset(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+source.DatasetSuffix))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no extracted cases file found in %s; run 'covidsync fetch' first", dir)
	}

	best := ""
	var bestDate int64
	for _, path := range matches {
		date, err := source.DatasetDate(filepath.Base(path))
		if err != nil {
			continue
		}
		if best == "" || date.Unix() > bestDate {
			best = path
			bestDate = date.Unix()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no extracted cases file found in %s; run 'covidsync fetch' first", dir)
	}
	return best, nil
}
