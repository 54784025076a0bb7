package commands

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/covidmx-labs/covidsync/internal/cli/output"
	"github.com/covidmx-labs/covidsync/internal/config"
	"github.com/covidmx-labs/covidsync/internal/provenance"
	"github.com/covidmx-labs/covidsync/internal/source"
)

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and extract the latest data from the remote servers",
		Long: `Download the cases archive and the data-dictionary archive, extracting
their members into the data directory. Each download is skipped when the
local copy already matches the remote size; extraction is skipped when the
destination file already matches the member size.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"Download the remote data even if an identical local copy exists")

	return cmd
}

func runFetch(cmd *cobra.Command, force bool) error {
	ctx := cmd.Context()
	cfg := getConfig(ctx)
	logger := getLogger(ctx)
	r := output.NewRenderer(cmd.OutOrStdout())

	client := source.NewClient(logger)
	extractor := source.NewExtractor(logger)

	if err := fetchSpec(ctx, cfg, client, extractor, r, force); err != nil {
		return err
	}
	return fetchDataset(ctx, cfg, client, extractor, r, force)
}

func fetchSpec(ctx context.Context, cfg *config.Config, client *source.Client, extractor *source.Extractor, r *output.Renderer, force bool) error {
	changed, err := sourceChanged(ctx, client, cfg.SpecURL, cfg.SpecArchiveSidecar(), force)
	if err != nil {
		return err
	}
	if !changed {
		r.Muted("The data dictionary matches the remote copy. Skipping download.")
		return nil
	}

	r.Println("Downloading the data dictionary...")
	archivePath, headers, err := client.Fetch(ctx, cfg.SpecURL, cfg.DataDir)
	if err != nil {
		return err
	}

	descriptorsPath, catalogsPath, err := extractor.ExtractSpec(archivePath, cfg.DataDir)
	if err != nil {
		return err
	}

	specDate, err := source.DescriptorsDate(filepath.Base(descriptorsPath))
	if err != nil {
		// The publisher has shipped oddly named dictionary revisions
		// before; an unparseable name downgrades to a dateless record.
		specDate = time.Time{}
	}
	record := provenance.New(filepath.Base(archivePath), specDate, headers)
	if err := record.Save(cfg.SpecArchiveSidecar()); err != nil {
		return err
	}

	r.Success("Data dictionary downloaded and extracted.")
	r.Muted("Descriptors: " + descriptorsPath)
	r.Muted("Catalogs spreadsheet: " + catalogsPath)
	return nil
}

func fetchDataset(ctx context.Context, cfg *config.Config, client *source.Client, extractor *source.Extractor, r *output.Renderer, force bool) error {
	changed, err := sourceChanged(ctx, client, cfg.DataURL, cfg.DataArchiveSidecar(), force)
	if err != nil {
		return err
	}
	if !changed {
		r.Muted("The cases data matches the remote copy. Skipping download.")
		return nil
	}

	r.Println("Downloading the cases data...")
	archivePath, headers, err := client.Fetch(ctx, cfg.DataURL, cfg.DataDir)
	if err != nil {
		return err
	}

	csvPath, err := extractor.ExtractDataset(archivePath, cfg.DataDir)
	if err != nil {
		return err
	}

	record, err := source.DatasetRecord(csvPath, headers)
	if err != nil {
		return err
	}
	// One sidecar next to the extracted CSV, one next to the archive for
	// the change check on later runs.
	if err := record.Save(strings.TrimSuffix(csvPath, ".csv") + ".json"); err != nil {
		return err
	}
	archiveRecord := provenance.New(filepath.Base(archivePath), record.SourceDate, headers)
	if err := archiveRecord.Save(cfg.DataArchiveSidecar()); err != nil {
		return err
	}

	r.Success("Cases data downloaded and extracted.")
	r.Muted("Data location: " + csvPath)
	return nil
}

// sourceChanged decides whether a source needs downloading: always when
// forced or never fetched, otherwise when the remote probe differs from
// the recorded sidecar.
func sourceChanged(ctx context.Context, client *source.Client, url, sidecar string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	local, err := provenance.FromFile(sidecar)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	remote, err := client.Probe(ctx, url)
	if err != nil {
		return false, err
	}
	return local.DifferentThan(remote), nil
}
