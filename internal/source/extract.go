package source

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Extractor pulls named members out of the downloaded ZIP archives.
// Extraction is idempotent on member size: when the destination already
// holds a file whose byte size equals the member's declared uncompressed
// size, the member is not re-extracted. The cases CSV runs to hundreds of
// megabytes, so skipping the rewrite matters on unchanged data.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor builds an Extractor. A nil logger discards output.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{logger: logger}
}

// ExtractDataset extracts the cases CSV member from archivePath into
// destDir and returns its local path.
func (e *Extractor) ExtractDataset(archivePath, destDir string) (string, error) {
	return e.extractMember(archivePath, destDir, func(name string) bool {
		return strings.HasSuffix(name, DatasetSuffix)
	})
}

// ExtractSpec extracts the descriptors and catalogs spreadsheet members
// from the data-dictionary archive. The two members succeed or fail as a
// set; an archive holding only one of them is malformed.
func (e *Extractor) ExtractSpec(archivePath, destDir string) (descriptorsPath, catalogsPath string, err error) {
	descriptorsPath, err = e.extractMember(archivePath, destDir, func(name string) bool {
		return strings.HasSuffix(name, DescriptorsSuffix)
	})
	if err != nil {
		return "", "", err
	}
	catalogsPath, err = e.extractMember(archivePath, destDir, func(name string) bool {
		return strings.HasSuffix(name, CatalogsSuffix)
	})
	if err != nil {
		return "", "", err
	}
	return descriptorsPath, catalogsPath, nil
}

// extractMember scans the archive directory in order and extracts the
// first member whose name satisfies match. The linear first-match scan is
// deliberate: if an archive ever carried multiple candidates, the one
// first in directory order wins.
func (e *Extractor) extractMember(archivePath, destDir string, match func(string) bool) (string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrMalformedArchive, archivePath, err)
	}
	defer func() { _ = reader.Close() }()

	for _, member := range reader.File {
		if !match(member.Name) {
			continue
		}
		return e.extractFile(member, destDir)
	}

	return "", fmt.Errorf("%w: no matching member in %s", ErrMalformedArchive, archivePath)
}

func (e *Extractor) extractFile(member *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, filepath.Base(member.Name))

	if info, err := os.Stat(destPath); err == nil {
		if info.Size() == int64(member.UncompressedSize64) {
			e.logger.Debug("extraction skipped, destination size matches",
				"member", member.Name, "path", destPath, "bytes", info.Size())
			return destPath, nil
		}
	}

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return "", fmt.Errorf("creating extraction directory %s: %w", destDir, err)
	}

	src, err := member.Open()
	if err != nil {
		return "", fmt.Errorf("%w: opening member %s: %v", ErrMalformedArchive, member.Name, err)
	}
	defer func() { _ = src.Close() }()

	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", destPath, err)
	}

	written, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return "", fmt.Errorf("extracting %s: %w", member.Name, err)
	}

	e.logger.Debug("member extracted", "member", member.Name, "path", destPath, "bytes", written)

	return destPath, nil
}
