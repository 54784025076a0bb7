package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanDatasets deletes extracted cases CSV files from dir. When sidecars
// is true, each file's provenance sidecar is removed alongside it. Returns
// the paths that were deleted.
func CleanDatasets(dir string, sidecars bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory %s: %w", dir, err)
	}

	var removed []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), DatasetSuffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", path, err)
		}
		removed = append(removed, path)

		if !sidecars {
			continue
		}
		sidecar := strings.TrimSuffix(path, ".csv") + ".json"
		if err := os.Remove(sidecar); err == nil {
			removed = append(removed, sidecar)
		} else if !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing %s: %w", sidecar, err)
		}
	}
	return removed, nil
}
