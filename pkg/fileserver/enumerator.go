package fileserver

import (
	"os"
	"sort"
)

// listDir returns the regular filenames directly under dir, sorted
// lexicographically so a commit's leaf order is deterministic across runs:
// the Tree Builder requires a stable file order to keep file_index
// meaningful.
func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
