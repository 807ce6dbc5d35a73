// Package testutil holds fixtures shared across the module's test suites:
// temp directories pre-populated with a deterministic set of sample files.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleFiles is a small, fixed set of file contents used across the tree,
// merkle, and store test suites so the same commitment can be recomputed
// and cross-checked from different entry points.
var SampleFiles = map[string][]byte{
	"alpha.txt": []byte("the quick brown fox"),
	"beta.txt":  []byte("jumps over the lazy dog"),
	"gamma.txt": []byte("merkle trees are binary"),
}

// WriteSampleFiles materializes SampleFiles (or a caller-supplied set) under
// a fresh temp directory and returns the directory path and the sorted
// filename order the fileserver enumerator would produce.
func WriteSampleFiles(t *testing.T, files map[string][]byte) (dir string, names []string) {
	t.Helper()

	dir = t.TempDir()
	names = make([]string, 0, len(files))
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			t.Fatalf("writing sample file %q: %v", name, err)
		}
		names = append(names, name)
	}
	sortStrings(names)
	return dir, names
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Contents returns the SampleFiles byte slices in the same order as names.
func Contents(names []string, files map[string][]byte) [][]byte {
	out := make([][]byte, len(names))
	for i, n := range names {
		out[i] = files[n]
	}
	return out
}
