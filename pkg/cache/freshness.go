package cache

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/medrag/retrieval/pkg/ingest"
)

// IsValid implements spec.md §4.G's is_cache_valid / §8 invariant 7:
// all four files must exist, every source file's mtime must not
// exceed the manifest timestamp, and the recounted document total
// must be within docCountTolerance of the manifest's document_count.
func IsValid(cacheDir, sourceDir string) bool {
	p := pathsFor(cacheDir)
	for _, f := range []string{p.DenseIndex, p.DenseMetadata, p.SparseIndex, p.Manifest} {
		if _, err := os.Stat(f); err != nil {
			return false
		}
	}

	manifest, err := readManifest(p.Manifest)
	if err != nil {
		return false
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := os.Stat(filepath.Join(sourceDir, name))
		if err != nil {
			return false
		}
		if info.ModTime().Unix() > manifest.Timestamp {
			return false
		}
	}

	currentN, err := ingest.CountRecords(sourceDir)
	if err != nil {
		return false
	}
	delta := currentN - manifest.DocumentCount
	if delta < 0 {
		delta = -delta
	}
	if delta > docCountTolerance {
		return false
	}

	return true
}
