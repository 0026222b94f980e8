// Package cache implements the Index Cache Manager of spec.md §4.G:
// the four-file on-disk snapshot, its five-step freshness check, and
// atomic persistence. Grounded on the teacher's pkg/core/io.go
// (ExportIndex/ImportIndex binary save/load, Dump/Load manifest
// conventions).
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const (
	denseIndexFile    = "faiss_index.bin"
	denseMetadataFile = "faiss_metadata.pkl"
	sparseIndexFile   = "bm25_index.pkl"
	manifestFile      = "cache_info.json"
	lockFile          = ".build.lock"

	// docCountTolerance is the ±100 document delta spec.md §4.G/§8/§9
	// tolerates before declaring the cache stale. Preserved as
	// specified; see DESIGN.md's Open Question note.
	docCountTolerance = 100
)

// Manifest is the cache_info.json contract of spec.md §3.
type Manifest struct {
	Timestamp     int64   `json:"timestamp"`
	DocumentCount int     `json:"document_count"`
	BuildTime     float64 `json:"build_time"`
}

// Paths resolves the four snapshot file paths under dir.
type Paths struct {
	DenseIndex    string
	DenseMetadata string
	SparseIndex   string
	Manifest      string
}

func pathsFor(dir string) Paths {
	return Paths{
		DenseIndex:    filepath.Join(dir, denseIndexFile),
		DenseMetadata: filepath.Join(dir, denseMetadataFile),
		SparseIndex:   filepath.Join(dir, sparseIndexFile),
		Manifest:      filepath.Join(dir, manifestFile),
	}
}

func readManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}

func writeManifest(path string, m Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// atomicWrite writes data to a temp file in path's directory, then
// renames it into place, per spec.md §5's "write to temp file; rename"
// requirement.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func nowUnix() int64 { return time.Now().Unix() }
