package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestIsValidFalseWhenFilesMissing(t *testing.T) {
	cacheDir := t.TempDir()
	sourceDir := t.TempDir()
	assert.False(t, IsValid(cacheDir, sourceDir))
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	cacheDir := t.TempDir()
	sourceDir := t.TempDir()
	writeSource(t, sourceDir, "docs.json", `[{"title":"a","content":"b"}]`)

	m := New(cacheDir, nil)
	manifest := NewManifest(1, 0.5)
	require.NoError(t, m.Save(Snapshot{
		DenseIndexBlob:    []byte("dense"),
		DenseMetadataBlob: []byte("meta"),
		SparseIndexBlob:   []byte("sparse"),
		Manifest:          manifest,
	}))

	snap, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, []byte("dense"), snap.DenseIndexBlob)
	assert.Equal(t, []byte("sparse"), snap.SparseIndexBlob)
	assert.Equal(t, manifest, snap.Manifest)
}

func TestIsValidAfterSaveWithMatchingDocCount(t *testing.T) {
	cacheDir := t.TempDir()
	sourceDir := t.TempDir()
	writeSource(t, sourceDir, "docs.json", `[{"title":"a","content":"b"},{"title":"c","content":"d"}]`)

	m := New(cacheDir, nil)
	require.NoError(t, m.Save(Snapshot{
		DenseIndexBlob:    []byte("x"),
		DenseMetadataBlob: []byte("y"),
		SparseIndexBlob:   []byte("z"),
		Manifest:          NewManifest(2, 1.0),
	}))

	assert.True(t, m.IsValid(sourceDir))
}

func TestIsValidFalseWhenSourceFileTouchedAfterManifest(t *testing.T) {
	cacheDir := t.TempDir()
	sourceDir := t.TempDir()
	writeSource(t, sourceDir, "docs.json", `[{"title":"a","content":"b"}]`)

	m := New(cacheDir, nil)
	require.NoError(t, m.Save(Snapshot{
		DenseIndexBlob:    []byte("x"),
		DenseMetadataBlob: []byte("y"),
		SparseIndexBlob:   []byte("z"),
		Manifest:          Manifest{Timestamp: time.Now().Add(-1 * time.Hour).Unix(), DocumentCount: 1},
	}))

	future := time.Now().Add(1 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(sourceDir, "docs.json"), future, future))

	assert.False(t, m.IsValid(sourceDir))
}

func TestIsValidFalseWhenDocCountDeltaExceedsTolerance(t *testing.T) {
	cacheDir := t.TempDir()
	sourceDir := t.TempDir()
	writeSource(t, sourceDir, "docs.json", `[{"title":"a","content":"b"}]`)

	m := New(cacheDir, nil)
	require.NoError(t, m.Save(Snapshot{
		DenseIndexBlob:    []byte("x"),
		DenseMetadataBlob: []byte("y"),
		SparseIndexBlob:   []byte("z"),
		Manifest:          NewManifest(500, 1.0),
	}))

	assert.False(t, m.IsValid(sourceDir))
}

func TestLockBuildPreventsConcurrentAcquire(t *testing.T) {
	cacheDir := t.TempDir()
	m1 := New(cacheDir, nil)
	m2 := New(cacheDir, nil)

	unlock, err := m1.LockBuild()
	require.NoError(t, err)
	defer unlock()

	locked, err := m2.flock.TryLock()
	require.NoError(t, err)
	assert.False(t, locked)
}
