package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/medrag/retrieval/internal/engineerr"
	"github.com/medrag/retrieval/internal/obs"
)

// Manager persists and reloads the dense and sparse index snapshots
// under a single cache directory, per spec.md §4.G.
type Manager struct {
	dir    string
	logger obs.Logger
	flock  *flock.Flock
}

// New constructs a Manager rooted at dir (typically
// "<data-dir>/indexes"). An advisory cross-process build lock lives
// alongside the snapshot files, addressing spec.md §5's note that
// concurrent builders are undefined and must be prevented by the
// operator — grounded on
// _examples/Aman-CERP-amanmcp/internal/embed/lock.go's gofrs/flock
// wrapper.
func New(dir string, logger obs.Logger) *Manager {
	if logger == nil {
		logger = obs.NewNop()
	}
	return &Manager{
		dir:    dir,
		logger: logger,
		flock:  flock.New(filepath.Join(dir, lockFile)),
	}
}

// Dir returns the cache's root directory.
func (m *Manager) Dir() string { return m.dir }

// LockBuild acquires the advisory cross-process build lock, blocking
// until available. The returned func releases it.
func (m *Manager) LockBuild() (func(), error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, engineerr.Wrap("cache.LockBuild", err)
	}
	if err := m.flock.Lock(); err != nil {
		return nil, engineerr.Wrap("cache.LockBuild", err)
	}
	return func() { _ = m.flock.Unlock() }, nil
}

// Snapshot is the full on-disk artifact set of spec.md §4.G.
type Snapshot struct {
	DenseIndexBlob    []byte
	DenseMetadataBlob []byte
	SparseIndexBlob   []byte
	Manifest          Manifest
}

// IsValid reports whether the cache under m.Dir() is fresh relative to
// sourceDir, per spec.md §4.G's five-step check.
func (m *Manager) IsValid(sourceDir string) bool {
	return IsValid(m.dir, sourceDir)
}

// Load reads all three index blobs and the manifest from disk. Callers
// should only call this after IsValid returns true; an IndexLoadError
// (corrupt snapshot) should be treated as cache-invalid and trigger a
// rebuild per spec.md §7.
func (m *Manager) Load() (Snapshot, error) {
	p := pathsFor(m.dir)
	var snap Snapshot

	denseBlob, err := os.ReadFile(p.DenseIndex)
	if err != nil {
		return snap, engineerr.WrapKind("cache.Load", engineerr.ErrIndexLoadError, err)
	}
	denseMeta, err := os.ReadFile(p.DenseMetadata)
	if err != nil {
		return snap, engineerr.WrapKind("cache.Load", engineerr.ErrIndexLoadError, err)
	}
	sparseBlob, err := os.ReadFile(p.SparseIndex)
	if err != nil {
		return snap, engineerr.WrapKind("cache.Load", engineerr.ErrIndexLoadError, err)
	}
	manifest, err := readManifest(p.Manifest)
	if err != nil {
		return snap, engineerr.WrapKind("cache.Load", engineerr.ErrIndexLoadError, err)
	}

	snap.DenseIndexBlob = denseBlob
	snap.DenseMetadataBlob = denseMeta
	snap.SparseIndexBlob = sparseBlob
	snap.Manifest = manifest
	return snap, nil
}

// Save atomically writes all three index blobs and the manifest. Save
// failures are non-fatal per spec.md §7's IndexSaveError policy: the
// caller should warn and continue operating in-memory; Save itself
// just reports the error for the caller to classify.
func (m *Manager) Save(snap Snapshot) error {
	p := pathsFor(m.dir)

	if err := atomicWrite(p.DenseIndex, snap.DenseIndexBlob); err != nil {
		return engineerr.WrapKind("cache.Save", engineerr.ErrIndexSaveError, err)
	}
	if err := atomicWrite(p.DenseMetadata, snap.DenseMetadataBlob); err != nil {
		return engineerr.WrapKind("cache.Save", engineerr.ErrIndexSaveError, err)
	}
	if err := atomicWrite(p.SparseIndex, snap.SparseIndexBlob); err != nil {
		return engineerr.WrapKind("cache.Save", engineerr.ErrIndexSaveError, err)
	}
	if err := writeManifest(p.Manifest, snap.Manifest); err != nil {
		return engineerr.WrapKind("cache.Save", engineerr.ErrIndexSaveError, err)
	}
	return nil
}

// NewManifest builds a Manifest stamped with the current time.
func NewManifest(documentCount int, buildTime float64) Manifest {
	return Manifest{Timestamp: nowUnix(), DocumentCount: documentCount, BuildTime: buildTime}
}

func (m *Manager) String() string {
	return fmt.Sprintf("cache.Manager{dir=%s}", m.dir)
}
