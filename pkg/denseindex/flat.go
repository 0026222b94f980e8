package denseindex

import "sort"

// Flat is the exact inner-product dense index: brute-force search over
// every stored vector. Grounded on the teacher's pkg/index/flat.go,
// generalized to the unit-norm-only, ids-aligned-by-position contract
// of spec.md §4.C.
type Flat struct {
	dim     int
	ids     []string
	vectors [][]float32
}

// NewFlat constructs an empty Flat index of the given dimension.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

func (f *Flat) Kind() Kind       { return KindFlat }
func (f *Flat) Dimension() int   { return f.dim }
func (f *Flat) IsTrained() bool  { return true }
func (f *Flat) NList() int       { return 0 }
func (f *Flat) Size() int        { return len(f.vectors) }
func (f *Flat) DocIDs() []string { return f.ids }
func (f *Flat) Vectors() [][]float32 { return f.vectors }

// Train is a no-op for Flat.
func (f *Flat) Train(sample [][]float32) error { return nil }

func (f *Flat) Add(ids []string, vectors [][]float32, warnFn func(id, reason string)) error {
	for i, v := range vectors {
		id := ids[i]
		if len(v) != f.dim {
			if warnFn != nil {
				warnFn(id, "dimension mismatch")
			}
			continue
		}
		if !isUnitNorm(v) {
			if warnFn != nil {
				warnFn(id, "not unit-norm")
			}
			continue
		}
		f.ids = append(f.ids, id)
		f.vectors = append(f.vectors, v)
	}
	return nil
}

func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) == 0 {
		return nil, ErrEmptyQuery
	}
	if len(query) != f.dim {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{DocID: f.ids[i], Score: innerProduct(query, v)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// restore rebuilds the index's state directly, bypassing validation,
// for use by the cache manager's load path where vectors were already
// validated at save time.
func (f *Flat) restore(ids []string, vectors [][]float32) {
	f.ids = ids
	f.vectors = vectors
}
