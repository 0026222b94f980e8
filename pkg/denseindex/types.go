// Package denseindex implements the dense vector index of spec.md
// §4.C: unit-norm vectors searched by inner product, with Flat (exact)
// and IVF (coarse-quantized) variants sharing a persistence format.
package denseindex

import (
	"errors"
	"math"
)

// Kind selects the dense index construction.
type Kind string

const (
	KindFlat Kind = "flat"
	KindIVF  Kind = "ivf"
)

// Hit is one search result: a document id and its inner-product score.
type Hit struct {
	DocID string
	Score float32
}

var (
	ErrDimensionMismatch = errors.New("denseindex: dimension mismatch")
	ErrNotTrained        = errors.New("denseindex: index not trained")
	ErrAlreadyTrained    = errors.New("denseindex: index already trained")
	ErrEmptyQuery        = errors.New("denseindex: empty query vector")
)

// Index is the shared contract both Flat and IVF implement.
type Index interface {
	Kind() Kind
	Dimension() int
	IsTrained() bool
	NList() int
	// Train fits any coarse quantizer on sample vectors. A no-op
	// (returning nil) for Flat.
	Train(sample [][]float32) error
	// Add appends vectors with their aligned ids. Entries that are not
	// unit-norm or not of Dimension() are dropped; warnFn, if non-nil,
	// is called once per dropped entry.
	Add(ids []string, vectors [][]float32, warnFn func(id string, reason string)) error
	// Search returns up to k hits ordered by decreasing score, ties
	// broken by ascending insertion order.
	Search(query []float32, k int) ([]Hit, error)
	Size() int
	// DocIDs returns the aligned document id list, in insertion order.
	DocIDs() []string
	// Vectors returns the aligned stored vectors, in insertion order.
	Vectors() [][]float32
}

const unitNormEpsilon = 1e-3

func isUnitNorm(v []float32) bool {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	return math.Abs(norm-1) <= unitNormEpsilon
}

func innerProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func euclideanDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return float32(math.Sqrt(float64(sum)))
}
