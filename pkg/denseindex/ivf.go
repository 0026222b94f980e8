package denseindex

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// IVF is the inverted-file dense index of spec.md §4.C: a coarse
// quantizer partitions vectors into nlist cells; search visits the
// nprobe nearest cells. Grounded on the teacher's
// pkg/index/ivf.go (k-means++ training, inverted lists,
// findNearestCentroid), adapted to score by inner product (the
// vectors are unit-norm, so nearest-by-Euclidean-distance and
// highest-by-inner-product agree) and to the ids-aligned-by-position
// persistence contract.
type IVF struct {
	dim       int
	nlist     int
	nprobe    int
	trained   bool
	centroids [][]float32
	invlists  [][]int
	ids       []string
	vectors   [][]float32
}

// NewIVF constructs an untrained IVF index with nlist coarse cells.
// nprobe defaults to min(10, nlist) per spec.md §4.C.
func NewIVF(dim, nlist int) *IVF {
	return &IVF{
		dim:    dim,
		nlist:  nlist,
		nprobe: minInt(nlist, 10),
	}
}

func (ivf *IVF) Kind() Kind          { return KindIVF }
func (ivf *IVF) Dimension() int      { return ivf.dim }
func (ivf *IVF) IsTrained() bool     { return ivf.trained }
func (ivf *IVF) NList() int          { return ivf.nlist }
func (ivf *IVF) Size() int           { return len(ivf.vectors) }
func (ivf *IVF) DocIDs() []string    { return ivf.ids }
func (ivf *IVF) Vectors() [][]float32 { return ivf.vectors }

// SetNProbe overrides the number of cells visited per search.
func (ivf *IVF) SetNProbe(n int) { ivf.nprobe = minInt(n, ivf.nlist) }

// Train fits nlist centroids via k-means++ over sample. Must be called
// once, before Add, per spec.md §4.C's train-then-add lifecycle.
func (ivf *IVF) Train(sample [][]float32) error {
	if ivf.trained {
		return ErrAlreadyTrained
	}
	if len(sample) < ivf.nlist {
		return fmt.Errorf("denseindex: need at least %d training vectors, got %d", ivf.nlist, len(sample))
	}
	centroids, err := kMeansPlusPlus(sample, ivf.nlist, 20)
	if err != nil {
		return err
	}
	ivf.centroids = centroids
	ivf.invlists = make([][]int, ivf.nlist)
	ivf.trained = true
	return nil
}

func (ivf *IVF) Add(ids []string, vectors [][]float32, warnFn func(id, reason string)) error {
	if !ivf.trained {
		return ErrNotTrained
	}
	for i, v := range vectors {
		id := ids[i]
		if len(v) != ivf.dim {
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
		cell := ivf.nearestCentroid(v)
		vecIdx := len(ivf.vectors)
		ivf.invlists[cell] = append(ivf.invlists[cell], vecIdx)
		ivf.vectors = append(ivf.vectors, v)
		ivf.ids = append(ivf.ids, id)
	}
	return nil
}

func (ivf *IVF) Search(query []float32, k int) ([]Hit, error) {
	if !ivf.trained {
		return nil, ErrNotTrained
	}
	if len(query) == 0 {
		return nil, ErrEmptyQuery
	}
	if len(query) != ivf.dim {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 {
		return nil, nil
	}

	type cellDist struct {
		idx  int
		dist float32
	}
	cells := make([]cellDist, ivf.nlist)
	for i, c := range ivf.centroids {
		cells[i] = cellDist{i, euclideanDistance(query, c)}
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].dist < cells[j].dist })

	nprobe := minInt(ivf.nprobe, ivf.nlist)

	type candidate struct {
		vecIdx int
		score  float32
	}
	var candidates []candidate
	for i := 0; i < nprobe; i++ {
		for _, vecIdx := range ivf.invlists[cells[i].idx] {
			candidates = append(candidates, candidate{vecIdx, innerProduct(query, ivf.vectors[vecIdx])})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].vecIdx < candidates[j].vecIdx
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	hits := make([]Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = Hit{DocID: ivf.ids[c.vecIdx], Score: c.score}
	}
	return hits, nil
}

func (ivf *IVF) nearestCentroid(v []float32) int {
	best, bestDist := 0, float32(math.MaxFloat32)
	for i, c := range ivf.centroids {
		d := euclideanDistance(v, c)
		if d < bestDist {
			bestDist, best = d, i
		}
	}
	return best
}

// restore rebuilds full IVF state (centroids, inverted lists, vectors,
// ids) from a deserialized snapshot, for the cache manager's load path.
func (ivf *IVF) restore(centroids [][]float32, invlists [][]int, ids []string, vectors [][]float32, trained bool) {
	ivf.centroids = centroids
	ivf.invlists = invlists
	ivf.ids = ids
	ivf.vectors = vectors
	ivf.trained = trained
}

func kMeansPlusPlus(vectors [][]float32, k, maxIters int) ([][]float32, error) {
	if len(vectors) < k {
		return nil, fmt.Errorf("denseindex: need at least %d vectors, got %d", k, len(vectors))
	}
	dim := len(vectors[0])

	centroids := make([][]float32, k)
	centroids[0] = append([]float32(nil), vectors[rand.Intn(len(vectors))]...)

	for i := 1; i < k; i++ {
		distances := make([]float32, len(vectors))
		var total float32
		for j, v := range vectors {
			minDist := float32(math.MaxFloat32)
			for c := 0; c < i; c++ {
				if d := euclideanDistance(v, centroids[c]); d < minDist {
					minDist = d
				}
			}
			distances[j] = minDist * minDist
			total += distances[j]
		}
		r := rand.Float32() * total
		var cum float32
		for j, d := range distances {
			cum += d
			if cum >= r {
				centroids[i] = append([]float32(nil), vectors[j]...)
				break
			}
		}
		if centroids[i] == nil {
			centroids[i] = append([]float32(nil), vectors[len(vectors)-1]...)
		}
	}

	assignments := make([]int, len(vectors))
	for iter := 0; iter < maxIters; iter++ {
		changed := false
		for i, v := range vectors {
			best, bestDist := 0, float32(math.MaxFloat32)
			for j, c := range centroids {
				if d := euclideanDistance(v, c); d < bestDist {
					bestDist, best = d, j
				}
			}
			if assignments[i] != best {
				changed = true
				assignments[i] = best
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		sums := make([][]float32, k)
		for i := range sums {
			sums[i] = make([]float32, dim)
		}
		for i, v := range vectors {
			c := assignments[i]
			counts[c]++
			for d := 0; d < dim; d++ {
				sums[c][d] += v[d]
			}
		}
		for i := range centroids {
			if counts[i] == 0 {
				continue
			}
			for d := 0; d < dim; d++ {
				sums[i][d] /= float32(counts[i])
			}
			centroids[i] = sums[i]
		}
	}

	return centroids, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
