package hybrid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	results []Result
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if k < len(s.results) {
		return s.results[:k], nil
	}
	return s.results, nil
}

func TestFuseWeightedSumDeterministic(t *testing.T) {
	dense := &stubSearcher{results: []Result{{DocID: "d1", Score: 0.9}, {DocID: "d2", Score: 0.5}}}
	sparse := &stubSearcher{results: []Result{{DocID: "d2", Score: 3.0}, {DocID: "d3", Score: 1.0}}}

	cfg := DefaultConfig()
	fs, err := New(dense, sparse, cfg)
	require.NoError(t, err)

	hits, mode, err := fs.Search(context.Background(), "query text", 0)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, ModeHybrid, mode)

	hits2, mode2, err := fs.Search(context.Background(), "query text", 0)
	require.NoError(t, err)
	assert.Equal(t, hits, hits2)
	assert.Equal(t, mode, mode2)
}

// TestWeightedSumNormalizesOverUnionNotPerEngineSlice exercises the
// case dense/sparse only partially overlap: a doc that only one engine
// returns must not shift the other engine's min/max away from what the
// full union (missing side padded to 0.0) would produce.
func TestWeightedSumNormalizesOverUnionNotPerEngineSlice(t *testing.T) {
	dense := &stubSearcher{results: []Result{{DocID: "d1", Score: 10.0}, {DocID: "d2", Score: 0.0}}}
	sparse := &stubSearcher{results: []Result{{DocID: "d3", Score: 5.0}}}

	cfg := DefaultConfig()
	cfg.VectorWeight, cfg.KeywordWeight = 1.0, 1.0
	fs, err := New(dense, sparse, cfg)
	require.NoError(t, err)

	hits, _, err := fs.Search(context.Background(), "query", 0)
	require.NoError(t, err)

	byID := make(map[string]float64, len(hits))
	for _, h := range hits {
		byID[h.DocID] = h.Score
	}

	// Union is {d1:10, d2:0, d3:0} on the dense axis and {d1:0, d2:0,
	// d3:5} on the sparse axis. Dense normalizes over [0,10]: d1=1.0,
	// d2=0.0, d3=0.0 (absent -> 0 raw, mapped to (0-0)/10=0). Sparse
	// normalizes over [0,5]: d1=0, d2=0, d3=1.0.
	assert.InDelta(t, 1.0, byID["d1"], 1e-9)
	assert.InDelta(t, 0.0, byID["d2"], 1e-9)
	assert.InDelta(t, 1.0, byID["d3"], 1e-9)
}

func TestFuseRRF(t *testing.T) {
	dense := &stubSearcher{results: []Result{{DocID: "d1", Score: 0.9}, {DocID: "d2", Score: 0.5}}}
	sparse := &stubSearcher{results: []Result{{DocID: "d2", Score: 3.0}, {DocID: "d3", Score: 1.0}}}

	cfg := DefaultConfig()
	cfg.Fusion = FusionRRF
	fs, err := New(dense, sparse, cfg)
	require.NoError(t, err)

	hits, _, err := fs.Search(context.Background(), "query", 0)
	require.NoError(t, err)
	// d2 appears in both legs at good ranks, should outrank d3 (sparse-only, worse rank).
	var d2Score, d3Score float64
	for _, h := range hits {
		if h.DocID == "d2" {
			d2Score = h.Score
		}
		if h.DocID == "d3" {
			d3Score = h.Score
		}
	}
	assert.Greater(t, d2Score, d3Score)
}

// TestRRFIsUnweighted pins spec.md's unweighted RRF formula: skewing
// VectorWeight/KeywordWeight away from their defaults must not change
// RRF's combined score at all.
func TestRRFIsUnweighted(t *testing.T) {
	dense := &stubSearcher{results: []Result{{DocID: "d1", Score: 0.9}}}
	sparse := &stubSearcher{results: []Result{{DocID: "s1", Score: 1.0}}}

	cfg := DefaultConfig()
	cfg.Fusion = FusionRRF
	cfg.VectorWeight, cfg.KeywordWeight = 0.9, 0.1

	fs, err := New(dense, sparse, cfg)
	require.NoError(t, err)

	hits, _, err := fs.Search(context.Background(), "query", 0)
	require.NoError(t, err)

	want := 1.0 / float64(cfg.RRFConstant+1)
	for _, h := range hits {
		assert.InDelta(t, want, h.Score, 1e-9)
	}
}

func TestFuseDegradesOnSingleLegFailure(t *testing.T) {
	dense := &stubSearcher{err: errors.New("boom")}
	sparse := &stubSearcher{results: []Result{{DocID: "s1", Score: 1.0}}}

	fs, err := New(dense, sparse, DefaultConfig())
	require.NoError(t, err)

	hits, mode, err := fs.Search(context.Background(), "query", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "s1", hits[0].DocID)
	assert.Equal(t, ModeSparseOnly, mode)
}

func TestFuseFailsWhenBothLegsFail(t *testing.T) {
	dense := &stubSearcher{err: errors.New("dense down")}
	sparse := &stubSearcher{err: errors.New("sparse down")}

	fs, err := New(dense, sparse, DefaultConfig())
	require.NoError(t, err)

	_, _, err = fs.Search(context.Background(), "query", 0)
	assert.Error(t, err)
}

func TestAdaptiveClassifiesShortQueryAsKeywordWeighted(t *testing.T) {
	vw, kw := classify("diabetes", 0.6, 0.4)
	assert.Equal(t, 0.3, vw)
	assert.Equal(t, 0.7, kw)
}

func TestAdaptiveClassifiesDomainTermAsVectorWeighted(t *testing.T) {
	vw, kw := classify("what are common symptoms of chronic disease progression", 0.6, 0.4)
	assert.Equal(t, 0.7, vw)
	assert.Equal(t, 0.3, kw)
}

func TestTieBreakOrdersByDenseRankThenSparseRankThenDocID(t *testing.T) {
	dense := &stubSearcher{results: []Result{{DocID: "b", Score: 1.0}, {DocID: "a", Score: 1.0}}}
	sparse := &stubSearcher{results: []Result{}}

	cfg := DefaultConfig()
	fs, err := New(dense, sparse, cfg)
	require.NoError(t, err)

	hits, _, err := fs.Search(context.Background(), "query", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b", hits[0].DocID)
	assert.Equal(t, "a", hits[1].DocID)
}
