package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrag/retrieval/pkg/generator"
	"github.com/medrag/retrieval/pkg/hybrid"
	"github.com/medrag/retrieval/pkg/ingest"
)

type fakeSearcher struct {
	calls   int
	results []hybrid.Result
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, k int) ([]hybrid.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func docs() []ingest.Document {
	return []ingest.Document{
		{ID: "a_0", Title: "Alpha", Content: "alpha content", SourceTag: "a"},
		{ID: "b_0", Title: "Beta", Content: "beta content", SourceTag: "b"},
	}
}

func TestQueryHybridSuccess(t *testing.T) {
	dense := &fakeSearcher{results: []hybrid.Result{{DocID: "a_0", Score: 0.9}}}
	sparse := &fakeSearcher{results: []hybrid.Result{{DocID: "b_0", Score: 0.5}}}
	fused, err := hybrid.New(dense, sparse, hybrid.DefaultConfig())
	require.NoError(t, err)

	f := New(fused, dense, sparse, docs(), []string{"a", "b"}, generator.NewTemplate())
	res, err := f.Query(context.Background(), "query text", 5, "")
	require.NoError(t, err)

	assert.Equal(t, EngineHybrid, res.Metadata.Engine)
	assert.NotEmpty(t, res.RetrievedDocuments)
	assert.Equal(t, "hybrid", f.State())
	assert.Empty(t, res.Error)
}

func TestQueryDegradesToDenseOnlyOnHybridFailure(t *testing.T) {
	dense := &fakeSearcher{results: []hybrid.Result{{DocID: "a_0", Score: 0.9}}}
	sparse := &fakeSearcher{err: errors.New("sparse down")}
	denseTotal := &fakeSearcher{err: errors.New("dense down for the hybrid leg")}
	fused, err := hybrid.New(denseTotal, sparse, hybrid.DefaultConfig())
	require.NoError(t, err)

	f := New(fused, dense, sparse, docs(), []string{"a", "b"}, generator.NewTemplate())

	res, err := f.Query(context.Background(), "query text", 5, "")
	require.NoError(t, err)
	assert.Equal(t, EngineDenseFallback, res.Metadata.Engine)
	assert.Equal(t, "degraded_dense", f.State())

	// A second query should go straight to the dense-only leg without
	// attempting the hybrid path again.
	callsBefore := denseTotal.calls
	res2, err := f.Query(context.Background(), "another query", 5, "")
	require.NoError(t, err)
	assert.Equal(t, callsBefore, denseTotal.calls)
	assert.Equal(t, EngineDenseFallback, res2.Metadata.Engine)
}

// TestQuerySingleLegFailureInsideHybridTagsFallbackNotHybrid covers the
// case where the hybrid searcher has both legs wired but only one
// fails for this call (the sibling survives) - the result is a real
// degradation and must be tagged as such, not reported as "hybrid".
func TestQuerySingleLegFailureInsideHybridTagsFallbackNotHybrid(t *testing.T) {
	dense := &fakeSearcher{err: errors.New("dense down for this call only")}
	sparse := &fakeSearcher{results: []hybrid.Result{{DocID: "b_0", Score: 0.5}}}
	fused, err := hybrid.New(dense, sparse, hybrid.DefaultConfig())
	require.NoError(t, err)

	denseOnly := &fakeSearcher{results: []hybrid.Result{{DocID: "a_0", Score: 0.9}}}
	f := New(fused, denseOnly, sparse, docs(), []string{"a", "b"}, generator.NewTemplate())

	res, err := f.Query(context.Background(), "query text", 5, "")
	require.NoError(t, err)

	assert.Equal(t, EngineSparseFallback, res.Metadata.Engine)
	assert.Equal(t, "degraded_sparse", f.State())
}

func TestQueryErrorResultWhenAllLegsFail(t *testing.T) {
	dense := &fakeSearcher{err: errors.New("dense down")}
	sparse := &fakeSearcher{err: errors.New("sparse down")}
	fused, err := hybrid.New(dense, sparse, hybrid.DefaultConfig())
	require.NoError(t, err)

	f := New(fused, dense, sparse, docs(), []string{"a", "b"}, generator.NewTemplate())
	res, err := f.Query(context.Background(), "query text", 5, "")
	require.NoError(t, err)

	assert.True(t, res.Metadata.Error)
	assert.Equal(t, generator.ApologyMessage, res.Answer)
	assert.Empty(t, res.RetrievedDocuments)
	assert.Equal(t, "error_only", f.State())

	// Once in error_only, subsequent queries stay there without
	// retrying either leg.
	_, err = f.Query(context.Background(), "again", 5, "")
	require.NoError(t, err)
	assert.Equal(t, "error_only", f.State())
}
