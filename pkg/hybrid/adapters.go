package hybrid

import (
	"context"

	"github.com/medrag/retrieval/pkg/denseindex"
	"github.com/medrag/retrieval/pkg/embedding"
	"github.com/medrag/retrieval/pkg/sparseindex"
)

// DenseSearcher adapts an embedding client and a dense index to the
// Searcher contract: embed the query text, then search.
type DenseSearcher struct {
	Embedder *embedding.Client
	Index    denseindex.Index
}

func (d *DenseSearcher) Search(ctx context.Context, query string, k int) ([]Result, error) {
	vec, err := d.Embedder.Embed(ctx, query, embedding.RoleQuery)
	if err != nil {
		return nil, err
	}
	hits, err := d.Index.Search(vec, k)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = Result{DocID: h.DocID, Score: float64(h.Score)}
	}
	return out, nil
}

// SparseSearcher adapts a BM25 index to the Searcher contract.
type SparseSearcher struct {
	Index *sparseindex.Index
}

func (s *SparseSearcher) Search(ctx context.Context, query string, k int) ([]Result, error) {
	hits, err := s.Index.Search(query, k)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = Result{DocID: h.DocID, Score: h.Score, MatchedTerms: h.MatchedTokens}
	}
	return out, nil
}
