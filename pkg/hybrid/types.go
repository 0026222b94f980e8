// Package hybrid implements the Hybrid Searcher of spec.md §4.F: a
// concurrent dense+sparse fan-out with three selectable fusion
// strategies. Grounded on
// _examples/Aman-CERP-amanmcp/pkg/searcher/fusion.go's
// FusionSearcher/fuseResults pattern (errgroup fan-out with per-leg
// graceful degradation, RRF accumulation), extended with
// weighted_sum/adaptive strategies from
// original_source/rag-system/hybrid_search_engine.py and the spec's
// exact three-level tie-break.
package hybrid

import "context"

// Result is one engine's hit before fusion: a document id, its raw
// score, and (for the sparse leg) the matched query tokens.
type Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// Searcher is the shared contract for both legs; the dense leg embeds
// the query text before searching, the sparse leg tokenizes it — both
// details are internal to each adapter.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

// Fusion selects the re-ranking strategy of spec.md §4.F.
type Fusion string

const (
	FusionWeightedSum Fusion = "weighted_sum"
	FusionRRF         Fusion = "reciprocal_rank_fusion"
	FusionAdaptive    Fusion = "adaptive"
)

// Config holds the Hybrid Searcher's tunables, defaults per spec.md §4.F.
type Config struct {
	VectorWeight  float64
	KeywordWeight float64
	VectorTopK    int
	KeywordTopK   int
	FinalTopK     int
	Fusion        Fusion
	Parallel      bool
	// RRFConstant is C in the reciprocal-rank-fusion formula.
	RRFConstant int
}

// DefaultConfig returns spec.md §4.F's defaults.
func DefaultConfig() Config {
	return Config{
		VectorWeight:  0.6,
		KeywordWeight: 0.4,
		VectorTopK:    20,
		KeywordTopK:   20,
		FinalTopK:     10,
		Fusion:        FusionWeightedSum,
		Parallel:      true,
		RRFConstant:   60,
	}
}

// Hit is one final, fused result with provenance of which engine(s)
// produced it and at what rank, used for the tie-break rule.
type Hit struct {
	DocID        string
	Score        float64
	InDense      bool
	InSparse     bool
	DenseRank    int // 1-indexed; 0 means absent
	SparseRank   int // 1-indexed; 0 means absent
	MatchedTerms []string
}
