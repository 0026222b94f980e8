package hybrid

import (
	"fmt"
	"sort"
	"strings"
)

// domainTriggerTerms is the implementation-supplied list of query
// terms that bias adaptive fusion toward the dense leg, per spec.md
// §4.F/§9 (the source's hard-coded Indonesian medical term list,
// supplemented with English equivalents for the mixed-language
// corpus). Left non-configurable, matching the Open Question's
// resolution in DESIGN.md.
var domainTriggerTerms = []string{
	"penyakit", "gejala", "diagnosis", "pengobatan", "terapi",
	"disease", "symptom", "diagnosis", "treatment", "therapy",
}

// classify implements spec.md §4.F's adaptive heuristic: short queries
// (≤3 tokens) or quoted phrases bias toward keyword; domain trigger
// terms bias toward vector; otherwise the configured defaults apply.
func classify(query string, defaultVW, defaultKW float64) (vw, kw float64) {
	fields := strings.Fields(query)
	isShort := len(fields) <= 3
	hasPhrase := strings.Contains(query, `"`)
	if isShort || hasPhrase {
		return 0.3, 0.7
	}

	lower := strings.ToLower(query)
	for _, term := range domainTriggerTerms {
		if strings.Contains(lower, term) {
			return 0.7, 0.3
		}
	}
	return defaultVW, defaultKW
}

// fuse builds the doc_id union of dense/sparse results and applies the
// configured fusion strategy, returning results sorted by the §4.F
// three-level tie-break: combined score descending, then dense rank
// ascending, then sparse rank ascending, then lexicographic doc_id.
func fuse(dense, sparse []Result, cfg Config) []Hit {
	union := make(map[string]*Hit)
	order := make([]string, 0)

	for i, r := range dense {
		h := &Hit{DocID: r.DocID, InDense: true, DenseRank: i + 1}
		union[r.DocID] = h
		order = append(order, r.DocID)
	}
	for i, r := range sparse {
		if h, ok := union[r.DocID]; ok {
			h.InSparse = true
			h.SparseRank = i + 1
			h.MatchedTerms = r.MatchedTerms
		} else {
			h := &Hit{DocID: r.DocID, InSparse: true, SparseRank: i + 1, MatchedTerms: r.MatchedTerms}
			union[r.DocID] = h
			order = append(order, r.DocID)
		}
	}

	vw, kw := cfg.VectorWeight, cfg.KeywordWeight
	switch cfg.Fusion {
	case FusionRRF:
		applyRRF(union, dense, sparse, cfg.RRFConstant)
	case FusionAdaptive:
		// classify is applied by the caller (Search), which replaces
		// the weights in cfg before calling fuse on the two-leg path;
		// adaptive then scores exactly like weighted_sum. See Search.
		fallthrough
	case FusionWeightedSum:
		applyWeightedSum(union, order, dense, sparse, vw, kw)
	default:
		applyWeightedSum(union, order, dense, sparse, vw, kw)
	}

	hits := make([]Hit, 0, len(order))
	for _, id := range order {
		hits = append(hits, *union[id])
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		di, dj := rankOrInf(hits[i].DenseRank), rankOrInf(hits[j].DenseRank)
		if di != dj {
			return di < dj
		}
		si, sj := rankOrInf(hits[i].SparseRank), rankOrInf(hits[j].SparseRank)
		if si != sj {
			return si < sj
		}
		return hits[i].DocID < hits[j].DocID
	})

	return hits
}

func rankOrInf(rank int) int {
	if rank == 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}

// applyRRF implements spec.md §4.F's reciprocal-rank-fusion score:
// combined = 1/(C+rank_v) + 1/(C+rank_k), unweighted — RRF does not
// take VectorWeight/KeywordWeight, matching
// original_source/rag-system/hybrid_search_engine.py's
// _reciprocal_rank_fusion, which sums 1.0/(k+rank) with no weight
// factor.
func applyRRF(union map[string]*Hit, dense, sparse []Result, c int) {
	for i := range dense {
		h := union[dense[i].DocID]
		h.Score += 1.0 / float64(c+i+1)
	}
	for i := range sparse {
		h := union[sparse[i].DocID]
		h.Score += 1.0 / float64(c+i+1)
	}
}

// applyWeightedSum implements spec.md §4.F's weighted_sum strategy:
// each engine's raw scores are min-max normalized into [0,1] over the
// full doc_id union (order), with the engine that didn't return a
// given id treated as a 0.0 score for that id — not just over that
// engine's own result slice. Grounded on
// original_source/rag-system/hybrid_search_engine.py's
// _weighted_sum_rerank, which builds vector_scores/keyword_scores
// arrays over every doc in the combined result set before calling
// MinMaxScaler.
func applyWeightedSum(union map[string]*Hit, order []string, dense, sparse []Result, vw, kw float64) {
	denseNorm := minMaxNormalizeUnion(order, toScoreByID(dense))
	sparseNorm := minMaxNormalizeUnion(order, toScoreByID(sparse))

	for _, id := range order {
		union[id].Score += vw*denseNorm[id] + kw*sparseNorm[id]
	}
}

func toScoreByID(results []Result) map[string]float64 {
	m := make(map[string]float64, len(results))
	for _, r := range results {
		m[r.DocID] = r.Score
	}
	return m
}

// minMaxNormalizeUnion scales byID's scores into [0,1] over every id
// in order, treating an id absent from byID as a 0.0 raw score. An
// empty order or a constant score across the union normalizes every
// entry to 0, matching the source's zero-vector-of-scores guard.
func minMaxNormalizeUnion(order []string, byID map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(order))
	if len(order) == 0 {
		return out
	}
	min, max := byID[order[0]], byID[order[0]]
	for _, id := range order {
		s := byID[id]
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	span := max - min
	for _, id := range order {
		if span == 0 {
			out[id] = 0
			continue
		}
		out[id] = (byID[id] - min) / span
	}
	return out
}

func validateConfig(cfg Config) error {
	if cfg.FinalTopK <= 0 {
		return fmt.Errorf("hybrid: final_top_k must be positive")
	}
	return nil
}
