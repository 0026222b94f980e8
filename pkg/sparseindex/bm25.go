// Package sparseindex implements the BM25 sparse index of spec.md
// §4.D, grounded on original_source/rag-system/bm25_search.py's
// BM25Okapi-equivalent formula and frozen-after-add lifecycle.
package sparseindex

import (
	"errors"
	"math"
	"sort"

	"github.com/medrag/retrieval/pkg/tokenizer"
)

// Config holds the BM25 parameters of spec.md §4.D.
type Config struct {
	K1 float64
	B  float64
}

// DefaultConfig returns k1=1.2, b=0.75.
func DefaultConfig() Config {
	return Config{K1: 1.2, B: 0.75}
}

// Doc is a document as handed to Add: id plus the raw title/content
// fields the index combines and tokenizes itself, per spec.md §4.D.
type Doc struct {
	ID      string
	Title   string
	Content string
}

// Hit is one search result, carrying the diagnostic subset of query
// tokens actually found in the document per spec.md §4.D.
type Hit struct {
	DocID        string
	Score        float64
	MatchedTokens []string
}

var ErrNotBuilt = errors.New("sparseindex: index not built")

// Index is the frozen-after-bulk-add BM25 model.
type Index struct {
	cfg Config
	tok *tokenizer.Tokenizer

	docIDs     []string
	docTokens  [][]string
	docFreq    map[string]int // n(t): number of docs containing term t
	avgdl      float64
	built      bool
}

// New constructs an Index with cfg's parameters, tokenizing documents
// with tok. If tok is nil, a default tokenizer.New() is used.
func New(cfg Config, tok *tokenizer.Tokenizer) *Index {
	if tok == nil {
		tok = tokenizer.New()
	}
	return &Index{cfg: cfg, tok: tok, docFreq: make(map[string]int)}
}

// Add bulk-builds the model from docs. Documents whose token stream is
// empty are dropped. The model is frozen after this call; calling Add
// again replaces the model entirely (no incremental add in this spec).
func (idx *Index) Add(docs []Doc) {
	idx.docIDs = idx.docIDs[:0]
	idx.docTokens = idx.docTokens[:0]
	idx.docFreq = make(map[string]int)

	var totalLen int
	for _, d := range docs {
		tokens := idx.tok.Tokenize(d.Title + " " + d.Content)
		if len(tokens) == 0 {
			continue
		}
		idx.docIDs = append(idx.docIDs, d.ID)
		idx.docTokens = append(idx.docTokens, tokens)
		totalLen += len(tokens)

		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			idx.docFreq[t]++
		}
	}

	if len(idx.docIDs) > 0 {
		idx.avgdl = float64(totalLen) / float64(len(idx.docIDs))
	}
	idx.built = true
}

// Size returns the number of indexed documents.
func (idx *Index) Size() int { return len(idx.docIDs) }

// Search tokenizes query and returns up to k documents with strictly
// positive BM25 score, ordered by decreasing score.
func (idx *Index) Search(query string, k int) ([]Hit, error) {
	if !idx.built {
		return nil, ErrNotBuilt
	}
	queryTokens := idx.tok.Tokenize(query)
	if len(queryTokens) == 0 || k <= 0 {
		return nil, nil
	}

	n := float64(len(idx.docIDs))
	scores := make([]float64, len(idx.docIDs))
	matched := make([][]string, len(idx.docIDs))

	uniqueQuery := dedupe(queryTokens)

	for _, term := range uniqueQuery {
		nt := float64(idx.docFreq[term])
		idf := math.Log((n-nt+0.5)/(nt+0.5) + 1)

		for di, tokens := range idx.docTokens {
			f := termFrequency(tokens, term)
			if f == 0 {
				continue
			}
			dl := float64(len(tokens))
			denom := f + idx.cfg.K1*(1-idx.cfg.B+idx.cfg.B*dl/idx.avgdl)
			scores[di] += idf * (f * (idx.cfg.K1 + 1)) / denom
			matched[di] = append(matched[di], term)
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	var candidates []scored
	for i, s := range scores {
		if s > 0 {
			candidates = append(candidates, scored{i, s})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	hits := make([]Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = Hit{DocID: idx.docIDs[c.idx], Score: c.score, MatchedTokens: matched[c.idx]}
	}
	return hits, nil
}

func termFrequency(tokens []string, term string) float64 {
	var count float64
	for _, t := range tokens {
		if t == term {
			count++
		}
	}
	return count
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
