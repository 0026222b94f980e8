// Package engine implements the Retrieval Facade of spec.md §4.H and
// the Fallback Controller of §4.I: the single public entry point that
// wires the hybrid searcher, its single-leg (dense-only and
// sparse-only) searchers, the document set and the generator into one
// Query call, degrading gracefully instead of propagating internal
// failures.
// Grounded on pkg/core/embedding.go's Store facade (one method per
// public operation, internal collaborators unexported) and
// pkg/core/advanced_search.go's HybridSearch call shape.
package engine

import "github.com/medrag/retrieval/pkg/ingest"

// Passage is one retrieved document as surfaced to the caller, per
// spec.md §4.H's QueryResult.retrieved_documents shape.
type Passage struct {
	Title           string  `json:"title"`
	Source          string  `json:"source"`
	ContentPreview  string  `json:"content_preview"`
	Score           float64 `json:"score"`
	RetrievalMethod string  `json:"retrieval_method"`
	Reference       string  `json:"reference"`
}

// maxPreviewLength bounds Passage.ContentPreview per spec.md §4.H.
const maxPreviewLength = 200

func buildPreview(content string) string {
	r := []rune(content)
	if len(r) <= maxPreviewLength {
		return content
	}
	return string(r[:maxPreviewLength])
}

func newPassage(d ingest.Document, score float64, method string) Passage {
	return Passage{
		Title:           d.Title,
		Source:          d.SourceTag,
		ContentPreview:  buildPreview(d.Content),
		Score:           score,
		RetrievalMethod: method,
		Reference:       d.ID,
	}
}

// Performance carries the per-phase timing breakdown of spec.md §4.H.
type Performance struct {
	SearchTimeSeconds     float64 `json:"search_time_seconds"`
	GenerationTimeSeconds float64 `json:"generation_time_seconds"`
	TotalTimeSeconds      float64 `json:"total_time_seconds"`
}

// Metadata carries the diagnostic fields of spec.md §4.H, plus the
// error-path fields of §7's structured error result.
type Metadata struct {
	NumRetrievedDocs        int         `json:"num_retrieved_docs"`
	DataSources             []string    `json:"data_sources"`
	TotalDocumentsAvailable int         `json:"total_documents_available"`
	TopScore                float64     `json:"top_score"`
	Performance             Performance `json:"performance"`
	Engine                  string      `json:"engine"`
	Error                   bool        `json:"error,omitempty"`
}

// QueryResult is the full return value of Query, per spec.md §4.H/§7.
type QueryResult struct {
	Answer             string    `json:"response"`
	RetrievedDocuments []Passage `json:"retrieved_documents"`
	Query              string    `json:"query"`
	Metadata           Metadata  `json:"metadata"`
	Error              string    `json:"error,omitempty"`
}

// Engine tags used in Metadata.Engine. §4.H names hybrid/dense/
// sparse_fallback; dense_fallback is the symmetric counterpart spec.md
// §8 Scenario 5 allows. Query reports dense_fallback/sparse_fallback
// both when only one leg survived inside a hybrid call and when the
// controller has already degraded to a single-leg retriever; Query
// never reports EngineDense.
const (
	EngineHybrid         = "hybrid"
	EngineDense          = "dense"
	EngineDenseFallback  = "dense_fallback"
	EngineSparseFallback = "sparse_fallback"
	EngineErrorOnly      = "error_only"
)
