package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/medrag/retrieval/internal/engineerr"
	"github.com/medrag/retrieval/internal/obs"
	"github.com/medrag/retrieval/pkg/generator"
	"github.com/medrag/retrieval/pkg/hybrid"
	"github.com/medrag/retrieval/pkg/ingest"
)

// state is the Fallback Controller's position in the forward-only
// machine of spec.md §4.I: HYBRID -> (DEGRADED_DENSE|DEGRADED_SPARSE)
// -> ERROR_ONLY. It never steps backward within a process lifetime.
type state int

const (
	stateHybrid state = iota
	stateDegradedDense
	stateDegradedSparse
	stateErrorOnly
)

// DefaultQueryDeadline is spec.md §4.I's default per-query deadline.
const DefaultQueryDeadline = 30 * time.Second

// Facade is the Retrieval Facade of spec.md §4.H. It owns the Fallback
// Controller's process-lifetime degradation state alongside it, since
// the spec treats the two as one component surfaced through a single
// Query method.
type Facade struct {
	hybrid      *hybrid.FusionSearcher
	denseOnly   hybrid.Searcher
	sparseOnly  hybrid.Searcher
	documents   map[string]ingest.Document
	dataSources []string
	totalDocs   int
	generator   generator.Generator
	logger      obs.Logger
	deadline    time.Duration

	mu    sync.Mutex
	state state
}

// Option configures a Facade at construction.
type Option func(*Facade)

// WithDeadline overrides the default per-query deadline.
func WithDeadline(d time.Duration) Option {
	return func(f *Facade) { f.deadline = d }
}

// WithLogger attaches a logger.
func WithLogger(l obs.Logger) Option {
	return func(f *Facade) { f.logger = l }
}

// New constructs a Facade. fused is the full hybrid searcher;
// denseOnly/sparseOnly back the controller's degraded paths and are
// typically the same adapters fused wraps, built with the other leg
// nil. docs is the full corpus keyed by document id, used to assemble
// passages from hit ids.
func New(fused *hybrid.FusionSearcher, denseOnly, sparseOnly hybrid.Searcher, docs []ingest.Document, dataSources []string, gen generator.Generator, opts ...Option) *Facade {
	byID := make(map[string]ingest.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	f := &Facade{
		hybrid:      fused,
		denseOnly:   denseOnly,
		sparseOnly:  sparseOnly,
		documents:   byID,
		dataSources: dataSources,
		totalDocs:   len(docs),
		generator:   gen,
		logger:      obs.NewNop(),
		deadline:    DefaultQueryDeadline,
		state:       stateHybrid,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State reports the controller's current degradation state, exported
// for diagnostics and tests.
func (f *Facade) State() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case stateDegradedDense:
		return "degraded_dense"
	case stateDegradedSparse:
		return "degraded_sparse"
	case stateErrorOnly:
		return "error_only"
	default:
		return "hybrid"
	}
}

func (f *Facade) currentState() state {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// degrade advances the state machine forward only; it never reverts a
// later state back to an earlier one.
func (f *Facade) degrade(to state) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if to > f.state {
		f.state = to
	}
}

// Query implements spec.md §4.H's Retrieval Facade wrapped by §4.I's
// Fallback Controller: a per-query deadline, and on timeout or
// exception a forward-only degrade to a single-leg retriever: the
// dense-only leg is tried first, then the sparse-only leg, before a
// structured error result is surfaced.
func (f *Facade) Query(ctx context.Context, text string, k int, systemPromptTag string) (QueryResult, error) {
	start := time.Now()
	qctx, cancel := context.WithTimeout(ctx, f.deadline)
	defer cancel()

	hits, engineTag, err := f.searchWithFallback(qctx, text, k)
	searchElapsed := time.Since(start)

	if err != nil {
		f.logger.Error("engine: query failed after fallback exhausted", "query", text, "error", err.Error())
		return f.errorResult(text, err), nil
	}

	passages := make([]Passage, 0, len(hits))
	genPassages := make([]generator.Passage, 0, len(hits))
	var topScore float64
	for i, h := range hits {
		doc, ok := f.documents[h.DocID]
		if !ok {
			continue
		}
		method := engineTag
		if h.InDense && h.InSparse {
			method = "hybrid"
		} else if h.InDense {
			method = "dense"
		} else if h.InSparse {
			method = "sparse"
		}
		passages = append(passages, newPassage(doc, h.Score, method))
		genPassages = append(genPassages, generator.Passage{SourceTag: doc.SourceTag, Title: doc.Title, Content: doc.Content})
		if i == 0 {
			topScore = h.Score
		}
	}

	genStart := time.Now()
	answer, genErr := f.generator.Generate(qctx, systemPromptTag, text, genPassages)
	genElapsed := time.Since(genStart)
	if genErr != nil {
		f.logger.Warn("engine: generator failed, substituting apology", "error", genErr.Error())
		answer = generator.ApologyMessage
	}

	return QueryResult{
		Answer:             answer,
		Query:              text,
		RetrievedDocuments: passages,
		Metadata: Metadata{
			NumRetrievedDocs:        len(passages),
			DataSources:             f.dataSources,
			TotalDocumentsAvailable: f.totalDocs,
			TopScore:                topScore,
			Performance: Performance{
				SearchTimeSeconds:     searchElapsed.Seconds(),
				GenerationTimeSeconds: genElapsed.Seconds(),
				TotalTimeSeconds:      time.Since(start).Seconds(),
			},
			Engine: engineTag,
		},
	}, nil
}

// searchWithFallback executes the state machine: try the strategy for
// the current state, degrading forward and retrying once on failure.
func (f *Facade) searchWithFallback(ctx context.Context, text string, k int) ([]hybrid.Hit, string, error) {
	switch f.currentState() {
	case stateErrorOnly:
		return nil, EngineErrorOnly, engineerr.WrapKind("engine.Query", engineerr.ErrQueryTimeout, errAllLegsExhausted)

	case stateDegradedDense:
		hits, err := f.searchSingleLeg(ctx, f.denseOnly, text, k)
		if err != nil {
			f.degrade(stateErrorOnly)
			return nil, EngineErrorOnly, err
		}
		return hits, EngineDenseFallback, nil

	case stateDegradedSparse:
		hits, err := f.searchSingleLeg(ctx, f.sparseOnly, text, k)
		if err != nil {
			f.degrade(stateErrorOnly)
			return nil, EngineErrorOnly, err
		}
		return hits, EngineSparseFallback, nil

	default: // stateHybrid
		hits, mode, err := f.hybrid.Search(ctx, text, k)
		if err == nil {
			switch mode {
			case hybrid.ModeDenseOnly:
				f.degrade(stateDegradedDense)
				return hits, EngineDenseFallback, nil
			case hybrid.ModeSparseOnly:
				f.degrade(stateDegradedSparse)
				return hits, EngineSparseFallback, nil
			default:
				return hits, EngineHybrid, nil
			}
		}
		f.logger.Warn("engine: hybrid search failed, degrading", "error", err.Error())

		if f.denseOnly != nil {
			f.degrade(stateDegradedDense)
			retryHits, retryErr := f.searchSingleLeg(ctx, f.denseOnly, text, k)
			if retryErr == nil {
				return retryHits, EngineDenseFallback, nil
			}
			f.logger.Warn("engine: dense-only retry failed, trying sparse-only", "error", retryErr.Error())
		}

		if f.sparseOnly != nil {
			f.degrade(stateDegradedSparse)
			retryHits, retryErr := f.searchSingleLeg(ctx, f.sparseOnly, text, k)
			if retryErr == nil {
				return retryHits, EngineSparseFallback, nil
			}
		}

		f.degrade(stateErrorOnly)
		return nil, EngineErrorOnly, engineerr.WrapKind("engine.Query", engineerr.ErrQueryTimeout, errAllLegsExhausted)
	}
}

func (f *Facade) searchSingleLeg(ctx context.Context, s hybrid.Searcher, text string, k int) ([]hybrid.Hit, error) {
	results, err := s.Search(ctx, text, k)
	if err != nil {
		return nil, err
	}
	hits := make([]hybrid.Hit, len(results))
	for i, r := range results {
		hits[i] = hybrid.Hit{DocID: r.DocID, Score: r.Score, MatchedTerms: r.MatchedTerms}
	}
	return hits, nil
}

// errorResult builds spec.md §7's structured error result: a generic
// apology, an empty document list, and metadata.error = true.
func (f *Facade) errorResult(query string, err error) QueryResult {
	return QueryResult{
		Answer:             generator.ApologyMessage,
		Query:              query,
		RetrievedDocuments: []Passage{},
		Error:              err.Error(),
		Metadata: Metadata{
			DataSources:             f.dataSources,
			TotalDocumentsAvailable: f.totalDocs,
			Engine:                  EngineErrorOnly,
			Error:                   true,
		},
	}
}

var errAllLegsExhausted = errors.New("all retrieval legs exhausted")
