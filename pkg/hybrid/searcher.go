package hybrid

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/medrag/retrieval/internal/engineerr"
)

// Mode reports which leg(s) actually produced a FusionSearcher.Search
// result, so callers can distinguish a true hybrid result from a
// single-leg degradation that happened inside one call (both legs
// wired, one of them failed) per spec.md §8 Scenario 5.
type Mode string

const (
	ModeHybrid     Mode = "hybrid"
	ModeDenseOnly  Mode = "dense"
	ModeSparseOnly Mode = "sparse"
)

// FusionSearcher runs a dense and a sparse Searcher concurrently (when
// Config.Parallel) and fuses their rankings per spec.md §4.F.
type FusionSearcher struct {
	dense  Searcher
	sparse Searcher
	cfg    Config
}

// New constructs a FusionSearcher. Either dense or sparse may be nil,
// in which case Search degrades to the remaining single leg.
func New(dense, sparse Searcher, cfg Config) (*FusionSearcher, error) {
	if dense == nil && sparse == nil {
		return nil, fmt.Errorf("hybrid: at least one searcher is required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &FusionSearcher{dense: dense, sparse: sparse, cfg: cfg}, nil
}

// Search executes the configured fusion strategy and returns up to
// Config.FinalTopK hits, or an override k if k > 0, along with the
// Mode that produced them. Mode is ModeHybrid only when both legs were
// wired and both succeeded; a single surviving leg (whether because
// only one was ever wired, or because its sibling errored this call)
// is reported as ModeDenseOnly/ModeSparseOnly so callers can surface
// an accurate fallback tag instead of claiming "hybrid".
func (f *FusionSearcher) Search(ctx context.Context, query string, k int) ([]Hit, Mode, error) {
	finalK := f.cfg.FinalTopK
	if k > 0 {
		finalK = k
	}

	if f.dense == nil {
		sparse, err := f.sparse.Search(ctx, query, f.cfg.KeywordTopK)
		if err != nil {
			return nil, "", engineerr.WrapKind("hybrid.Search", engineerr.ErrQueryTimeout, err)
		}
		return truncate(fuse(nil, sparse, f.cfg), finalK), ModeSparseOnly, nil
	}
	if f.sparse == nil {
		dense, err := f.dense.Search(ctx, query, f.cfg.VectorTopK)
		if err != nil {
			return nil, "", engineerr.WrapKind("hybrid.Search", engineerr.ErrQueryTimeout, err)
		}
		return truncate(fuse(dense, nil, f.cfg), finalK), ModeDenseOnly, nil
	}

	var dense, sparse []Result
	var denseErr, sparseErr error

	if f.cfg.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			dense, denseErr = f.dense.Search(gctx, query, f.cfg.VectorTopK)
			return nil
		})
		g.Go(func() error {
			sparse, sparseErr = f.sparse.Search(gctx, query, f.cfg.KeywordTopK)
			return nil
		})
		_ = g.Wait()
	} else {
		dense, denseErr = f.dense.Search(ctx, query, f.cfg.VectorTopK)
		sparse, sparseErr = f.sparse.Search(ctx, query, f.cfg.KeywordTopK)
	}

	if denseErr != nil && sparseErr != nil {
		return nil, "", engineerr.WrapKind("hybrid.Search", engineerr.ErrQueryTimeout,
			fmt.Errorf("dense: %v, sparse: %v", denseErr, sparseErr))
	}
	if denseErr != nil {
		return truncate(fuse(nil, sparse, f.cfg), finalK), ModeSparseOnly, nil
	}
	if sparseErr != nil {
		return truncate(fuse(dense, nil, f.cfg), finalK), ModeDenseOnly, nil
	}

	cfg := f.cfg
	if cfg.Fusion == FusionAdaptive {
		cfg.VectorWeight, cfg.KeywordWeight = classify(query, f.cfg.VectorWeight, f.cfg.KeywordWeight)
	}

	return truncate(fuse(dense, sparse, cfg), finalK), ModeHybrid, nil
}

func truncate(hits []Hit, k int) []Hit {
	if k <= 0 || k >= len(hits) {
		return hits
	}
	return hits[:k]
}
