// Package embedding wraps an external embedding model behind the
// contract of spec.md §4.B/§6: truncate, call, validate, L2-normalize,
// retry once on failure.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/medrag/retrieval/internal/engineerr"
)

// Role distinguishes how a piece of text is being embedded; some
// external models encode documents and queries asymmetrically.
type Role string

const (
	RoleDocument Role = "document"
	RoleQuery    Role = "query"
)

// maxChars is the truncation length applied before the text reaches
// the external model, per spec.md §4.B ("≥ 8,000 characters").
const maxChars = 8000

var (
	ErrEmptyText     = errors.New("embedding: empty text")
	ErrZeroNorm      = errors.New("embedding: zero-norm vector")
	ErrWrongDimension = errors.New("embedding: wrong dimension")
)

// RawEmbedder is the external model boundary: a single call that may
// fail transiently. Implementations are the black box of spec.md §1.
type RawEmbedder interface {
	Embed(ctx context.Context, text string, role Role) ([]float32, error)
}

// RawEmbedFunc adapts a function to RawEmbedder.
type RawEmbedFunc func(ctx context.Context, text string, role Role) ([]float32, error)

func (f RawEmbedFunc) Embed(ctx context.Context, text string, role Role) ([]float32, error) {
	return f(ctx, text, role)
}

// Client is the Embedding Client of spec.md §4.B: it owns the fixed
// dimension D established at construction, enforces the
// truncate/validate/normalize/retry contract around a RawEmbedder, and
// deduplicates repeat calls through an LRU cache.
type Client struct {
	raw   RawEmbedder
	dim   int
	cache *lru.Cache[string, []float32]
}

// Option configures a Client at construction.
type Option func(*Client)

// WithCacheSize overrides the dedup cache's entry capacity (default 4096).
func WithCacheSize(n int) Option {
	return func(c *Client) {
		cache, err := lru.New[string, []float32](n)
		if err == nil {
			c.cache = cache
		}
	}
}

// New builds a Client around raw, fixing the index dimension to dim.
// Per spec.md §6, mixing dimensions within a single index is
// forbidden; dim is established once, here, at construction.
func New(raw RawEmbedder, dim int, opts ...Option) *Client {
	cache, _ := lru.New[string, []float32](4096)
	c := &Client{raw: raw, dim: dim, cache: cache}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dim returns the fixed embedding dimension.
func (c *Client) Dim() int { return c.dim }

// Embed implements the §4.B contract: truncate, call (with one retry
// on failure), validate length-D and finite, L2-normalize.
func (c *Client) Embed(ctx context.Context, text string, role Role) ([]float32, error) {
	if text == "" {
		return nil, engineerr.Wrap("embedding.Embed", ErrEmptyText)
	}

	truncated := truncate(text, maxChars)
	key := cacheKey(role, truncated)

	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			out := make([]float32, len(v))
			copy(out, v)
			return out, nil
		}
	}

	vec, err := c.raw.Embed(ctx, truncated, role)
	if err != nil {
		vec, err = c.raw.Embed(ctx, truncated, role)
		if err != nil {
			return nil, engineerr.WrapKind("embedding.Embed", engineerr.ErrEmbedError, err)
		}
	}

	if len(vec) != c.dim {
		return nil, engineerr.WrapKind("embedding.Embed", engineerr.ErrEmbedError,
			fmt.Errorf("%w: got %d want %d", ErrWrongDimension, len(vec), c.dim))
	}

	normalized, err := normalize(vec)
	if err != nil {
		return nil, engineerr.WrapKind("embedding.Embed", engineerr.ErrEmbedError, err)
	}

	if c.cache != nil {
		stored := make([]float32, len(normalized))
		copy(stored, normalized)
		c.cache.Add(key, stored)
	}

	return normalized, nil
}

func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen]
}

func cacheKey(role Role, text string) string {
	sum := sha256.Sum256([]byte(text))
	return string(role) + ":" + hex.EncodeToString(sum[:])
}

// normalize divides v by its L2 norm. A zero-norm vector is invalid
// per spec.md §4.B and reported as such rather than silently returned.
func normalize(v []float32) ([]float32, error) {
	var sumSq float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("embedding: non-finite component")
		}
		sumSq += f * f
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return nil, ErrZeroNorm
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}
