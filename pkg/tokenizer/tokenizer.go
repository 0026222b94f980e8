// Package tokenizer implements the deterministic normalization pipeline
// shared by the sparse index and the hybrid searcher's query-side
// lexical path: casefold, strip, segment, filter, and stem.
package tokenizer

import (
	"strings"

	"github.com/blevesearch/segment"
)

// Config controls tokenizer behavior. The zero value is not usable;
// construct with DefaultConfig or New.
type Config struct {
	// Language is the corpus language tag, "id" (Indonesian) by
	// default. Tokenize does not consult it: whatever its value, the
	// Indonesian and English stop-word sets are both applied and the
	// Indonesian suffix stripper runs before the Porter stemmer.
	Language string
	// UseStemming enables the stemming pass. Default true.
	UseStemming bool
	// RemoveStopwords enables the stop-word drop pass. Default true.
	RemoveStopwords bool
	// MinWordLength is the minimum surviving token length. Default 2.
	MinWordLength int
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		Language:        "id",
		UseStemming:     true,
		RemoveStopwords: true,
		MinWordLength:   2,
	}
}

// Tokenizer applies Config's pipeline to input text.
type Tokenizer struct {
	cfg Config
}

// Option configures a Tokenizer at construction.
type Option func(*Config)

// WithLanguage overrides the default language.
func WithLanguage(lang string) Option { return func(c *Config) { c.Language = lang } }

// WithStemming toggles stemming.
func WithStemming(enabled bool) Option { return func(c *Config) { c.UseStemming = enabled } }

// WithStopwords toggles stop-word removal.
func WithStopwords(enabled bool) Option { return func(c *Config) { c.RemoveStopwords = enabled } }

// WithMinWordLength overrides the minimum surviving token length.
func WithMinWordLength(n int) Option { return func(c *Config) { c.MinWordLength = n } }

// New builds a Tokenizer from DefaultConfig plus any options.
func New(opts ...Option) *Tokenizer {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MinWordLength < 1 {
		cfg.MinWordLength = 1
	}
	return &Tokenizer{cfg: cfg}
}

var cleanReplacer = buildCleanReplacer()

func buildCleanReplacer() func(rune) rune {
	return func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		default:
			return ' '
		}
	}
}

// Tokenize runs the full pipeline of spec.md §4.A: lowercase, strip
// non-alphanumerics to spaces, split (segmenter with whitespace
// fallback), min-length filter, stopword filter, stem. Order and
// duplicates of surviving tokens are preserved.
func (t *Tokenizer) Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	cleaned := strings.Map(cleanReplacer, lowered)

	words := segmentWords(cleaned)

	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if len(w) < t.cfg.MinWordLength {
			continue
		}
		if t.cfg.RemoveStopwords && isStopword(w) {
			continue
		}
		if t.cfg.UseStemming {
			w = stem(w)
		}
		out = append(out, w)
	}
	return out
}

// segmentWords splits cleaned text into word-like segments using a
// Unicode word segmenter, falling back to whitespace splitting if the
// segmenter fails or finds no boundaries. Since cleaned text already
// contains only [a-z0-9 ], this largely reduces to whitespace
// splitting in practice, but the segmenter is kept in the pipeline per
// spec.md §4.A's "a word-segmenter may be used" allowance.
func segmentWords(cleaned string) []string {
	seg := segment.NewWordSegmenter(strings.NewReader(cleaned))
	var words []string
	for seg.Segment() {
		if seg.Type() == segment.None {
			continue
		}
		words = append(words, string(seg.Bytes()))
	}
	if err := seg.Err(); err != nil || len(words) == 0 {
		return strings.Fields(cleaned)
	}
	return words
}
