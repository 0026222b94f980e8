// Package generator defines the external Generator contract of
// spec.md §6 and a minimal default implementation sufficient to
// exercise the retrieval facade end to end.
package generator

import (
	"context"
	"fmt"
	"strings"
)

// Passage is the content of spec.md §6's "ranked_passages" input: a
// retrieved document formatted for the generator's prompt.
type Passage struct {
	SourceTag string
	Title     string
	Content   string
}

// Generator composes a final answer from retrieved passages. It is an
// external collaborator per spec.md §1; failure produces a generic
// apology string without failing the retrieval result (§7
// GeneratorError).
type Generator interface {
	Generate(ctx context.Context, systemPrompt, query string, passages []Passage) (string, error)
}

// InsufficientContextMessage is returned when there is nothing to
// answer from, per spec.md §8 Scenario 6.
const InsufficientContextMessage = "I don't have enough information to answer that."

// ApologyMessage is substituted for a GeneratorError per spec.md §7.
const ApologyMessage = "The retrieval system is temporarily unavailable."

// TemplateGenerator is a minimal, deterministic default Generator: it
// formats passages as a numbered "[source_tag] title" block per
// spec.md §6 and echoes them back without calling an external model.
// Real deployments replace this with an LLM-backed implementation; the
// contract above is what they must satisfy.
type TemplateGenerator struct{}

// NewTemplate constructs a TemplateGenerator.
func NewTemplate() *TemplateGenerator { return &TemplateGenerator{} }

func (g *TemplateGenerator) Generate(ctx context.Context, systemPrompt, query string, passages []Passage) (string, error) {
	if len(passages) == 0 {
		return InsufficientContextMessage, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", query)
	for i, p := range passages {
		fmt.Fprintf(&b, "%d. [%s] %s\n%s\n\n", i+1, p.SourceTag, p.Title, p.Content)
	}
	return b.String(), nil
}

// FormatPassages renders passages the way spec.md §6 requires them
// handed to any Generator: a numbered block with "[source_tag] title"
// headers and full content. Exposed so alternate Generator
// implementations can reuse the exact formatting rule.
func FormatPassages(passages []Passage) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "%d. [%s] %s\n%s\n\n", i+1, p.SourceTag, p.Title, p.Content)
	}
	return b.String()
}
