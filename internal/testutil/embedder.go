package testutil

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/agentrig/embedding"
)

// KeywordEmbedder maps text onto a vector with one dimension per keyword
// holding the number of (case-insensitive) occurrences. Text without any
// keyword maps to the zero vector.
type KeywordEmbedder struct {
	Keywords []string
	// Err, when set, is returned by every Embed call.
	Err   error
	calls atomic.Int64
}

var _ embedding.Embedder = (*KeywordEmbedder)(nil)

// NewKeywordEmbedder creates an embedder over the given keywords.
func NewKeywordEmbedder(keywords ...string) *KeywordEmbedder {
	return &KeywordEmbedder{Keywords: keywords}
}

// Embed implements embedding.Embedder.
func (e *KeywordEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, e.Err
	}
	lower := strings.ToLower(text)
	vec := make([]float64, len(e.Keywords))
	for i, k := range e.Keywords {
		vec[i] = float64(strings.Count(lower, strings.ToLower(k)))
	}
	return vec, nil
}

// Calls returns the number of Embed invocations.
func (e *KeywordEmbedder) Calls() int { return int(e.calls.Load()) }
