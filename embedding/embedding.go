package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/agentrig/core"
)

// Embedder turns text into a fixed-dimension vector. Implementations must
// return vectors of the same length for every input and wrap failures in
// core.ErrEmbedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbedderFunc adapts a plain function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float64, error)

// Embed implements Embedder.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float64, error) { return f(ctx, text) }

// Wrap annotates err with core.ErrEmbedding unless it already carries it.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrEmbedding) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", core.ErrEmbedding, fmt.Sprintf(format, args...), err)
}

// CosineSimilarity returns the cosine of the angle between a and b. Vectors
// of different length or with zero magnitude score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Float32s widens a float32 vector, as returned by some provider SDKs.
func Float32s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
