package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/embedding"
)

// DefaultEmbeddingModel is used when EmbedderOptions.Model is empty.
const DefaultEmbeddingModel = "gemini-embedding-001"

// EmbedderOptions configures the Gemini embedder.
type EmbedderOptions struct {
	Model string
	// Dimensions truncates the output vector when > 0.
	Dimensions   int32
	ClientConfig *genai.ClientConfig
}

// Embedder implements embedding.Embedder with the Gemini embed content API.
type Embedder struct {
	client *genai.Client
	opts   EmbedderOptions
}

var _ embedding.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder with a new client.
func NewEmbedder(ctx context.Context, optFns ...func(o *EmbedderOptions)) (*Embedder, error) {
	opts := EmbedderOptions{Model: DefaultEmbeddingModel}
	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := genai.NewClient(ctx, opts.ClientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %w", core.ErrInvalidConfig, err)
	}
	return &Embedder{client: client, opts: opts}, nil
}

// NewEmbedderFromClient creates an embedder from an existing client.
func NewEmbedderFromClient(client *genai.Client, optFns ...func(o *EmbedderOptions)) *Embedder {
	opts := EmbedderOptions{Model: DefaultEmbeddingModel}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedder{client: client, opts: opts}
}

// Embed implements embedding.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var config *genai.EmbedContentConfig
	if e.opts.Dimensions > 0 {
		config = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(e.opts.Dimensions)}
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.opts.Model, []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, config)
	if err != nil {
		return nil, embedding.Wrap(classify(err), "gemini embed content")
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, embedding.Wrap(core.NewBackendError(core.BackendErrorMalformedResponse, "no embedding returned", nil), "gemini embed content")
	}
	return embedding.Float32s(resp.Embeddings[0].Values), nil
}
