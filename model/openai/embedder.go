package openai

import (
	"context"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/embedding"
)

// EmbedderOptions configure the OpenAI embedder.
type EmbedderOptions struct {
	Model string
	// Dimensions truncates text-embedding-3 vectors when > 0.
	Dimensions int64
}

// Embedder implements embedding.Embedder with the OpenAI Embeddings API.
type Embedder struct {
	client *openai.Client
	opts   EmbedderOptions
}

var _ embedding.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder using the official client.
func NewEmbedder(optFns ...func(o *EmbedderOptions)) *Embedder {
	client := openai.NewClient()
	return NewEmbedderFromClient(&client, optFns...)
}

// NewEmbedderFromClient creates an embedder from an existing client.
func NewEmbedderFromClient(client *openai.Client, optFns ...func(o *EmbedderOptions)) *Embedder {
	opts := EmbedderOptions{Model: openai.EmbeddingModelTextEmbedding3Small}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedder{client: client, opts: opts}
}

// Embed implements embedding.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: e.opts.Model,
	}
	if e.opts.Dimensions > 0 {
		params.Dimensions = openai.Int(e.opts.Dimensions)
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, embedding.Wrap(classify(err), "openai embeddings")
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, embedding.Wrap(core.NewBackendError(core.BackendErrorMalformedResponse, "no embedding returned", nil), "openai embeddings")
	}
	return resp.Data[0].Embedding, nil
}
