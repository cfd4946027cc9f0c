package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/embedding"
)

// EmbedDocuments embeds each document's content with e at build time. The
// first failure aborts the batch and is returned wrapped in core.ErrEmbedding.
func EmbedDocuments(ctx context.Context, e embedding.Embedder, docs ...core.Document) ([]VectorDocument, error) {
	out := make([]VectorDocument, 0, len(docs))
	for _, d := range docs {
		vec, err := e.Embed(ctx, d.Content)
		if err != nil {
			return nil, embedding.Wrap(err, "embed document %q", d.ID)
		}
		out = append(out, VectorDocument{ID: d.ID, Embedding: vec, Content: d.Content, Metadata: d.Metadata})
	}
	return out, nil
}

// ContextProvider resolves the context documents for a prompt.
type ContextProvider interface {
	// Resolve returns up to n documents relevant to query. Failures wrap
	// core.ErrEmbedding or core.ErrIndex.
	Resolve(ctx context.Context, query string, n int) ([]core.Document, error)
}

// ContextProviderFunc adapts a plain function to ContextProvider.
type ContextProviderFunc func(ctx context.Context, query string, n int) ([]core.Document, error)

// Resolve implements ContextProvider.
func (f ContextProviderFunc) Resolve(ctx context.Context, query string, n int) ([]core.Document, error) {
	return f(ctx, query, n)
}

// Index pairs a VectorIndex with the Embedder that produced its vectors and
// serves as a dynamic context provider.
type Index struct {
	store    VectorIndex
	embedder embedding.Embedder
}

var _ ContextProvider = (*Index)(nil)

// NewIndex creates an Index. store and embedder must agree on dimension.
func NewIndex(store VectorIndex, embedder embedding.Embedder) *Index {
	return &Index{store: store, embedder: embedder}
}

// Search embeds query and returns the n most similar documents with scores.
func (i *Index) Search(ctx context.Context, query string, n int) ([]ScoredDocument, error) {
	vec, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, embedding.Wrap(err, "embed query")
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", core.ErrEmbedding)
	}

	hits, err := i.store.Query(ctx, vec, n)
	if err != nil {
		if errors.Is(err, core.ErrIndex) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrIndex, err)
	}
	return hits, nil
}

// Resolve implements ContextProvider.
func (i *Index) Resolve(ctx context.Context, query string, n int) ([]core.Document, error) {
	hits, err := i.Search(ctx, query, n)
	if err != nil {
		return nil, err
	}
	docs := make([]core.Document, len(hits))
	for j, h := range hits {
		docs[j] = h.Document.Document()
	}
	return docs, nil
}
