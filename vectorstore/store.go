package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/embedding"
)

// VectorDocument is an embedded document owned by a vector index. It is
// immutable once inserted.
type VectorDocument struct {
	ID        string
	Embedding []float64
	Content   string
	Metadata  map[string]any
}

// Document returns the payload of the vector document.
func (d VectorDocument) Document() core.Document {
	return core.Document{ID: d.ID, Content: d.Content, Metadata: d.Metadata}
}

// ScoredDocument is a query hit together with its similarity score.
type ScoredDocument struct {
	Document VectorDocument
	Score    float64
}

// VectorIndex is a store supporting nearest-neighbour similarity search.
type VectorIndex interface {
	// Query returns up to n documents ordered by descending similarity to
	// vec. Ties keep insertion order.
	Query(ctx context.Context, vec []float64, n int) ([]ScoredDocument, error)
}

// InMemoryStore is a process‑local VectorIndex doing a linear cosine scan.
//
// Concurrency: protected by RWMutex; any number of concurrent Query calls is
// safe. Inserts are expected to finish before the store starts serving.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs []VectorDocument
	ids  map[string]struct{}
	dim  int
}

var _ VectorIndex = (*InMemoryStore)(nil)

// NewInMemoryStore creates a store seeded with docs.
func NewInMemoryStore(docs ...VectorDocument) (*InMemoryStore, error) {
	s := &InMemoryStore{ids: make(map[string]struct{})}
	if err := s.Insert(docs...); err != nil {
		return nil, err
	}
	return s, nil
}

// Insert adds documents to the store. The batch is rejected as a whole when
// any document has an empty embedding, a dimension differing from the
// store's or a duplicate id.
func (s *InMemoryStore) Insert(docs ...VectorDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if len(d.Embedding) == 0 {
			return fmt.Errorf("%w: document %q has an empty embedding", core.ErrIndex, d.ID)
		}
		if dim == 0 {
			dim = len(d.Embedding)
		}
		if len(d.Embedding) != dim {
			return fmt.Errorf("%w: document %q has dimension %d, want %d", core.ErrIndex, d.ID, len(d.Embedding), dim)
		}
		_, dup := s.ids[d.ID]
		if _, inBatch := seen[d.ID]; dup || inBatch {
			return fmt.Errorf("%w: duplicate document id %q", core.ErrIndex, d.ID)
		}
		seen[d.ID] = struct{}{}
	}

	for _, d := range docs {
		d.Embedding = append([]float64(nil), d.Embedding...)
		s.docs = append(s.docs, d)
		s.ids[d.ID] = struct{}{}
	}
	s.dim = dim
	return nil
}

// Query implements VectorIndex.
func (s *InMemoryStore) Query(ctx context.Context, vec []float64, n int) ([]ScoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.docs) == 0 {
		return []ScoredDocument{}, nil
	}
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d", core.ErrIndex, len(vec), s.dim)
	}

	hits := make([]ScoredDocument, len(s.docs))
	for i, d := range s.docs {
		hits[i] = ScoredDocument{Document: d, Score: embedding.CosineSimilarity(vec, d.Embedding)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if n < len(hits) {
		hits = hits[:n]
	}
	return hits, nil
}

// Len returns the number of stored documents.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Dimensions returns the embedding dimension of the store (0 while empty).
func (s *InMemoryStore) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}
