package vectorstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrig/core"
	"github.com/hupe1980/agentrig/internal/testutil"
)

func ids(hits []ScoredDocument) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Document.ID
	}
	return out
}

func TestInMemoryStore_Query(t *testing.T) {
	store, err := NewInMemoryStore(
		VectorDocument{ID: "a", Embedding: []float64{1, 0}},
		VectorDocument{ID: "b", Embedding: []float64{0, 1}},
		VectorDocument{ID: "c", Embedding: []float64{1, 1}},
		VectorDocument{ID: "d", Embedding: []float64{2, 0}},
	)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("ranked by similarity with insertion order ties", func(t *testing.T) {
		hits, err := store.Query(ctx, []float64{1, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "d", "c"}, ids(hits))
		assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	})

	t.Run("fewer documents than n", func(t *testing.T) {
		hits, err := store.Query(ctx, []float64{0, 1}, 10)
		require.NoError(t, err)
		assert.Len(t, hits, 4)
		assert.Equal(t, "b", hits[0].Document.ID)
	})

	t.Run("n zero", func(t *testing.T) {
		hits, err := store.Query(ctx, []float64{0, 1}, 0)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := store.Query(ctx, []float64{1, 0, 0}, 1)
		assert.ErrorIs(t, err, core.ErrIndex)
	})

	t.Run("concurrent readers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				hits, err := store.Query(ctx, []float64{1, 0}, 1)
				assert.NoError(t, err)
				assert.Equal(t, []string{"a"}, ids(hits))
			}()
		}
		wg.Wait()
	})
}

func TestInMemoryStore_Insert(t *testing.T) {
	t.Run("empty store answers empty", func(t *testing.T) {
		store, err := NewInMemoryStore()
		require.NoError(t, err)
		hits, err := store.Query(context.Background(), []float64{1}, 3)
		require.NoError(t, err)
		assert.Empty(t, hits)
		assert.Equal(t, 0, store.Dimensions())
	})

	t.Run("rejects invalid batches atomically", func(t *testing.T) {
		store, err := NewInMemoryStore(VectorDocument{ID: "a", Embedding: []float64{1, 0}})
		require.NoError(t, err)

		err = store.Insert(VectorDocument{ID: "b", Embedding: []float64{1, 0}}, VectorDocument{ID: "c", Embedding: []float64{1}})
		assert.ErrorIs(t, err, core.ErrIndex)
		assert.ErrorIs(t, store.Insert(VectorDocument{ID: "a", Embedding: []float64{0, 1}}), core.ErrIndex)
		assert.ErrorIs(t, store.Insert(VectorDocument{ID: "e"}), core.ErrIndex)
		assert.ErrorIs(t, store.Insert(
			VectorDocument{ID: "x", Embedding: []float64{0, 1}},
			VectorDocument{ID: "x", Embedding: []float64{1, 1}},
		), core.ErrIndex)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("stored embedding is a copy", func(t *testing.T) {
		vec := []float64{1, 0}
		store, err := NewInMemoryStore(VectorDocument{ID: "a", Embedding: vec, Content: "alpha"})
		require.NoError(t, err)
		vec[0] = 0
		hits, err := store.Query(context.Background(), []float64{1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, []float64{1, 0}, hits[0].Document.Embedding)
		assert.Equal(t, "alpha", hits[0].Document.Document().Content)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	})
}

func TestIndex(t *testing.T) {
	ctx := context.Background()
	emb := testutil.NewKeywordEmbedder("flurbo", "glarb", "lingling")

	docs, err := EmbedDocuments(ctx, emb,
		core.Document{ID: "doc0", Content: "A flurbo is a green alien."},
		core.Document{ID: "doc1", Content: "A glarb-glarb is an ancient tool.", Metadata: map[string]any{"word": "glarb-glarb"}},
		core.Document{ID: "doc2", Content: "A linglingdong is a term for humans."},
	)
	require.NoError(t, err)
	store, err := NewInMemoryStore(docs...)
	require.NoError(t, err)
	index := NewIndex(store, emb)

	t.Run("resolve returns the closest documents", func(t *testing.T) {
		got, err := index.Resolve(ctx, `What does "glarb-glarb" mean?`, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "doc1", got[0].ID)
		assert.Equal(t, "glarb-glarb", got[0].Metadata["word"])
	})

	t.Run("resolution is deterministic", func(t *testing.T) {
		a, err := index.Resolve(ctx, "flurbo", 3)
		require.NoError(t, err)
		b, err := index.Resolve(ctx, "flurbo", 3)
		require.NoError(t, err)
		assert.Equal(t, core.RenderDocuments(a), core.RenderDocuments(b))
	})

	t.Run("embedding failure", func(t *testing.T) {
		failing := testutil.NewKeywordEmbedder("flurbo")
		failing.Err = errors.New("quota")
		_, err := NewIndex(store, failing).Resolve(ctx, "flurbo", 1)
		assert.ErrorIs(t, err, core.ErrEmbedding)
	})

	t.Run("dimension mismatch is an index error", func(t *testing.T) {
		short := testutil.NewKeywordEmbedder("flurbo")
		_, err := NewIndex(store, short).Resolve(ctx, "flurbo", 1)
		assert.ErrorIs(t, err, core.ErrIndex)
	})

	t.Run("empty query embedding", func(t *testing.T) {
		none := testutil.NewKeywordEmbedder()
		_, err := NewIndex(store, none).Search(ctx, "flurbo", 1)
		assert.ErrorIs(t, err, core.ErrEmbedding)
	})
}

func TestEmbedDocuments_Failure(t *testing.T) {
	emb := testutil.NewKeywordEmbedder("x")
	emb.Err = errors.New("down")
	_, err := EmbedDocuments(context.Background(), emb, core.Document{ID: "d"})
	assert.ErrorIs(t, err, core.ErrEmbedding)
}

func TestContextProviderFunc(t *testing.T) {
	var p ContextProvider = ContextProviderFunc(func(_ context.Context, q string, n int) ([]core.Document, error) {
		return []core.Document{{ID: q}}, nil
	})
	docs, err := p.Resolve(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Equal(t, "q", docs[0].ID)
}
