// Package vectorstore provides the in-memory vector index and the
// embedding-backed dynamic context provider used for retrieval augmented
// prompting.
//
// Typical build-time setup:
//
//	docs, err := vectorstore.EmbedDocuments(ctx, embedder, defs...)
//	store, err := vectorstore.NewInMemoryStore(docs...)
//	index := vectorstore.NewIndex(store, embedder)
//
// The index is then handed to agent.WithDynamicContext(index, samples).
package vectorstore
