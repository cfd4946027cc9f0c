// Package embedding defines the Embedding Backend contract consumed by the
// vector index and dynamic context provider, plus similarity helpers.
//
// Concrete backends live next to their completion counterparts
// (model/openai.Embedder, model/gemini.Embedder).
package embedding
