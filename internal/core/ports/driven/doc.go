// Package driven holds the interfaces the core services call out through.
// Adapters under internal/adapters/driven implement them.
//
// Every query needs an EmbeddingService, a VectorStore (which yields a
// VectorIndex), a DocumentSource, a Chunker and a ConfigStore.
// LLMService may be nil, in which case analysis falls back to the
// retrieved context.
//
// This package imports domain and nothing else from internal/.
package driven
