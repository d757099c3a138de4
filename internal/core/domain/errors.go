package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// Empty queries and non-positive k values are rejected with this error.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConfigured indicates a required setting is missing.
	ErrNotConfigured = errors.New("not configured")

	// ErrUnsupportedType indicates an unknown provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Provider Errors.

	// ErrProviderUnavailable indicates an embedding or generation backend
	// could not be reached or returned an error. Timeouts are reported
	// as this error too.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrMalformedResponse indicates a provider answered with a payload
	// that could not be interpreted.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Index Errors.

	// ErrStoreNotFound indicates the vector index is absent or corrupt
	// at its storage location. Queries cannot be served until the index
	// is rebuilt.
	ErrStoreNotFound = errors.New("vector store not found")

	// ErrRetrievalFailed marks failures of the retrieve stage of a query,
	// wrapping the underlying cause.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrIndexNotOpen indicates a query arrived before the index was
	// loaded or built.
	ErrIndexNotOpen = errors.New("index not open")

	// ErrEmbeddingModelMismatch indicates an index was built with a
	// different embedding model than the one currently configured.
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")
)
