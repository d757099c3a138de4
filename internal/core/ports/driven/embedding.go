package driven

import "context"

// EmbeddingService turns text into vectors.
//
// An index is only searchable with vectors from the model that built it.
// Any failure wraps domain.ErrProviderUnavailable; a zero or placeholder
// vector is never returned in place of an error.
//
// Adapters: huggingface, openai, ollama and the offline hashing embedder.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns exactly one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length. Zero means it is learned from the
	// first response.
	Dimensions() int

	ModelName() string

	// Ping is a cheap reachability check, used before long indexing runs.
	Ping(ctx context.Context) error

	Close() error
}
