package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorStore manages the lifecycle of a persisted vector index bound to
// one storage location.
//
// Whether an index exists is decided by the location alone: the store
// never compares corpus content against what was indexed.
type VectorStore interface {
	// Location returns the storage location this store is bound to.
	Location() string

	// Exists reports whether anything is present at the location.
	Exists() bool

	// Build embeds every chunk, persists the entries and returns a handle.
	// If the location already exists, Build loads it instead.
	Build(ctx context.Context, chunks []domain.Chunk) (VectorIndex, error)

	// Load opens the persisted index without embedding anything.
	// Returns domain.ErrStoreNotFound if the location is absent or corrupt.
	Load(ctx context.Context) (VectorIndex, error)

	// Remove deletes everything at the location. Removing an absent
	// location is not an error.
	Remove() error
}

// VectorIndex is a read-only handle over built index entries.
// Implementations must support concurrent Search calls.
type VectorIndex interface {
	// Search returns the k entries most similar to query, by descending score.
	// Fewer than k entries are returned when the index is smaller.
	// k <= 0 fails with domain.ErrInvalidInput.
	Search(ctx context.Context, query []float32, k int) ([]domain.SearchHit, error)

	// Len returns the number of entries.
	Len() int

	// Info describes the index.
	Info() domain.IndexInfo

	// Close releases resources.
	Close() error
}
