// Package memory provides an in-memory vector index.
//
// The index is immutable once built: Search only reads, so any number of
// goroutines may search it concurrently without locking. It serves both as
// the search handle of the sqlite store and as an ephemeral index on its own.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an exact cosine-similarity index over a fixed set of entries.
type Index struct {
	entries []domain.IndexEntry
	norms   []float64
	info    domain.IndexInfo
}

// New creates an index over entries. Every entry must have an embedding of
// the same length. The info Entries and Dimensions fields are filled in
// from the entries.
func New(entries []domain.IndexEntry, info domain.IndexInfo) (*Index, error) {
	dims := info.Dimensions
	norms := make([]float64, len(entries))

	for i, e := range entries {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("%w: entry %d has no embedding", domain.ErrInvalidInput, i)
		}
		if dims == 0 {
			dims = len(e.Embedding)
		}
		if len(e.Embedding) != dims {
			return nil, fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				domain.ErrInvalidInput, i, len(e.Embedding), dims)
		}
		norms[i] = norm(e.Embedding)
	}

	info.Entries = len(entries)
	info.Dimensions = dims

	return &Index{
		entries: slices.Clone(entries),
		norms:   norms,
		info:    info,
	}, nil
}

// Search returns the k entries most similar to query, best first.
// Fewer than k hits are returned when the index holds fewer entries.
// Entries with equal scores keep their insertion order.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]domain.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if len(x.entries) == 0 {
		return []domain.SearchHit{}, nil
	}
	if len(query) != x.info.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(query), x.info.Dimensions)
	}

	type scored struct {
		pos   int
		score float64
	}

	qnorm := norm(query)
	ranked := make([]scored, len(x.entries))
	for i, e := range x.entries {
		ranked[i] = scored{pos: i, score: cosine(query, qnorm, e.Embedding, x.norms[i])}
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	n := min(k, len(ranked))
	hits := make([]domain.SearchHit, n)
	for i := range n {
		e := x.entries[ranked[i].pos]
		hits[i] = domain.SearchHit{
			Content: e.Content,
			Source:  e.Source,
			Score:   ranked[i].score,
		}
	}
	return hits, nil
}

// Len returns the number of entries.
func (x *Index) Len() int {
	return len(x.entries)
}

// Info describes the index.
func (x *Index) Info() domain.IndexInfo {
	return x.info
}

// Entries returns a copy of the indexed entries in insertion order.
func (x *Index) Entries() []domain.IndexEntry {
	return slices.Clone(x.entries)
}

// Close releases resources. The index holds no external resources.
func (x *Index) Close() error {
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine returns zero when either vector has zero length.
func cosine(a []float32, anorm float64, b []float32, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (anorm * bnorm)
}
