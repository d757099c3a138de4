package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// contextSeparator joins retrieved chunk texts.
const contextSeparator = "\n\n"

// Retriever embeds queries and searches the vector index.
// The embedding service must be the one the index was built with.
type Retriever struct {
	embedder driven.EmbeddingService
	indexes  driving.IndexService
}

// NewRetriever creates a retriever. The index must already be open through
// indexes; queries never load or build it.
func NewRetriever(embedder driven.EmbeddingService, indexes driving.IndexService) *Retriever {
	return &Retriever{
		embedder: embedder,
		indexes:  indexes,
	}
}

// RetrieveContext returns the k chunks most similar to query, joined in
// rank order. No matches yield an empty context and empty sources.
func (r *Retriever) RetrieveContext(ctx context.Context, query string, k int) (*domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}

	index, err := r.indexes.Current()
	if err != nil {
		return nil, err
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	logger.Debug("Retrieved %d of %d requested chunks", len(hits), k)

	texts := make([]string, len(hits))
	sources := make([]string, len(hits))
	for i, hit := range hits {
		texts[i] = hit.Content
		sources[i] = hit.Source
		logger.Debug("  %d. %s (score %.4f)", i+1, hit.Source, hit.Score)
	}

	return &domain.RetrievalResult{
		Context: strings.Join(texts, contextSeparator),
		Sources: sources,
		NumDocs: len(hits),
	}, nil
}
