package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// QueryService answers natural-language questions over the corpus.
type QueryService interface {
	// ProcessQuery runs the retrieve, analyze and synthesize stages for
	// one query and returns the full result.
	ProcessQuery(ctx context.Context, query string) (*domain.Result, error)
}

// RetrievalService returns the context relevant to a query.
type RetrievalService interface {
	// RetrieveContext returns the k most relevant chunks joined into one
	// context, with their sources in rank order.
	RetrieveContext(ctx context.Context, query string, k int) (*domain.RetrievalResult, error)
}

// IndexService manages the vector index lifecycle.
type IndexService interface {
	// CreateOrLoad loads the index if its location exists, otherwise it
	// loads the corpus, chunks it and builds the index. The handle is
	// cached for the lifetime of the service.
	CreateOrLoad(ctx context.Context) (driven.VectorIndex, error)

	// Current returns the open index without loading or building it. It
	// fails when no index is open, returning the error of the failed open
	// if there was one.
	Current() (driven.VectorIndex, error)

	// Rebuild discards the index at its location and builds it again.
	Rebuild(ctx context.Context) (driven.VectorIndex, error)

	// Info returns the current index description, if one is open.
	Info() (domain.IndexInfo, bool)
}

// SettingsService resolves application settings.
type SettingsService interface {
	// Get returns validated settings built from defaults and configuration.
	Get() (domain.Settings, error)
}
