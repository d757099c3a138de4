package cli

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/documents/filesystem"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

// buildServices wires the adapters and core services for settings.
func buildServices(settings domain.Settings, offline bool) (*Services, error) {
	logger.Section("Wiring")

	chunks, err := chunker.NewFromSettings(settings.Chunking)
	if err != nil {
		return nil, err
	}

	providers, err := ai.Init(settings, offline)
	if err != nil {
		return nil, err
	}
	for _, w := range providers.Warnings {
		logger.Warn("%s", w)
	}
	logger.Debug("embedding: %s (%s)", settings.Embedding.Provider, providers.EmbeddingService.ModelName())

	source := filesystem.New(settings.Index.DocumentsDir, settings.Index.Glob,
		filesystem.WithNormaliser(normalisers.Default()))
	store := sqlite.NewStore(settings.Index.Path, providers.EmbeddingService,
		sqlite.WithBatchSize(settings.Embedding.BatchSize),
		sqlite.WithConcurrency(settings.Embedding.Concurrency),
	)

	index := services.NewIndexService(store, source, chunks)
	retriever := services.NewRetriever(providers.EmbeddingService, index)
	pipeline := services.NewPipelineService(retriever, providers.LLMService,
		services.PipelineConfigFromSettings(settings))
	watcher := filesystem.NewWatcher(source)

	svc := &Services{
		Settings:  settings,
		Query:     pipeline,
		Retrieval: retriever,
		Index:     index,
		Store:     store,
		Watcher:   watcher,
		Warnings:  providers.Warnings,
		Health: func(ctx context.Context) []HealthCheck {
			return checkHealth(ctx, settings, offline)
		},
	}
	svc.closers = append(svc.closers,
		func() error { providers.Close(); return nil },
		index.Close,
		watcher.Close,
	)
	return svc, nil
}

// checkHealth pings the configured providers. Offline runs skip both.
func checkHealth(ctx context.Context, settings domain.Settings, offline bool) []HealthCheck {
	embedding := HealthCheck{
		Name:     "embedding",
		Provider: settings.Embedding.Provider,
		Model:    settings.Embedding.Model,
		Skipped:  offline,
	}
	generation := HealthCheck{
		Name:     "generation",
		Provider: settings.LLM.Provider,
		Model:    settings.LLM.Model,
		Skipped:  offline || settings.LLM.Provider == domain.AIProviderNone,
	}

	if ctx.Err() != nil {
		embedding.Err, generation.Err = ctx.Err(), ctx.Err()
		return []HealthCheck{embedding, generation}
	}
	if !embedding.Skipped {
		embedding.Err = ai.ValidateEmbeddingConfig(&settings.Embedding)
	}
	if !generation.Skipped {
		generation.Err = ai.ValidateLLMConfig(&settings.LLM)
	}
	return []HealthCheck{embedding, generation}
}
