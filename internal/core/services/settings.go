package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyEmbedProvider    = "embedding.provider"
	KeyEmbedModel       = "embedding.model"
	KeyEmbedBaseURL     = "embedding.base_url"
	KeyEmbedAPIKey      = "embedding.api_key"
	KeyEmbedBatchSize   = "embedding.batch_size"
	KeyEmbedConcurrency = "embedding.concurrency"
	KeyLLMProvider      = "llm.provider"
	KeyLLMModel         = "llm.model"
	KeyLLMBaseURL       = "llm.base_url"
	KeyLLMAPIKey        = "llm.api_key"
	KeyLLMTemperature   = "llm.temperature"
	KeyLLMMaxTokens     = "llm.max_tokens"
	KeyLLMTimeout       = "llm.timeout_seconds"
	KeyIndexPath        = "index.path"
	KeyDocumentsDir     = "index.documents_dir"
	KeyDocumentsGlob    = "index.glob"
	KeyChunkSize        = "chunking.size"
	KeyChunkOverlap     = "chunking.overlap"
	KeyTopK             = "pipeline.top_k"
	KeyRequestsPerSec   = "ratelimit.requests_per_second"
	KeyBurst            = "ratelimit.burst"
)

// SettingsService resolves settings from a config store.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get builds settings from defaults overridden by configured values and
// validates them. When a provider is configured without a model, that
// provider's default model is used.
func (s *SettingsService) Get() (domain.Settings, error) {
	defaults := domain.DefaultSettings()

	embedProvider := s.getProvider(KeyEmbedProvider, defaults.Embedding.Provider)
	llmProvider := s.getProvider(KeyLLMProvider, defaults.LLM.Provider)

	settings := domain.Settings{
		Embedding: domain.EmbeddingSettings{
			Provider:    embedProvider,
			Model:       s.getString(KeyEmbedModel, domain.DefaultEmbeddingModels()[embedProvider]),
			BaseURL:     s.configStore.GetString(KeyEmbedBaseURL),
			APIKey:      s.configStore.GetString(KeyEmbedAPIKey),
			BatchSize:   s.getInt(KeyEmbedBatchSize, defaults.Embedding.BatchSize),
			Concurrency: s.getInt(KeyEmbedConcurrency, defaults.Embedding.Concurrency),
		},
		LLM: domain.LLMSettings{
			Provider:    llmProvider,
			Model:       s.getString(KeyLLMModel, domain.DefaultLLMModels()[llmProvider]),
			BaseURL:     s.configStore.GetString(KeyLLMBaseURL),
			APIKey:      s.configStore.GetString(KeyLLMAPIKey),
			Temperature: s.getFloat(KeyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:   s.getInt(KeyLLMMaxTokens, defaults.LLM.MaxTokens),
			Timeout:     s.getSeconds(KeyLLMTimeout, defaults.LLM.Timeout),
		},
		Index: domain.IndexSettings{
			Path:         s.getString(KeyIndexPath, defaults.Index.Path),
			DocumentsDir: s.getString(KeyDocumentsDir, defaults.Index.DocumentsDir),
			Glob:         s.getString(KeyDocumentsGlob, defaults.Index.Glob),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(KeyChunkSize, defaults.Chunking.Size),
			Overlap: s.getInt(KeyChunkOverlap, defaults.Chunking.Overlap),
		},
		Pipeline: domain.PipelineSettings{
			TopK: s.getInt(KeyTopK, defaults.Pipeline.TopK),
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerSecond: s.getFloat(KeyRequestsPerSec, defaults.RateLimit.RequestsPerSecond),
			Burst:             s.getInt(KeyBurst, defaults.RateLimit.Burst),
		},
	}

	if err := settings.Validate(); err != nil {
		return domain.Settings{}, fmt.Errorf("settings from %s: %w", s.configStore.Path(), err)
	}
	return settings, nil
}

// DefaultConfigValues returns the configuration file keys with their
// default values. Credentials are omitted.
func DefaultConfigValues() map[string]any {
	d := domain.DefaultSettings()
	return map[string]any{
		KeyEmbedProvider:    d.Embedding.Provider.String(),
		KeyEmbedModel:       d.Embedding.Model,
		KeyEmbedBatchSize:   d.Embedding.BatchSize,
		KeyEmbedConcurrency: d.Embedding.Concurrency,
		KeyLLMProvider:      d.LLM.Provider.String(),
		KeyLLMModel:         d.LLM.Model,
		KeyLLMTemperature:   d.LLM.Temperature,
		KeyLLMMaxTokens:     d.LLM.MaxTokens,
		KeyLLMTimeout:       int(d.LLM.Timeout / time.Second),
		KeyIndexPath:        d.Index.Path,
		KeyDocumentsDir:     d.Index.DocumentsDir,
		KeyDocumentsGlob:    d.Index.Glob,
		KeyChunkSize:        d.Chunking.Size,
		KeyChunkOverlap:     d.Chunking.Overlap,
		KeyTopK:             d.Pipeline.TopK,
		KeyRequestsPerSec:   d.RateLimit.RequestsPerSecond,
		KeyBurst:            d.RateLimit.Burst,
	}
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt keeps explicitly configured zeros, such as a chunk overlap of 0.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	secs := s.getFloat(key, 0)
	if secs <= 0 {
		return defaultVal
	}
	return time.Duration(secs * float64(time.Second))
}

// getProvider returns unknown providers unchanged so Validate reports them.
func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := strings.TrimSpace(s.configStore.GetString(key))
	if val == "" {
		return defaultVal
	}
	return domain.AIProvider(strings.ToLower(val))
}
