package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestSettingsService_Get_Defaults(t *testing.T) {
	svc := NewSettingsService(newMockConfigStore(nil))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestSettingsService_Get_Overrides(t *testing.T) {
	store := newMockConfigStore(map[string]any{
		KeyEmbedProvider:    "Ollama",
		KeyEmbedBaseURL:     "http://localhost:11434",
		KeyEmbedBatchSize:   8,
		KeyLLMProvider:      "openai",
		KeyLLMAPIKey:        "sk-test",
		KeyLLMTemperature:   0.7,
		KeyLLMMaxTokens:     int64(256),
		KeyLLMTimeout:       30,
		KeyIndexPath:        "/tmp/index",
		KeyDocumentsDir:     "corpus",
		KeyDocumentsGlob:    "**/*.md",
		KeyChunkSize:        500,
		KeyChunkOverlap:     0,
		KeyTopK:             6,
		KeyRequestsPerSec:   2.5,
		KeyEmbedConcurrency: 4,
	})

	settings, err := NewSettingsService(store).Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model, "provider default model")
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	assert.Equal(t, 8, settings.Embedding.BatchSize)
	assert.Equal(t, 4, settings.Embedding.Concurrency)

	assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", settings.LLM.Model)
	assert.Equal(t, "sk-test", settings.LLM.APIKey)
	assert.InDelta(t, 0.7, settings.LLM.Temperature, 1e-9)
	assert.Equal(t, 256, settings.LLM.MaxTokens)
	assert.Equal(t, 30*time.Second, settings.LLM.Timeout)

	assert.Equal(t, "/tmp/index", settings.Index.Path)
	assert.Equal(t, "corpus", settings.Index.DocumentsDir)
	assert.Equal(t, "**/*.md", settings.Index.Glob)
	assert.Equal(t, 500, settings.Chunking.Size)
	assert.Equal(t, 0, settings.Chunking.Overlap, "explicit zero is kept")
	assert.Equal(t, 6, settings.Pipeline.TopK)
	assert.InDelta(t, 2.5, settings.RateLimit.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.DefaultBurst, settings.RateLimit.Burst)
}

func TestSettingsService_Get_ExplicitModelWins(t *testing.T) {
	store := newMockConfigStore(map[string]any{
		KeyLLMProvider: "ollama",
		KeyLLMModel:    "mistral",
	})

	settings, err := NewSettingsService(store).Get()
	require.NoError(t, err)
	assert.Equal(t, "mistral", settings.LLM.Model)
}

func TestSettingsService_Get_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]any
		wantErr error
	}{
		{"unknown embedding provider", map[string]any{KeyEmbedProvider: "cohere"}, domain.ErrUnsupportedType},
		{"hashing generation", map[string]any{KeyLLMProvider: "hashing"}, domain.ErrUnsupportedType},
		{"overlap not below size", map[string]any{KeyChunkSize: 100, KeyChunkOverlap: 100}, domain.ErrInvalidInput},
		{"zero top k", map[string]any{KeyTopK: 0}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSettingsService(newMockConfigStore(tt.data)).Get()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	values := DefaultConfigValues()

	settings, err := NewSettingsService(newMockConfigStore(values)).Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)

	assert.Equal(t, 120, values[KeyLLMTimeout])
	assert.NotContains(t, values, KeyLLMAPIKey)
	assert.NotContains(t, values, KeyEmbedAPIKey)
}
