// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	hfembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/huggingface"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/anthropic"
	hfllm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/huggingface"
	ollamallm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService // Nil when generation is disabled or unavailable.
	Warnings         []string          // Non-fatal issues that caused fallback.
	FellBack         bool              // True if answers will come from the retrieved context only.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates the embedding and generation services for the settings.
//
// The embedding service is required: failing to create it is an error.
// The generation service is optional: when it cannot be created the
// result carries a warning and a nil LLMService. Offline mode uses the
// hashing embedder and no generation service.
func Init(settings domain.Settings, offline bool) (*InitResult, error) {
	result := &InitResult{}

	if offline {
		result.EmbeddingService = hashing.New(offlineDimensions(settings.Embedding))
		result.FellBack = true
		result.Warnings = append(result.Warnings, "offline mode: using the hashing embedder and answering from retrieved context")
		return result, nil
	}

	limiters := make(map[domain.AIProvider]*ratelimit.Limiter)
	limiterFor := func(p domain.AIProvider) *ratelimit.Limiter {
		if p.IsLocal() {
			return nil
		}
		if l, ok := limiters[p]; ok {
			return l
		}
		l := ratelimit.New(p.String(), ratelimit.Config{
			RequestsPerSecond: settings.RateLimit.RequestsPerSecond,
			BurstSize:         settings.RateLimit.Burst,
		})
		limiters[p] = l
		return l
	}

	embedding, err := CreateEmbeddingService(&settings.Embedding, limiterFor(settings.Embedding.Provider))
	if err != nil {
		return nil, err
	}
	result.EmbeddingService = embedding

	llm, err := CreateLLMService(&settings.LLM, limiterFor(settings.LLM.Provider))
	switch {
	case err != nil:
		result.FellBack = true
		result.Warnings = append(result.Warnings, fmt.Sprintf("generation disabled: %v", err))
	case llm == nil:
		result.FellBack = true
		result.Warnings = append(result.Warnings, "generation disabled by configuration")
	default:
		result.LLMService = llm
	}

	return result, nil
}

// offlineDimensions keeps a configured hashing size, else the default.
func offlineDimensions(settings domain.EmbeddingSettings) int {
	if settings.Provider == domain.AIProviderHashing {
		return hashing.ModelDimensions(settings.Model)
	}
	return hashing.DefaultDimensions
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
// A disabled generation service is valid.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings, nil)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// The limiter may be nil.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, limiter *ratelimit.Limiter) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("embedding settings missing: %w", domain.ErrNotConfigured)
	}
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("embedding provider %s needs an API key: %w", settings.Provider, domain.ErrNotConfigured)
	}

	switch settings.Provider {
	case domain.AIProviderHuggingFace:
		return createHuggingFaceEmbedding(settings, limiter)

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings, limiter), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings, limiter)

	case domain.AIProviderHashing:
		return hashing.New(hashing.ModelDimensions(settings.Model)), nil

	default:
		// Anthropic has no embedding API.
		return nil, fmt.Errorf("%w: %s does not support embeddings", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil without error when generation is disabled. The limiter may be nil.
func CreateLLMService(settings *domain.LLMSettings, limiter *ratelimit.Limiter) (driven.LLMService, error) {
	if settings == nil || settings.Provider == domain.AIProviderNone {
		return nil, nil
	}
	if !settings.Provider.IsValid() || settings.Provider == domain.AIProviderHashing {
		return nil, fmt.Errorf("%w: llm provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("llm provider %s needs an API key: %w", settings.Provider, domain.ErrNotConfigured)
	}

	switch settings.Provider {
	case domain.AIProviderHuggingFace:
		return createHuggingFaceLLM(settings, limiter)

	case domain.AIProviderOllama:
		return createOllamaLLM(settings, limiter), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings, limiter)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings, limiter)

	default:
		return nil, fmt.Errorf("%w: llm provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// createHuggingFaceEmbedding creates a Hugging Face embedding service.
func createHuggingFaceEmbedding(settings *domain.EmbeddingSettings, limiter *ratelimit.Limiter) (driven.EmbeddingService, error) {
	return hfembed.NewEmbeddingService(hfembed.Config{
		APIKey:       settings.APIKey,
		BaseURL:      settings.BaseURL,
		Model:        settings.Model,
		Dimensions:   domain.EmbeddingDimensions()[settings.Model],
		WaitForModel: true,
		Limiter:      limiter,
	})
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings, limiter *ratelimit.Limiter) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
		Limiter:    limiter,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings, limiter *ratelimit.Limiter) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
		Limiter:    limiter,
	})
}

// createHuggingFaceLLM creates a Hugging Face LLM service.
func createHuggingFaceLLM(settings *domain.LLMSettings, limiter *ratelimit.Limiter) (driven.LLMService, error) {
	return hfllm.NewLLMService(hfllm.Config{
		APIKey:       settings.APIKey,
		BaseURL:      settings.BaseURL,
		Model:        settings.Model,
		Timeout:      settings.Timeout,
		WaitForModel: true,
		Limiter:      limiter,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings, limiter *ratelimit.Limiter) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: settings.Timeout,
		Limiter: limiter,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings, limiter *ratelimit.Limiter) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: settings.Timeout,
		Limiter: limiter,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings, limiter *ratelimit.Limiter) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: settings.Timeout,
		Limiter: limiter,
	})
}
