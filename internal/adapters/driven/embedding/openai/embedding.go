// Package openai provides an embedding service adapter for the OpenAI
// embeddings endpoint and compatible APIs.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/retry"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// MaxInputs is the largest number of inputs sent in one request.
	MaxInputs = 2048
)

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL. Point it at a compatible server to use
	// one.
	BaseURL string

	// Model is the embedding model (default: text-embedding-3-small).
	Model string

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions shortens text-embedding-3 vectors. Zero keeps the model size.
	Dimensions int

	// Limiter bounds outbound requests. Optional.
	Limiter *ratelimit.Limiter

	// Retry configures retries of transient failures.
	// Zero value uses retry.DefaultConfig.
	Retry retry.Config
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	api        *httpapi.Client
	model      string
	dimensions int
	shorten    bool
	retry      retry.Config
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}

	dimensions, known := modelDimensions[cfg.Model]
	if !known {
		dimensions = modelDimensions[DefaultModel]
	}
	shorten := false
	if cfg.Dimensions > 0 {
		dimensions = cfg.Dimensions
		shorten = strings.HasPrefix(cfg.Model, "text-embedding-3")
	}

	return &EmbeddingService{
		api: httpapi.New("openai", cfg.BaseURL,
			httpapi.WithBearer(cfg.APIKey),
			httpapi.WithTimeout(cfg.Timeout),
			httpapi.WithLimiter(cfg.Limiter),
		),
		model:      cfg.Model,
		dimensions: dimensions,
		shorten:    shorten,
		retry:      cfg.Retry,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for texts, in input order. Inputs beyond
// MaxInputs are sent in further requests.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxInputs {
		part := texts[start:min(start+MaxInputs, len(texts))]

		var embeddings [][]float32
		err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
			var err error
			embeddings, err = s.embedOnce(ctx, part)
			return err
		})
		if err != nil {
			return nil, err
		}
		out = append(out, embeddings...)
	}
	return out, nil
}

func (s *EmbeddingService) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{Model: s.model, Input: texts}
	if s.shorten {
		reqBody.Dimensions = s.dimensions
	}

	resp, err := s.api.Do(ctx, http.MethodPost, "/embeddings", reqBody)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, s.api.StatusError(resp, apiMessage(resp.Body))
	}

	var decoded embeddingResponse
	if err := s.api.Decode(resp, &decoded); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range decoded.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, s.api.Malformed("index %d out of range", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return nil, s.api.Malformed("missing embedding %d", i)
		}
	}
	return embeddings, nil
}

// apiMessage extracts the error message of an OpenAI error body.
func apiMessage(body []byte) string {
	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
		return apiErr.Error.Message
	}
	return ""
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the API key against the models endpoint without running
// inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.api.Ping(ctx, "/models")
	return err
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
