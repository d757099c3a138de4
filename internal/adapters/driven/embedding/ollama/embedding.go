// Package ollama provides an embedding service adapter for a local Ollama
// server.
package ollama

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
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 60 * time.Second
	DefaultDimensions = 768 // nomic-embed-text
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	// BaseURL is the Ollama server URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model (default: nomic-embed-text).
	Model string

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions is the vector size the model produces.
	Dimensions int

	// Limiter bounds outbound requests. Optional.
	Limiter *ratelimit.Limiter

	// Retry configures retries of transient failures.
	// Zero value uses retry.DefaultConfig.
	Retry retry.Config
}

// EmbeddingService generates embeddings using Ollama.
type EmbeddingService struct {
	api        *httpapi.Client
	model      string
	dimensions int
	retry      retry.Config
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewEmbeddingService creates a new Ollama embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}

	return &EmbeddingService{
		api: httpapi.New("ollama", cfg.BaseURL,
			httpapi.WithTimeout(cfg.Timeout),
			httpapi.WithLimiter(cfg.Limiter),
		),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		retry:      cfg.Retry,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var embeddings [][]float32
	err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
		var err error
		embeddings, err = s.embedOnce(ctx, texts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (s *EmbeddingService) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := s.api.Do(ctx, http.MethodPost, "/api/embed", embedRequest{Model: s.model, Input: texts})
	if err != nil {
		return nil, err
	}

	var decoded embedResponse
	if !resp.OK() {
		if json.Unmarshal(resp.Body, &decoded) == nil && decoded.Error != "" {
			return nil, s.statusError(resp, decoded.Error)
		}
		return nil, s.statusError(resp, "")
	}
	if err := s.api.Decode(resp, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, s.api.Unavailable("%s", decoded.Error)
	}
	if len(decoded.Embeddings) != len(texts) {
		return nil, s.api.Malformed("got %d embeddings for %d inputs", len(decoded.Embeddings), len(texts))
	}
	for i, e := range decoded.Embeddings {
		if len(e) != s.dimensions {
			return nil, s.api.Malformed("embedding %d has %d dimensions, expected %d", i, len(e), s.dimensions)
		}
	}
	return decoded.Embeddings, nil
}

// statusError reports a missing model with the pull command. Server
// errors, such as a model still loading, are retried.
func (s *EmbeddingService) statusError(resp *httpapi.Response, msg string) error {
	if resp.StatusCode == http.StatusNotFound {
		return s.api.Unavailable("model %q is not available (run 'ollama pull %s'): %s", s.model, s.model, msg)
	}
	return s.api.StatusError(resp, msg)
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks that the server is up and has the model pulled, without
// running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	resp, err := s.api.Ping(ctx, "/api/tags")
	if err != nil {
		return err
	}

	var tags tagsResponse
	if err := s.api.Decode(resp, &tags); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, s.model) {
			return nil
		}
	}
	return s.api.Unavailable("model %q is not pulled (run 'ollama pull %s')", s.model, s.model)
}

// sameModel compares model names, treating a missing tag as "latest".
func sameModel(a, b string) bool {
	withTag := func(name string) string {
		if strings.Contains(name, ":") {
			return name
		}
		return name + ":latest"
	}
	return withTag(a) == withTag(b)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
