// Package huggingface provides an embedding service adapter using the
// Hugging Face Inference API feature-extraction pipeline.
package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
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
	DefaultBaseURL = "https://api-inference.huggingface.co"
	DefaultModel   = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultTimeout = 60 * time.Second
)

// Model dimensions for common sentence-transformers models.
var modelDimensions = map[string]int{
	"sentence-transformers/all-MiniLM-L6-v2":          384,
	"sentence-transformers/all-MiniLM-L12-v2":         384,
	"sentence-transformers/all-mpnet-base-v2":         768,
	"sentence-transformers/multi-qa-MiniLM-L6-cos-v1": 384,
	"BAAI/bge-small-en-v1.5":                          384,
	"BAAI/bge-base-en-v1.5":                           768,
}

// Config holds configuration for the Hugging Face embedding service.
type Config struct {
	// APIKey is the Hugging Face access token (required).
	APIKey string

	// BaseURL is the inference API base URL.
	BaseURL string

	// Model is the embedding model repository id.
	Model string

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the known dimension for the model.
	// When zero and the model is unknown, it is learned from the first response.
	Dimensions int

	// WaitForModel asks the API to block while a cold model loads
	// instead of answering 503.
	WaitForModel bool

	// Limiter bounds outbound requests. Optional.
	Limiter *ratelimit.Limiter

	// Retry configures retries of transient failures.
	// Zero value uses retry.DefaultConfig.
	Retry retry.Config
}

// EmbeddingService generates embeddings using the Hugging Face Inference API.
type EmbeddingService struct {
	api          *httpapi.Client
	model        string
	waitForModel bool
	retry        retry.Config
	dimensions   atomic.Int64
}

// embeddingRequest is the feature-extraction request format.
type embeddingRequest struct {
	Inputs  []string          `json:"inputs"`
	Options *embeddingOptions `json:"options,omitempty"`
}

type embeddingOptions struct {
	WaitForModel bool `json:"wait_for_model,omitempty"`
}

// errorResponse is returned by the API on failure.
type errorResponse struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}

// NewEmbeddingService creates a new Hugging Face embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("huggingface: API key is required: %w", domain.ErrNotConfigured)
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

	s := &EmbeddingService{
		api: httpapi.New("huggingface", cfg.BaseURL,
			httpapi.WithBearer(cfg.APIKey),
			httpapi.WithTimeout(cfg.Timeout),
			httpapi.WithLimiter(cfg.Limiter),
		),
		model:        cfg.Model,
		waitForModel: cfg.WaitForModel,
		retry:        cfg.Retry,
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = modelDimensions[cfg.Model]
	}
	s.dimensions.Store(int64(dimensions))

	return s, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
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
	reqBody := embeddingRequest{Inputs: texts}
	if s.waitForModel {
		reqBody.Options = &embeddingOptions{WaitForModel: true}
	}

	resp, err := s.api.Do(ctx, http.MethodPost, "/pipeline/feature-extraction/"+s.model, reqBody)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		var apiErr errorResponse
		_ = json.Unmarshal(resp.Body, &apiErr)
		return nil, s.api.StatusError(resp, apiErr.Error)
	}

	embeddings, err := decodeEmbeddings(resp.Body)
	if err != nil {
		return nil, s.api.Malformed("%v", err)
	}
	if len(embeddings) != len(texts) {
		return nil, s.api.Malformed("got %d embeddings for %d inputs", len(embeddings), len(texts))
	}
	if err := s.checkDimensions(embeddings); err != nil {
		return nil, err
	}

	return embeddings, nil
}

func (s *EmbeddingService) checkDimensions(embeddings [][]float32) error {
	want := int(s.dimensions.Load())
	for i, e := range embeddings {
		if len(e) == 0 {
			return s.api.Malformed("empty embedding at %d", i)
		}
		if want == 0 {
			s.dimensions.CompareAndSwap(0, int64(len(e)))
			want = int(s.dimensions.Load())
		}
		if len(e) != want {
			return s.api.Malformed("embedding %d has %d dimensions, expected %d", i, len(e), want)
		}
	}
	return nil
}

// decodeEmbeddings accepts sentence-level vectors or token-level vectors.
// Token-level output (models without a pooling layer) is mean-pooled.
func decodeEmbeddings(body []byte) ([][]float32, error) {
	var embeddings [][]float32
	if err := json.Unmarshal(body, &embeddings); err == nil {
		return embeddings, nil
	}

	var tokenEmbeddings [][][]float32
	if err := json.Unmarshal(body, &tokenEmbeddings); err != nil {
		return nil, errors.New("response is neither sentence nor token embeddings")
	}

	embeddings = make([][]float32, len(tokenEmbeddings))
	for i, tokens := range tokenEmbeddings {
		if len(tokens) == 0 {
			continue
		}
		pooled := make([]float32, len(tokens[0]))
		for _, token := range tokens {
			for j := 0; j < len(pooled) && j < len(token); j++ {
				pooled[j] += token[j]
			}
		}
		for j := range pooled {
			pooled[j] /= float32(len(tokens))
		}
		embeddings[i] = pooled
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
// Zero means the size is not known until the first request completes.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by embedding a short text.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.embedOnce(ctx, []string{"ping"}); err != nil {
		return fmt.Errorf("huggingface: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
