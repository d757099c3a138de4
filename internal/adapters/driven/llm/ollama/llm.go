// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/retry"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout bounds one Generate call, retries included (default: 120s).
	Timeout time.Duration

	// Limiter bounds outbound requests. Optional.
	Limiter *ratelimit.Limiter

	// Retry configures retries of transient failures.
	// Zero value uses retry.DefaultConfig.
	Retry retry.Config
}

// LLMService provides LLM operations using Ollama.
type LLMService struct {
	api     *httpapi.Client
	model   string
	timeout time.Duration
	retry   retry.Config
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds sampling parameters.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}

	return &LLMService{
		api:     httpapi.New("ollama", cfg.BaseURL, httpapi.WithLimiter(cfg.Limiter)),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		retry:   cfg.Retry,
	}
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return httpapi.Bounded(ctx, "ollama", s.timeout, func(ctx context.Context) (string, error) {
		var text string
		err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
			var err error
			text, err = s.generateOnce(ctx, prompt, opts)
			return err
		})
		return text, err
	})
}

func (s *LLMService) generateOnce(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	reqBody := generateRequest{Model: s.model, Prompt: prompt}
	if opts.MaxTokens > 0 || opts.Temperature > 0 || len(opts.StopWords) > 0 {
		reqBody.Options = &options{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			Stop:        opts.StopWords,
		}
	}

	resp, err := s.api.Do(ctx, http.MethodPost, "/api/generate", reqBody)
	if err != nil {
		return "", err
	}

	var decoded generateResponse
	if !resp.OK() {
		_ = json.Unmarshal(resp.Body, &decoded)
		return "", s.api.StatusError(resp, decoded.Error)
	}
	if err := s.api.Decode(resp, &decoded); err != nil {
		return "", err
	}
	if decoded.Error != "" {
		return "", s.api.Unavailable("%s", decoded.Error)
	}

	text := strings.TrimSpace(decoded.Response)
	if text == "" {
		return "", s.api.Malformed("empty response")
	}
	return text, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the /api/tags endpoint, which answers without loading a model.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.api.Ping(ctx, "/api/tags")
	return err
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
