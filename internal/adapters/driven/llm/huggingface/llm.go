// Package huggingface provides an LLM service adapter using the Hugging
// Face Inference API text-generation task.
package huggingface

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

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api-inference.huggingface.co"
	DefaultModel   = "mistralai/Mistral-7B-Instruct-v0.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Hugging Face LLM service.
type Config struct {
	// APIKey is the Hugging Face access token (required).
	APIKey string

	// BaseURL is the inference API base URL.
	BaseURL string

	// Model is the text-generation model repository id.
	Model string

	// Timeout bounds one Generate call, retries included (default: 120s).
	Timeout time.Duration

	// WaitForModel asks the API to block while a cold model loads.
	WaitForModel bool

	// Limiter bounds outbound requests. Optional.
	Limiter *ratelimit.Limiter

	// Retry configures retries of transient failures.
	// Zero value uses retry.DefaultConfig.
	Retry retry.Config
}

// LLMService generates text using the Hugging Face Inference API.
type LLMService struct {
	api          *httpapi.Client
	model        string
	timeout      time.Duration
	waitForModel bool
	retry        retry.Config
}

// generateRequest is the text-generation request format.
type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
	Options    *generationOptions `json:"options,omitempty"`
}

type generateParameters struct {
	MaxNewTokens   int      `json:"max_new_tokens,omitempty"`
	Temperature    float64  `json:"temperature,omitempty"`
	ReturnFullText bool     `json:"return_full_text"`
	Stop           []string `json:"stop,omitempty"`
}

type generationOptions struct {
	WaitForModel bool `json:"wait_for_model,omitempty"`
}

// generation is one element of the text-generation response array.
type generation struct {
	GeneratedText string `json:"generated_text"`
}

// NewLLMService creates a new Hugging Face LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
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

	return &LLMService{
		api: httpapi.New("huggingface", cfg.BaseURL,
			httpapi.WithBearer(cfg.APIKey),
			httpapi.WithLimiter(cfg.Limiter),
		),
		model:        cfg.Model,
		timeout:      cfg.Timeout,
		waitForModel: cfg.WaitForModel,
		retry:        cfg.Retry,
	}, nil
}

// Generate produces text completion from a prompt. Only the continuation
// is returned, never the prompt. Blank output is reported as a malformed
// response.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return httpapi.Bounded(ctx, "huggingface", s.timeout, func(ctx context.Context) (string, error) {
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
	reqBody := generateRequest{
		Inputs: prompt,
		Parameters: generateParameters{
			MaxNewTokens: opts.MaxTokens,
			Temperature:  opts.Temperature,
			Stop:         opts.StopWords,
		},
	}
	if s.waitForModel {
		reqBody.Options = &generationOptions{WaitForModel: true}
	}

	resp, err := s.api.Do(ctx, http.MethodPost, "/models/"+s.model, reqBody)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(resp.Body, &apiErr)
		return "", s.api.StatusError(resp, apiErr.Error)
	}

	var results []generation
	if json.Unmarshal(resp.Body, &results) != nil {
		// Some deployments answer with a single object.
		var single generation
		if err := s.api.Decode(resp, &single); err != nil {
			return "", err
		}
		results = []generation{single}
	}
	if len(results) == 0 {
		return "", s.api.Malformed("no generations returned")
	}

	text := strings.TrimSpace(results[0].GeneratedText)
	if text == "" {
		return "", s.api.Malformed("empty generated text")
	}
	return text, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by generating a single token.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.generateOnce(ctx, "ping", driven.GenerateOptions{MaxTokens: 1}); err != nil {
		return fmt.Errorf("huggingface: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
