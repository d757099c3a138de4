// Package openai provides an LLM service adapter for the OpenAI chat
// completions API and compatible servers.
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

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Azure OpenAI and other compatible servers work too.
	BaseURL string

	// Model is the chat model (default: gpt-4o-mini).
	Model string

	// Timeout bounds one Generate call, retries included (default: 120s).
	Timeout time.Duration

	// Limiter bounds outbound requests. Optional.
	Limiter *ratelimit.Limiter

	// Retry configures retries of transient failures.
	// Zero value uses retry.DefaultConfig.
	Retry retry.Config
}

// LLMService generates text through chat completions.
type LLMService struct {
	api     *httpapi.Client
	model   string
	timeout time.Duration
	retry   retry.Config
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatCompletionMsg `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrNotConfigured)
	}
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
		api: httpapi.New("openai", cfg.BaseURL,
			httpapi.WithBearer(cfg.APIKey),
			httpapi.WithLimiter(cfg.Limiter),
		),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		retry:   cfg.Retry,
	}, nil
}

// Generate sends the prompt as a single user message.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return httpapi.Bounded(ctx, "openai", s.timeout, func(ctx context.Context) (string, error) {
		var text string
		err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
			var err error
			text, err = s.chatCompletion(ctx, prompt, opts)
			return err
		})
		return text, err
	})
}

func (s *LLMService) chatCompletion(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	resp, err := s.api.Do(ctx, http.MethodPost, "/chat/completions", chatCompletionRequest{
		Model:       s.model,
		Messages:    []chatCompletionMsg{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopWords,
	})
	if err != nil {
		return "", err
	}

	var decoded chatCompletionResponse
	if !resp.OK() {
		msg := ""
		if json.Unmarshal(resp.Body, &decoded) == nil && decoded.Error != nil {
			msg = decoded.Error.Message
		}
		return "", s.api.StatusError(resp, msg)
	}
	if err := s.api.Decode(resp, &decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil {
		return "", s.api.Unavailable("%s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", s.api.Malformed("no choices returned")
	}

	text := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if text == "" {
		return "", s.api.Malformed("empty completion")
	}
	return text, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the API key against /models without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.api.Ping(ctx, "/models")
	return err
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
