// Package anthropic provides an LLM service adapter for the Anthropic
// messages API.
package anthropic

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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout bounds one Generate call, retries included (default: 120s).
	Timeout time.Duration

	// Limiter bounds outbound requests. Optional.
	Limiter *ratelimit.Limiter

	// Retry configures retries of transient failures.
	// Zero value uses retry.DefaultConfig.
	Retry retry.Config
}

// LLMService generates text through the messages API.
type LLMService struct {
	api     *httpapi.Client
	model   string
	timeout time.Duration
	retry   retry.Config
}

type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature,omitempty"`
	StopSeqs    []string          `json:"stop_sequences,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Error      *apiError      `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required: %w", domain.ErrNotConfigured)
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
		api: httpapi.New("anthropic", cfg.BaseURL,
			httpapi.WithHeader("x-api-key", cfg.APIKey),
			httpapi.WithHeader("anthropic-version", anthropicVersion),
			httpapi.WithLimiter(cfg.Limiter),
		),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		retry:   cfg.Retry,
	}, nil
}

// Generate sends the prompt as a single user message.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return httpapi.Bounded(ctx, "anthropic", s.timeout, func(ctx context.Context) (string, error) {
		var text string
		err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
			var err error
			text, err = s.sendMessage(ctx, prompt, opts)
			return err
		})
		return text, err
	})
}

func (s *LLMService) sendMessage(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	// max_tokens is mandatory for this API.
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	resp, err := s.api.Do(ctx, http.MethodPost, "/v1/messages", messagesRequest{
		Model:       s.model,
		Messages:    []messagesMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		StopSeqs:    opts.StopWords,
	})
	if err != nil {
		return "", err
	}

	var decoded messagesResponse
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

	var result strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(result.String())
	if text == "" {
		return "", s.api.Malformed("no text content returned")
	}
	return text, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the API key against /v1/models without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.api.Ping(ctx, "/v1/models")
	return err
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
