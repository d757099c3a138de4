package driven

import "context"

// LLMService generates text for the analyze stage. It is optional: with
// no LLM configured the pipeline answers from the retrieved context.
//
// Adapters: huggingface, openai, anthropic and ollama.
type LLMService interface {
	// Generate completes prompt. A deadline reached inside the adapter is
	// reported as domain.ErrProviderUnavailable; cancellation by the caller
	// is returned as is.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	ModelName() string

	// Ping is a cheap reachability check that does not run a full
	// generation where the provider allows it.
	Ping(ctx context.Context) error

	Close() error
}

// GenerateOptions are sampling parameters. Zero values leave the provider
// default in place, except that anthropic always sends max_tokens.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	StopWords   []string
}
