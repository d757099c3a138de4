package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHuggingFace is the Hugging Face hosted inference API.
	AIProviderHuggingFace AIProvider = "huggingface"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderHashing is the offline feature-hashing embedder.
	// It has no generation counterpart.
	AIProviderHashing AIProvider = "hashing"

	// AIProviderNone disables the generation service.
	// The pipeline then always answers from the retrieved context.
	AIProviderNone AIProvider = "none"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHuggingFace, AIProviderOllama, AIProviderOpenAI,
		AIProviderAnthropic, AIProviderHashing, AIProviderNone:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderHuggingFace || p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHuggingFace:
		return "Hugging Face Inference API (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderHashing:
		return "Feature hashing (offline)"
	case AIProviderNone:
		return "Disabled"
	default:
		return unknownDescription
	}
}

// Defaults used when settings are absent.
const (
	DefaultEmbeddingModel  = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultGenerationModel = "mistralai/Mistral-7B-Instruct-v0.2"
	DefaultIndexPath       = "./vector_db"
	DefaultDocumentsDir    = "data/documents"
	DefaultDocumentsGlob   = "**/*.txt"
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 200
	DefaultBatchSize       = 32
	DefaultConcurrency     = 2
	DefaultTemperature     = 0.3
	DefaultMaxTokens       = 512
	DefaultLLMTimeout      = 120 * time.Second
	DefaultTopK            = 4
	DefaultRequestsPerSec  = 5.0
	DefaultBurst           = 10
)

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the provider credential.
	APIKey string

	// BatchSize is the number of texts embedded per request.
	BatchSize int

	// Concurrency bounds the number of batches embedded at once.
	Concurrency int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderNone {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation service configuration.
type LLMSettings struct {
	// Provider is the generation service provider.
	Provider AIProvider

	// Model is the generation model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the provider credential.
	APIKey string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the generated output length.
	MaxTokens int

	// Timeout bounds a single generation call.
	Timeout time.Duration
}

// IsConfigured returns true if the generation provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderNone || l.Provider == AIProviderHashing {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings holds vector index and corpus locations.
type IndexSettings struct {
	// Path is the index storage location. Its existence alone decides
	// whether the index is loaded or built.
	Path string

	// DocumentsDir is the corpus directory.
	DocumentsDir string

	// Glob selects corpus files relative to DocumentsDir.
	Glob string
}

// ChunkingSettings holds chunker configuration.
type ChunkingSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int
}

// PipelineSettings holds query pipeline configuration.
type PipelineSettings struct {
	// TopK is the number of chunks retrieved per query.
	TopK int
}

// RateLimitSettings bounds outbound provider requests.
type RateLimitSettings struct {
	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond float64

	// Burst is the maximum burst size.
	Burst int
}

// Settings holds all application settings.
// It is built once at startup and passed to every component that needs it.
type Settings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Index     IndexSettings
	Chunking  ChunkingSettings
	Pipeline  PipelineSettings
	RateLimit RateLimitSettings
}

// DefaultSettings returns settings with sensible defaults.
// Credentials are left empty.
func DefaultSettings() Settings {
	return Settings{
		Embedding: EmbeddingSettings{
			Provider:    AIProviderHuggingFace,
			Model:       DefaultEmbeddingModel,
			BatchSize:   DefaultBatchSize,
			Concurrency: DefaultConcurrency,
		},
		LLM: LLMSettings{
			Provider:    AIProviderHuggingFace,
			Model:       DefaultGenerationModel,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			Timeout:     DefaultLLMTimeout,
		},
		Index: IndexSettings{
			Path:         DefaultIndexPath,
			DocumentsDir: DefaultDocumentsDir,
			Glob:         DefaultDocumentsGlob,
		},
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Pipeline: PipelineSettings{
			TopK: DefaultTopK,
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: DefaultRequestsPerSec,
			Burst:             DefaultBurst,
		},
	}
}

// Validate checks settings invariants.
func (s Settings) Validate() error {
	if !s.Embedding.Provider.IsValid() || s.Embedding.Provider == AIProviderNone {
		return fmt.Errorf("%w: embedding provider %q", ErrUnsupportedType, s.Embedding.Provider)
	}
	if !s.LLM.Provider.IsValid() || s.LLM.Provider == AIProviderHashing {
		return fmt.Errorf("%w: llm provider %q", ErrUnsupportedType, s.LLM.Provider)
	}
	if s.Index.Path == "" {
		return fmt.Errorf("%w: index path is empty", ErrInvalidInput)
	}
	if s.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size {
		return fmt.Errorf("%w: chunk overlap must be in [0, chunk size)", ErrInvalidInput)
	}
	if s.Pipeline.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidInput)
	}
	if s.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch size must be positive", ErrInvalidInput)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHuggingFace,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderHashing,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderHuggingFace,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderNone,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHuggingFace: DefaultEmbeddingModel,
		AIProviderOllama:      "nomic-embed-text",
		AIProviderOpenAI:      "text-embedding-3-small",
		AIProviderHashing:     "hashing-384",
	}
}

// DefaultLLMModels returns default models for each generation provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHuggingFace: DefaultGenerationModel,
		AIProviderOllama:      "llama3.2",
		AIProviderOpenAI:      "gpt-4o-mini",
		AIProviderAnthropic:   "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Hugging Face models
		"sentence-transformers/all-MiniLM-L6-v2":  384,
		"sentence-transformers/all-mpnet-base-v2": 768,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Offline
		"hashing-384": 384,
	}
}
