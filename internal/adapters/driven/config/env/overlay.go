// Package env overlays process environment variables on a config store.
//
// Environment values win over file values. They are read through a lookup
// function at access time and are never written back to the file.
package env

import (
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Overlay implements the interface.
var _ driven.ConfigStore = (*Overlay)(nil)

// Bindings maps config keys to environment variables, first match wins.
var Bindings = map[string][]string{
	"llm.provider":        {"LLM_PROVIDER"},
	"llm.model":           {"MODEL_NAME"},
	"embedding.provider":  {"EMBEDDING_PROVIDER"},
	"embedding.model":     {"EMBEDDING_MODEL"},
	"index.path":          {"INDEX_PATH", "CHROMA_PATH"},
	"index.documents_dir": {"DOCUMENTS_DIR"},
}

// apiKeyVars lists credential variables per provider. They resolve the
// embedding.api_key and llm.api_key keys for whichever provider is active.
//
//nolint:gosec // G101: variable names, not credentials.
var apiKeyVars = map[domain.AIProvider][]string{
	domain.AIProviderHuggingFace: {"HUGGINGFACE_API_KEY", "HUGGINGFACEHUB_API_TOKEN"},
	domain.AIProviderOpenAI:      {"OPENAI_API_KEY"},
	domain.AIProviderAnthropic:   {"ANTHROPIC_API_KEY"},
}

const (
	keyEmbeddingAPIKey = "embedding.api_key"
	keyLLMAPIKey       = "llm.api_key"
)

// Overlay is a driven.ConfigStore that consults the environment before
// delegating to a wrapped store.
type Overlay struct {
	store  driven.ConfigStore
	lookup func(string) (string, bool)
}

// Option configures an Overlay.
type Option func(*Overlay)

// WithLookup replaces os.LookupEnv.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(o *Overlay) {
		o.lookup = lookup
	}
}

// NewOverlay wraps store.
func NewOverlay(store driven.ConfigStore, opts ...Option) *Overlay {
	o := &Overlay{
		store:  store,
		lookup: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Source returns the environment variable that currently supplies key,
// or an empty string when the value comes from the wrapped store.
func (o *Overlay) Source(key string) string {
	for _, name := range o.vars(key) {
		if v, ok := o.lookup(name); ok && v != "" {
			return name
		}
	}
	return ""
}

func (o *Overlay) vars(key string) []string {
	switch key {
	case keyEmbeddingAPIKey:
		return apiKeyVars[o.provider("embedding.provider", domain.DefaultSettings().Embedding.Provider)]
	case keyLLMAPIKey:
		return apiKeyVars[o.provider("llm.provider", domain.DefaultSettings().LLM.Provider)]
	default:
		return Bindings[key]
	}
}

func (o *Overlay) provider(key string, fallback domain.AIProvider) domain.AIProvider {
	if v := o.GetString(key); v != "" {
		return domain.AIProvider(strings.ToLower(v))
	}
	return fallback
}

func (o *Overlay) env(key string) (string, bool) {
	if name := o.Source(key); name != "" {
		v, _ := o.lookup(name)
		return v, true
	}
	return "", false
}

// Get retrieves a configuration value by key.
func (o *Overlay) Get(key string) (any, bool) {
	if v, ok := o.env(key); ok {
		return v, true
	}
	return o.store.Get(key)
}

// GetString retrieves a string configuration value.
func (o *Overlay) GetString(key string) string {
	if v, ok := o.env(key); ok {
		return v
	}
	return o.store.GetString(key)
}

// GetInt retrieves an integer configuration value.
func (o *Overlay) GetInt(key string) int {
	if v, ok := o.env(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return o.store.GetInt(key)
}

// GetFloat retrieves a floating point configuration value.
func (o *Overlay) GetFloat(key string) float64 {
	if v, ok := o.env(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return o.store.GetFloat(key)
}

// GetBool retrieves a boolean configuration value.
func (o *Overlay) GetBool(key string) bool {
	if v, ok := o.env(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return o.store.GetBool(key)
}

// GetStringSlice retrieves a string slice configuration value.
// Environment values are comma separated.
func (o *Overlay) GetStringSlice(key string) []string {
	if v, ok := o.env(key); ok {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return o.store.GetStringSlice(key)
}

// Set writes to the wrapped store.
func (o *Overlay) Set(key string, value any) error {
	return o.store.Set(key, value)
}

// Save persists the wrapped store.
func (o *Overlay) Save() error {
	return o.store.Save()
}

// Load reloads the wrapped store.
func (o *Overlay) Load() error {
	return o.store.Load()
}

// Path returns the wrapped store's file path.
func (o *Overlay) Path() string {
	return o.store.Path()
}
