package normalisers

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/html"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.Normaliser = (*Registry)(nil)

// Registry dispatches to a normaliser by file extension. Files with an
// unregistered extension go to the fallback.
type Registry struct {
	byExt    map[string]driven.Normaliser
	fallback driven.Normaliser
}

// NewRegistry creates a registry. Later normalisers win when two claim
// the same extension.
func NewRegistry(fallback driven.Normaliser, normalisers ...driven.Normaliser) *Registry {
	r := &Registry{
		byExt:    make(map[string]driven.Normaliser),
		fallback: fallback,
	}
	for _, n := range normalisers {
		for _, ext := range n.Extensions() {
			r.byExt[strings.ToLower(ext)] = n
		}
	}
	return r
}

// Default returns a registry for plain text, Markdown and HTML files,
// falling back to plain text.
func Default() *Registry {
	text := plaintext.New()
	return NewRegistry(text, text, markdown.New(), html.New())
}

// For returns the normaliser for path.
func (r *Registry) For(path string) driven.Normaliser {
	if n, ok := r.byExt[strings.ToLower(filepath.Ext(path))]; ok {
		return n
	}
	return r.fallback
}

// Extensions returns every registered extension.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// Normalise normalises path with the matching normaliser.
func (r *Registry) Normalise(ctx context.Context, path string, content []byte) (*driven.NormaliseResult, error) {
	return r.For(path).Normalise(ctx, path, content)
}
