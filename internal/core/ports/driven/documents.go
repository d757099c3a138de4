package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentSource loads the corpus the index is built from.
type DocumentSource interface {
	// Load returns one Document per matching file, ordered by path.
	Load(ctx context.Context) ([]domain.Document, error)

	// Root returns the corpus location.
	Root() string
}

// Chunker splits documents into overlapping chunks.
// Implementations are deterministic and perform no I/O.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Split chunks every document, preserving document order.
	Split(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error)
}

// CorpusWatcher reports changes to the corpus.
type CorpusWatcher interface {
	// Watch streams changes until ctx is cancelled or the watcher is closed.
	Watch(ctx context.Context) (<-chan domain.CorpusChange, error)

	// Close stops watching. It is safe to call more than once.
	Close() error
}

// NormaliseResult is the plain text extracted from one corpus file.
type NormaliseResult struct {
	// Title is a display title found in the file. Empty when none is found.
	Title string

	// Content is the text that gets chunked and embedded.
	Content string
}

// Normaliser converts a corpus file into plain text.
type Normaliser interface {
	// Extensions returns the lower-case file extensions handled, with the dot.
	Extensions() []string

	// Normalise extracts text from the content of the file at path.
	Normalise(ctx context.Context, path string, content []byte) (*NormaliseResult, error)
}
