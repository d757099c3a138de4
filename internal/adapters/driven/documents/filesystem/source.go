// Package filesystem loads the document corpus from a local directory and
// watches it for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultGlob matches every text file below the root.
const DefaultGlob = "**/*.txt"

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// documentNamespace seeds deterministic document IDs.
var documentNamespace = uuid.MustParse("6f1c1f9e-3c1d-4b8e-9a55-2f4a7c0d8e11")

// Source reads one document per matching file below a root directory.
type Source struct {
	root       string
	glob       string
	normaliser driven.Normaliser
	now        func() time.Time
}

// Option configures a Source.
type Option func(*Source)

// WithNormaliser converts file content to text before it is indexed.
// Without one, content is used verbatim.
func WithNormaliser(n driven.Normaliser) Option {
	return func(s *Source) {
		s.normaliser = n
	}
}

// New creates a source for root. An empty glob selects DefaultGlob.
func New(root, glob string, opts ...Option) *Source {
	if glob == "" {
		glob = DefaultGlob
	}
	s := &Source{
		root: root,
		glob: glob,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the corpus directory.
func (s *Source) Root() string {
	return s.root
}

// Glob returns the file pattern, relative to the root.
func (s *Source) Glob() string {
	return s.glob
}

// Load walks the root recursively and returns the matching documents in
// path order. Hidden files and directories are skipped, as are files the
// normaliser rejects as invalid input.
func (s *Source) Load(ctx context.Context) ([]domain.Document, error) {
	if !doublestar.ValidatePattern(s.glob) {
		return nil, fmt.Errorf("%w: bad glob pattern %q", domain.ErrInvalidInput, s.glob)
	}

	info, err := os.Stat(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("documents directory %s: %w", s.root, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("stat documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, s.root)
	}

	docs := []domain.Document{}
	loadedAt := s.now().UTC()

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if path != s.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !s.Matches(path) {
			return nil
		}

		doc, err := s.read(ctx, path)
		if errors.Is(err, domain.ErrInvalidInput) {
			logger.Warn("skipping %s: %v", path, err)
			return nil
		}
		if err != nil {
			return err
		}

		doc.LoadedAt = loadedAt
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// read loads one file and normalises it.
func (s *Source) read(ctx context.Context, path string) (domain.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	doc := domain.Document{
		ID:      documentID(path),
		Source:  path,
		Title:   filepath.Base(path),
		Content: string(content),
	}
	if s.normaliser == nil {
		return doc, nil
	}

	res, err := s.normaliser.Normalise(ctx, path, content)
	if err != nil {
		return domain.Document{}, err
	}
	doc.Content = res.Content
	if res.Title != "" {
		doc.Title = res.Title
	}
	return doc, nil
}

// Matches reports whether path, below the root, is selected by the glob.
func (s *Source) Matches(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	ok, err := doublestar.Match(s.glob, filepath.ToSlash(rel))
	return err == nil && ok
}

func documentID(path string) string {
	return uuid.NewSHA1(documentNamespace, []byte(filepath.ToSlash(path))).String()
}

// isHidden reports whether any element of path starts with a dot.
// The "." and ".." elements are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
