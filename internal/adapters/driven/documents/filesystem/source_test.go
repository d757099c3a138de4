package filesystem

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNew_Defaults(t *testing.T) {
	s := New("data/documents", "")
	assert.Equal(t, "data/documents", s.Root())
	assert.Equal(t, DefaultGlob, s.Glob())
}

func TestSource_Load(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "transformers.txt"), "Transformers use attention.")
	writeFile(t, filepath.Join(root, "machine_learning.txt"), "Machine learning is a subset of AI.")
	writeFile(t, filepath.Join(root, "nested", "deep", "rag_systems.txt"), "RAG combines retrieval and generation.")
	writeFile(t, filepath.Join(root, "notes.md"), "not selected")
	writeFile(t, filepath.Join(root, ".hidden.txt"), "hidden")
	writeFile(t, filepath.Join(root, ".git", "config.txt"), "hidden dir")

	docs, err := New(root, "").Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, filepath.Join(root, "machine_learning.txt"), docs[0].Source)
	assert.Equal(t, filepath.Join(root, "nested", "deep", "rag_systems.txt"), docs[1].Source)
	assert.Equal(t, filepath.Join(root, "transformers.txt"), docs[2].Source)

	assert.Equal(t, "machine_learning.txt", docs[0].Title)
	assert.Equal(t, "Machine learning is a subset of AI.", docs[0].Content)
	assert.False(t, docs[0].LoadedAt.IsZero())
	assert.NotEmpty(t, docs[0].ID)
}

func TestSource_Load_DeterministicIDs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, "b.txt"), "beta")

	first, err := New(root, "").Load(context.Background())
	require.NoError(t, err)
	second, err := New(root, "").Load(context.Background())
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestSource_Load_CustomGlob(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.txt"), "top")
	writeFile(t, filepath.Join(root, "sub", "inner.txt"), "inner")
	writeFile(t, filepath.Join(root, "sub", "inner.md"), "markdown")

	tests := []struct {
		name string
		glob string
		want []string
	}{
		{"top level only", "*.txt", []string{"top.txt"}},
		{"recursive", "**/*.txt", []string{"inner.txt", "top.txt"}},
		{"subdirectory", "sub/*", []string{"inner.md", "inner.txt"}},
		{"alternatives", "**/*.{md,txt}", []string{"inner.md", "inner.txt", "top.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := New(root, tt.glob).Load(context.Background())
			require.NoError(t, err)

			var titles []string
			for _, d := range docs {
				titles = append(titles, d.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestSource_Load_EmptyDirectory(t *testing.T) {
	docs, err := New(t.TempDir(), "").Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestSource_Load_Errors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, file, "x")

	tests := []struct {
		name    string
		root    string
		glob    string
		wantErr error
	}{
		{"missing directory", filepath.Join(t.TempDir(), "missing"), "", domain.ErrNotFound},
		{"root is a file", file, "", domain.ErrInvalidInput},
		{"bad glob", t.TempDir(), "[", domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.root, tt.glob).Load(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSource_Load_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(root, "").Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_Matches(t *testing.T) {
	s := New("/corpus", "")

	assert.True(t, s.Matches("/corpus/a.txt"))
	assert.True(t, s.Matches("/corpus/x/y/a.txt"))
	assert.False(t, s.Matches("/corpus/a.md"))
	assert.False(t, s.Matches("/elsewhere/a.txt"))
	assert.False(t, s.Matches("/corpus"))
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"dir/.git/config", true},
		{".config/.cache/data", true},
		{"file.txt", false},
		{"path/to/file.txt", false},
		{".", false},
		{"..", false},
		{"path/../file", false},
		{"", false},
		{"file.hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

// failingNormaliser rejects every file with err.
type failingNormaliser struct {
	err error
}

func (f *failingNormaliser) Extensions() []string { return nil }

func (f *failingNormaliser) Normalise(_ context.Context, _ string, _ []byte) (*driven.NormaliseResult, error) {
	return nil, f.err
}

func TestSource_Load_WithNormaliser(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "# not a heading in text\n")
	writeFile(t, filepath.Join(root, "b.md"), "# Embeddings\n\nDense **vectors**.")
	writeFile(t, filepath.Join(root, "c.html"), "<title>Chunking</title><p>Split &amp; overlap.</p>")

	docs, err := New(root, "**/*.{txt,md,html}", WithNormaliser(normalisers.Default())).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "a.txt", docs[0].Title)
	assert.Equal(t, "# not a heading in text\n", docs[0].Content)

	assert.Equal(t, "Embeddings", docs[1].Title)
	assert.Equal(t, "Embeddings\n\nDense vectors.", docs[1].Content)

	assert.Equal(t, "Chunking", docs[2].Title)
	assert.Equal(t, "Split & overlap.", docs[2].Content)
}

func TestSource_Load_SkipsRejectedFiles(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good.txt"), "fine")
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.txt"), []byte{0xff, 0xfe}, 0644))

	docs, err := New(root, "", WithNormaliser(normalisers.Default())).Load(context.Background())

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good.txt", docs[0].Title)
	assert.Contains(t, logs.String(), "bad.txt")
}

func TestSource_Load_NormaliserError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "text")
	boom := errors.New("boom")

	_, err := New(root, "", WithNormaliser(&failingNormaliser{err: boom})).Load(context.Background())

	assert.ErrorIs(t, err, boom)
}
