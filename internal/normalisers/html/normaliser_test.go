package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestExtensions(t *testing.T) {
	assert.Contains(t, New().Extensions(), ".html")
	assert.Contains(t, New().Extensions(), ".htm")
}

func TestNormalise(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head>
  <title>RAG &amp; Retrieval</title>
  <style>body { color: red; }</style>
  <script>console.log("head");</script>
</head>
<body>
  <!-- navigation -->
  <h1>Retrieval-Augmented Generation</h1>
  <p>RAG combines   retrieval with <b>generation</b>.</p>
  <script>alert("x")</script>
  <ul><li>Chunking</li><li>Embedding</li></ul>
  <p>Line one<br/>Line two</p>
  <svg><text>vector art</text></svg>
</body>
</html>`

	result, err := New().Normalise(context.Background(), "rag.html", []byte(page))
	require.NoError(t, err)

	assert.Equal(t, "RAG & Retrieval", result.Title)
	assert.Contains(t, result.Content, "Retrieval-Augmented Generation")
	assert.Contains(t, result.Content, "RAG combines retrieval with generation.")
	assert.Contains(t, result.Content, "Chunking")
	assert.Contains(t, result.Content, "Line one\nLine two")
	assert.NotContains(t, result.Content, "color: red")
	assert.NotContains(t, result.Content, "alert")
	assert.NotContains(t, result.Content, "console.log")
	assert.NotContains(t, result.Content, "navigation")
	assert.NotContains(t, result.Content, "vector art")
	assert.NotContains(t, result.Content, "<")
	assert.NotContains(t, result.Content, "\n\n\n")
}

func TestStripHTML_ParagraphBreaks(t *testing.T) {
	got := stripHTML("<p>first</p><p>second</p>")

	assert.Equal(t, "first\n\nsecond", got)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"simple", "<title>Page</title>", "Page"},
		{"attributes and case", `<TITLE lang="en"> Spaced </TITLE>`, "Spaced"},
		{"entities", "<title>A &lt; B</title>", "A < B"},
		{"missing", "<h1>Heading</h1>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractTitle(tt.content))
		})
	}
}

func TestNormalise_RejectsBinary(t *testing.T) {
	_, err := New().Normalise(context.Background(), "x.html", []byte{0xc3, 0x28})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
