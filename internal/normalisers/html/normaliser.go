// Package html provides a Normaliser for HTML documents. It keeps the
// readable text, dropping tags, scripts and styles, and decodes entities.
package html

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// Normalise converts an HTML document to text. The title comes from the
// <title> element.
func (n *Normaliser) Normalise(_ context.Context, path string, content []byte) (*driven.NormaliseResult, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrInvalidInput, path)
	}

	text := string(content)
	return &driven.NormaliseResult{
		Title:   extractTitle(text),
		Content: stripHTML(text),
	}, nil
}

var (
	titleTag   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	comments   = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockTags  = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|li|ul|ol|tr|table|blockquote|pre|section|article|header|footer|main|nav)\b[^>]*>`)
	lineBreaks = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	tags       = regexp.MustCompile(`<[^>]+>`)
	spaces     = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
)

// droppedElements are removed together with their content.
var droppedElements = func() []*regexp.Regexp {
	var res []*regexp.Regexp
	for _, name := range []string{"script", "style", "noscript", "template", "svg", "title", "head"} {
		res = append(res, regexp.MustCompile(`(?is)<`+name+`\b[^>]*>.*?</`+name+`>`))
	}
	return res
}()

// extractTitle returns the decoded <title> text, if any.
func extractTitle(content string) string {
	matches := titleTag.FindStringSubmatch(content)
	if len(matches) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(matches[1]))
}

// stripHTML keeps the visible text. Block elements become paragraph
// breaks so the chunker can split on them.
func stripHTML(content string) string {
	for _, re := range droppedElements {
		content = re.ReplaceAllString(content, "")
	}
	content = comments.ReplaceAllString(content, "")
	content = blockTags.ReplaceAllString(content, "\n\n")
	content = lineBreaks.ReplaceAllString(content, "\n")
	content = tags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = spaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	content = strings.Join(lines, "\n")

	return strings.TrimSpace(blankRuns.ReplaceAllString(content, "\n\n"))
}
