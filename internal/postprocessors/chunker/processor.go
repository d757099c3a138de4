// Package chunker provides a recursive, overlap-preserving text chunker.
//
// Text is split on the largest structural boundary that yields pieces no
// longer than the chunk size: paragraphs first, then lines, sentences,
// words and finally single characters. Pieces are then merged greedily
// into chunks, carrying up to the overlap of trailing text into the next
// chunk. Lengths are measured in runes.
package chunker

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/custodia-labs/sercha-rag/chunk"))

// sentenceEnd matches terminal punctuation followed by whitespace.
var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// boundary splits text after each occurrence of a structural separator.
// Separators stay attached to the preceding piece so concatenating the
// pieces restores the input.
type boundary struct {
	name  string
	split func(string) []string
}

// boundaries are tried in order, largest first.
var boundaries = []boundary{
	{name: "paragraph", split: splitAfter("\n\n")},
	{name: "line", split: splitAfter("\n")},
	{name: "sentence", split: splitSentences},
	{name: "word", split: splitAfter(" ")},
	{name: "character", split: splitRunes},
}

// Processor splits document content into overlapping chunks.
// It implements the Chunker interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
// An overlap that is not smaller than the chunk size is reduced to a
// quarter of the chunk size.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// NewFromSettings creates a chunker from explicit settings.
// Unlike New, invalid settings are rejected rather than adjusted.
func NewFromSettings(cfg domain.ChunkingSettings) (*Processor, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, cfg.Size)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", domain.ErrInvalidInput, cfg.Overlap, cfg.Size)
	}
	return &Processor{chunkSize: cfg.Size, overlap: cfg.Overlap}, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split chunks every document in order.
func (p *Processor) Split(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for i := range docs {
		docChunks, err := p.Process(ctx, &docs[i])
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, docChunks...)
	}
	return chunks, nil
}

// Process splits the document content into chunks.
// Chunk IDs derive from the source, position and text, so processing the
// same document twice yields identical chunks.
func (p *Processor) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := p.SplitText(doc.Content)
	if len(texts) == 0 {
		// Empty content produces no chunks
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(texts))
	for position, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:         chunkID(doc.Source, position, text),
			DocumentID: doc.ID,
			Source:     doc.Source,
			Content:    text,
			Position:   position,
		})
	}

	return chunks, nil
}

// SplitText splits raw text into chunk texts.
func (p *Processor) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return p.split(text, boundaries)
}

// split breaks text on the first boundary present in it and merges the
// pieces. Pieces still longer than the chunk size are split again with
// the remaining, finer boundaries.
func (p *Processor) split(text string, candidates []boundary) []string {
	level := len(candidates) - 1
	var pieces []string
	for i, b := range candidates {
		parts := b.split(text)
		if len(parts) > 1 || i == len(candidates)-1 {
			level = i
			pieces = parts
			break
		}
	}
	finer := candidates[level+1:]

	var out, pending []string
	for _, piece := range pieces {
		if runeLen(piece) <= p.chunkSize {
			pending = append(pending, piece)
			continue
		}

		if len(pending) > 0 {
			out = append(out, p.merge(pending)...)
			pending = nil
		}
		if len(finer) == 0 {
			out = appendTrimmed(out, piece)
			continue
		}
		out = append(out, p.split(piece, finer)...)
	}
	if len(pending) > 0 {
		out = append(out, p.merge(pending)...)
	}

	return out
}

// merge packs pieces into chunks of at most chunkSize runes. When a chunk
// is emitted, leading pieces are dropped until at most overlap runes
// remain; those carry into the next chunk.
func (p *Processor) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		lengths []int
		total   int
	)

	for _, piece := range pieces {
		n := runeLen(piece)

		if total+n > p.chunkSize && len(current) > 0 {
			out = appendTrimmed(out, strings.Join(current, ""))

			for len(current) > 0 && (total > p.overlap || total+n > p.chunkSize) {
				total -= lengths[0]
				current = current[1:]
				lengths = lengths[1:]
			}
		}

		current = append(current, piece)
		lengths = append(lengths, n)
		total += n
	}

	if len(current) > 0 {
		out = appendTrimmed(out, strings.Join(current, ""))
	}

	return out
}

func appendTrimmed(out []string, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}
	return append(out, text)
}

// splitAfter returns a splitter that cuts after every occurrence of sep.
func splitAfter(sep string) func(string) []string {
	return func(text string) []string {
		parts := strings.SplitAfter(text, sep)
		if n := len(parts); n > 1 && parts[n-1] == "" {
			parts = parts[:n-1]
		}
		return parts
	}
}

func splitSentences(text string) []string {
	locs := sentenceEnd.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	parts := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		parts = append(parts, text[start:loc[1]])
		start = loc[1]
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

func splitRunes(text string) []string {
	parts := make([]string, 0, utf8.RuneCountInString(text))
	for len(text) > 0 {
		_, size := utf8.DecodeRuneInString(text)
		parts = append(parts, text[:size])
		text = text[size:]
	}
	return parts
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func chunkID(source string, position int, text string) string {
	name := source + "#" + strconv.Itoa(position) + "\x00" + text
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
