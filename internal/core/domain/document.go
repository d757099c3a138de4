package domain

import "time"

// Document represents a loaded corpus file.
// Documents are immutable once loaded.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Source is the provenance of the document (its file path).
	Source string

	// Title is the human-readable title, usually the file name.
	Title string

	// Content is the full text content.
	Content string

	// LoadedAt is when the document was read from the corpus.
	LoadedAt time.Time
}

// Chunk represents an overlapping segment of a document.
// Chunks are produced once at index-build time and are otherwise immutable.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Source is the provenance inherited from the parent Document.
	Source string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation, set once embedded.
	Embedding []float32
}

// IndexEntry is a persisted chunk: its text, vector and provenance.
// Entries are only ever added at build time and read at search time.
type IndexEntry struct {
	// ChunkID identifies the chunk this entry was built from.
	ChunkID string

	// Source is the provenance of the originating document.
	Source string

	// Content is the chunk text.
	Content string

	// Position is the chunk's ordinal position within its document.
	Position int

	// Embedding is the chunk vector.
	Embedding []float32
}

// EntryFromChunk converts an embedded chunk into an index entry.
func EntryFromChunk(c Chunk) IndexEntry {
	return IndexEntry{
		ChunkID:   c.ID,
		Source:    c.Source,
		Content:   c.Content,
		Position:  c.Position,
		Embedding: c.Embedding,
	}
}
