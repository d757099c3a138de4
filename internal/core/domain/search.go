package domain

import "time"

// SearchHit is a single nearest-neighbour match from the vector index.
type SearchHit struct {
	// Content is the matched chunk text.
	Content string

	// Source is the provenance of the matched chunk.
	Source string

	// Score is the similarity to the query vector (higher is closer).
	Score float64
}

// RetrievalResult is the context assembled for one query.
type RetrievalResult struct {
	// Context is the matched texts joined in rank order.
	Context string `json:"context"`

	// Sources holds the provenance of each match in rank order.
	// Duplicates are preserved.
	Sources []string `json:"sources"`

	// NumDocs is the number of matches.
	NumDocs int `json:"num_docs"`
}

// IndexInfo describes a built or loaded vector index.
type IndexInfo struct {
	// Location is the storage location of the index.
	Location string

	// EmbeddingModel is the model the index vectors were produced with.
	EmbeddingModel string

	// Dimensions is the vector size.
	Dimensions int

	// Entries is the number of persisted chunks.
	Entries int

	// Documents is the number of documents the index was built from.
	Documents int

	// CreatedAt is when the index was built.
	CreatedAt time.Time

	// Built is true when this process built the index rather than loading it.
	Built bool
}
