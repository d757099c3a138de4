package domain

import "time"

// ChangeType represents the type of corpus change.
type ChangeType int

const (
	// ChangeCreated indicates a new document.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified document.
	ChangeUpdated

	// ChangeDeleted indicates a removed or renamed document.
	ChangeDeleted
)

// String returns the change type name.
func (t ChangeType) String() string {
	switch t {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// CorpusChange reports a document that changed after the index was built.
// A change marks the index stale; rebuilding is left to the caller.
type CorpusChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Path is the affected file.
	Path string

	// At is when the change was observed.
	At time.Time
}
