// Package sqlite provides the durable vector store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. An index lives in a directory; the
// directory holds a single index.db file with two tables:
//
//   - metadata: embedding model, dimensions, build time and document count
//   - entries: chunk text, provenance and vector, one row per chunk
//
// # Build or load
//
// The existence of the directory alone decides whether an index is built or
// loaded. Content is never compared against the corpus, so a changed corpus
// is only picked up after the directory is removed.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Thread Safety
//
// Loading reads every entry into an immutable in-memory index, so searches
// never touch the database. Concurrent builds from several processes against
// one directory are not supported.
package sqlite
