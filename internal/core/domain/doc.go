// Package domain holds the sercha-rag entities: documents and their chunks,
// persisted index entries, the state threaded through a query, and the
// result returned to callers. It also holds the sentinel errors and
// settings.
//
// domain imports only the standard library.
package domain
