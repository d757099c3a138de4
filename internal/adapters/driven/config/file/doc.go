// Package file provides a TOML-backed configuration store.
//
// Nested tables are read into dot-notation keys such as "embedding.model"
// and written back as nested tables.
package file
