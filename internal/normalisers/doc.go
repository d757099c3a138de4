// Package normalisers provides Normaliser implementations that turn corpus
// files into plain text, and a Registry that selects one by file extension.
//
// Text files pass through unchanged, so a plain text corpus is indexed
// exactly as written.
package normalisers
