package mcp

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query runs the full question answering pipeline.
	Query driving.QueryService

	// Retrieval returns ranked context without generation.
	Retrieval driving.RetrievalService

	// Index reports index status. Optional.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
