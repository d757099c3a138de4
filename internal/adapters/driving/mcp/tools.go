package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ProcessQueryInput is the input schema for the process_query tool.
type ProcessQueryInput struct {
	Query string `json:"query" jsonschema:"the natural-language question to answer"`
}

// ProcessQueryOutput is the output schema for the process_query tool.
type ProcessQueryOutput struct {
	Query          string   `json:"query"`
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	NumSources     int      `json:"num_sources"`
	ProcessingTime float64  `json:"processing_time"`
	WorkflowSteps  []string `json:"workflow_steps"`
	Degraded       bool     `json:"degraded"`
}

// RetrieveContextInput is the input schema for the retrieve_context tool.
type RetrieveContextInput struct {
	Query string `json:"query" jsonschema:"the query to find relevant passages for"`
	K     int    `json:"k,omitempty" jsonschema:"number of passages to return (default 4)"`
}

// RetrieveContextOutput is the output schema for the retrieve_context tool.
type RetrieveContextOutput struct {
	Context string   `json:"context"`
	Sources []string `json:"sources"`
	NumDocs int      `json:"num_docs"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        "process_query",
		Description: "Answer a question from the indexed documents, citing the source files used",
	}, s.handleProcessQuery)

	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        "retrieve_context",
		Description: "Return the passages most relevant to a query, without generating an answer",
	}, s.handleRetrieveContext)
}

// handleProcessQuery handles the process_query tool invocation.
func (s *Server) handleProcessQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProcessQueryInput,
) (*mcp.CallToolResult, ProcessQueryOutput, error) {
	res, err := s.ports.Query.ProcessQuery(ctx, input.Query)
	if err != nil {
		return nil, ProcessQueryOutput{}, err
	}

	return nil, ProcessQueryOutput{
		Query:          res.Query,
		Answer:         res.Answer,
		Sources:        nonNil(res.Sources),
		NumSources:     res.NumSources,
		ProcessingTime: res.ProcessingSeconds(),
		WorkflowSteps:  nonNil(res.WorkflowSteps),
		Degraded:       res.Degraded,
	}, nil
}

// handleRetrieveContext handles the retrieve_context tool invocation.
func (s *Server) handleRetrieveContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveContextInput,
) (*mcp.CallToolResult, RetrieveContextOutput, error) {
	k := input.K
	if k == 0 {
		k = domain.DefaultTopK
	}

	res, err := s.ports.Retrieval.RetrieveContext(ctx, strings.TrimSpace(input.Query), k)
	if err != nil {
		return nil, RetrieveContextOutput{}, err
	}

	return nil, RetrieveContextOutput{
		Context: res.Context,
		Sources: nonNil(res.Sources),
		NumDocs: res.NumDocs,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
