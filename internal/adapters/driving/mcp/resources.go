package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// statusURI is the index status resource.
const statusURI = "index://status"

// IndexStatus is the JSON body of the index status resource.
type IndexStatus struct {
	Open           bool      `json:"open"`
	Location       string    `json:"location,omitempty"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	Dimensions     int       `json:"dimensions,omitempty"`
	Entries        int       `json:"entries"`
	Documents      int       `json:"documents"`
	CreatedAt      time.Time `json:"created_at,omitzero"`
	Built          bool      `json:"built"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.srv.AddResource(&mcp.Resource{
		URI:         statusURI,
		Name:        "index-status",
		Description: "State of the vector index: location, model, entry and document counts",
		MIMEType:    "application/json",
	}, s.handleStatusResource)
}

// handleStatusResource reports the open index. Open=false is reported when
// no index is open.
func (s *Server) handleStatusResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status := IndexStatus{}
	if s.ports.Index != nil {
		if info, ok := s.ports.Index.Info(); ok {
			status = IndexStatus{
				Open:           true,
				Location:       info.Location,
				EmbeddingModel: info.EmbeddingModel,
				Dimensions:     info.Dimensions,
				Entries:        info.Entries,
				Documents:      info.Documents,
				CreatedAt:      info.CreatedAt,
				Built:          info.Built,
			}
		}
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
