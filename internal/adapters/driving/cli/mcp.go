package cli

import (
	"context"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/mcp"
)

var (
	mcpHost string
	mcpPort int
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index to MCP clients",
	Long: `Serve the indexed documents to MCP clients such as desktop assistants.

Tools: process_query (full three-stage answer) and retrieve_context
(passages only). Resource: index://status.

Without --port the server speaks JSON-RPC over stdio, which is what
clients expect when they launch it themselves:

  {"mcpServers": {"sercha-rag": {"command": "sercha-rag", "args": ["mcp", "serve"]}}}

With --port it serves streamable HTTP instead:

  sercha-rag mcp serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "localhost", "HTTP bind host")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

// newMCPServer builds the MCP server over the loaded services. The index
// is opened first so a server never starts without one.
func newMCPServer(ctx context.Context) (*mcp.Server, error) {
	svc, err := loadServices()
	if err != nil {
		return nil, err
	}
	if err := openIndex(ctx, svc); err != nil {
		return nil, err
	}
	return mcp.NewServer(&mcp.Ports{
		Query:     svc.Query,
		Retrieval: svc.Retrieval,
		Index:     svc.Index,
	})
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := newMCPServer(cmd.Context())
	if err != nil {
		return err
	}
	if mcpPort == 0 {
		return server.Run(cmd.Context())
	}

	// stdout stays clean for clients that capture it.
	addr := net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort))
	cmd.PrintErrf("MCP server listening on http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
