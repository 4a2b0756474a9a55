// Package mcpserver exposes treegrep's search pipeline as MCP tools over
// stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and registers the treegrep tools.
type Server struct {
	server *mcp.Server
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(version string) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "treegrep",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	s.registerTools()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "search",
		Description: "Search source files for syntactic patterns using a " +
			"tree-sitter query. Matches are located in the syntax tree, not " +
			"the text, so results are immune to formatting differences.",
	}, handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_languages",
		Description: "List the languages treegrep can search and the file extensions mapped to each.",
	}, handleListLanguages)
}
