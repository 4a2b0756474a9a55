package main

import (
	"github.com/urfave/cli/v2"

	"github.com/treegrep/treegrep/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run an MCP server over stdio exposing the search pipeline",
		Action: func(c *cli.Context) error {
			srv := mcpserver.NewServer(version)
			return srv.Run(c.Context)
		},
	}
}
