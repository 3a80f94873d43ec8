package main

import (
	"github.com/spf13/cobra"

	"github.com/Mohamed711/customer-support-agent/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the gateway tools over MCP on stdin and stdout",
	Long: `Run a Model Context Protocol server named "CultPass Tools" that exposes the
twelve gateway tools to any MCP client. Messages are newline delimited
JSON-RPC on stdin and stdout; logs go to stderr.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sys, err := openSystem(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()

	s, err := mcpserver.New(sys.Gateway.Registry(), func(o *mcpserver.Options) {
		o.Version = version
		o.Logger = sys.Logger
	})
	if err != nil {
		return err
	}
	sys.Logger.Info("mcp.server.start", "name", mcpserver.Name, "tools", len(sys.Gateway.Registry().Names()))
	return mcpserver.ServeStdio(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout())
}
