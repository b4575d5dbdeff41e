package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casemap/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can browse
cluster results.

The server exposes the result as resources and offers tools to list clusters,
read one cluster with its documents and look up a document.

By default it communicates over stdio using JSON-RPC. Use --port to start an
HTTP server instead.

Examples:
  # Serve the latest completed run over stdio
  casemap mcp serve

  # Serve a fixed result over HTTP
  casemap mcp serve --result clusters.json --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().StringP("result", "r", "", "result file to serve (default: latest run)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	path, err := cmd.Flags().GetString("result")
	if err != nil {
		return fmt.Errorf("getting result flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Results:    resultService,
		ResultPath: path,
	})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
