package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/recall/internal/adapters/driving/mcp"
	"github.com/custodia-labs/recall/internal/logger"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recall to an MCP client",
	Long: `Serves the ask, retrieve and polls tools, the index tools and the chunk
resources over the Model Context Protocol.

Without --addr the server speaks JSON-RPC on stdin and stdout, which is what
desktop assistants expect:

  {"mcpServers": {"recall": {"command": "recall", "args": ["mcp", "serve"]}}}

With --addr it serves the streamable HTTP transport instead. 'recall serve'
mounts the same server at /mcp next to the HTTP API and also runs the
staging poller.`,
	Example: `  recall mcp serve
  recall mcp serve --addr 127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpAddr, "addr", "", "serve streamable HTTP on this address instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func newMCPServer() (*mcp.Server, error) {
	ports := &mcp.Ports{Answer: answerService, Index: indexService}
	if scheduler != nil {
		ports.Polls = scheduler
	}
	return mcp.NewServer(ports, mcp.WithVersion(version))
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := newMCPServer()
	if err != nil {
		return err
	}

	if mcpAddr == "" {
		return server.Run(cmd.Context())
	}
	logger.Info("MCP server listening on %s", mcpAddr)
	return httpapi.Serve(cmd.Context(), mcpAddr, server.Handler())
}
