// ABOUTME: MCP command starts the Model Context Protocol server
// ABOUTME: Lets LLM agents build indexes, retrieve evidence and generate reports via stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/storybrief/internal/mcp"
)

var (
	mcpDataset string
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs storybrief as an MCP (Model Context Protocol) server on stdio,
giving LLM agents tools to build story indexes, retrieve time-ordered
evidence and generate event reports.

With --dataset, stories can be referenced by id alone.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an agent host)
  storybrief mcp --dataset data/valid.json

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "storybrief": {
  #       "command": "storybrief",
  #       "args": ["mcp", "--dataset", "/path/to/valid.json"]
  #     }
  #   }
  # }`,
	}

	cmd.Flags().StringVar(&mcpDataset, "dataset", "", "Dataset file for id-only tool calls")

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, ctx, err := openRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	server, handlers, err := mcp.NewServer(rt, mcpDataset, versionInfo.Version)
	if err != nil {
		return err
	}

	rt.Logger.Info("storybrief MCP server starting on stdio", "generation", rt.Generator != nil)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		rt.Logger.Info("shutdown signal received, waiting for running tools")
		handlers.Shutdown()
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
