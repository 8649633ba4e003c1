// ABOUTME: MCP command starts the Model Context Protocol server
// ABOUTME: Lets LLM agents run analysis and chat over stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/worldcafe/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs worldcafe as an MCP (Model Context Protocol) server so agents can
ingest transcripts, generate analysis, look up stored findings and chat
about a session over stdio. Logs go to stderr.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically launched by the agent host)
  worldcafe mcp

  # claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "worldcafe": {
  #       "command": "worldcafe",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}

	if capability, err := newCapability(a.cfg); err != nil {
		a.logger.Warn("completion capability unavailable; analysis and chat will degrade", "err", err)
	} else {
		a.useCapability(capability)
	}

	server := mcpserver.NewMCPServer("worldcafe", versionInfo.Version)
	mcp.RegisterTools(server, a.store, a.orchestrator, a.chat, a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("MCP server starting on stdio", "db", a.store.DB().Path(), "model", a.cfg.ChatModel)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
		if err := a.Close(); err != nil {
			a.logger.Warn("error closing storage", "err", err)
		}
	case err := <-serverErr:
		_ = a.Close()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
