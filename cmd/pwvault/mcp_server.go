package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forest6511/pwvault/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpServerCmd)
}

// mcpServerCmd starts the MCP server for AI coding assistant integration
var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start a read-only MCP server over the vault",
	Long: `Start an MCP (Model Context Protocol) server over stdio. Agents can
search entries and see masked passwords; plaintext passwords are never
returned.

Available tools:
  - entry_search:     Search entries by text and/or category (no passwords)
  - entry_categories: List categories
  - entry_get_masked: Get a masked password (e.g., "****WXYZ")

Authentication:
  Set PWVAULT_PASSWORD before starting the server. The variable is read
  once and immediately cleared from the environment.

Example MCP client configuration:
  {
    "mcpServers": {
      "pwvault": {
        "type": "stdio",
        "command": "/path/to/pwvault",
        "args": ["mcp-server"],
        "env": {
          "PWVAULT_PASSWORD": "your-master-password"
        }
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer()
	},
}

func runMCPServer() error {
	server, err := mcp.NewServer(&mcp.ServerOptions{
		VaultPath: store.Path(),
		Logger:    logger,
		Audit:     auditLog,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}
