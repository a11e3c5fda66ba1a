package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	wmcp "github.com/workdoc/workdoc/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that gives AI agents read-only
access to submissions and accounts. Supports stdio (default) and HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for MCP clients that launch it as a subprocess.

In HTTP mode, the server listens on the specified port using Streamable HTTP.`,
		Example: `  workdoc mcp                             # stdio mode
  workdoc mcp --transport http --port 3001  # HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(contextOf(cmd), transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(ctx context.Context, transport string, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the protocol in stdio mode, so logs go to stderr.
	logger, err := newLogger(os.Stderr, cfg.Logging)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	mcpSrv := wmcp.NewMCPServer(st, versionString(), logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		return mcpSrv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
