package cmd

import (
	"fmt"
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/teemow/focusbot/internal/server"
	"github.com/teemow/focusbot/internal/tools/focus_tools"
)

func newMCPCmd() *cobra.Command {
	var yolo bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the focus tools over MCP stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Safety Mode:
  By default only read tools are registered (free slots, today's events,
  timer state). Use --yolo to also register the tools that book, renew and
  cancel sessions and complete tasks.

Logs are written to stderr so stdout stays reserved for the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys := afero.NewOsFs()
			cfg, err := loadConfig(cmd, fsys, osLookup)
			if err != nil {
				return err
			}

			logger := slog.Default()
			a, err := newApp(cmd.Context(), cfg, fsys, logger, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			readOnly := !yolo
			if readOnly {
				logger.Info("starting MCP server in read-only mode (use --yolo to enable write tools)")
			} else {
				logger.Info("starting MCP server with write tools enabled")
			}

			mcpSrv := newMCPServer()
			if err := registerAllTools(mcpSrv, a.sc, readOnly); err != nil {
				return err
			}
			if err := mcpserver.ServeStdio(mcpSrv); err != nil {
				return fmt.Errorf("server stopped with error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write tools (booking, cancelling, completing)")
	addCalendarFlags(cmd.Flags())
	addStateFlags(cmd.Flags())

	return cmd
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("focusbot", version,
		mcpserver.WithToolCapabilities(true),
	)
}

// registerAllTools registers every MCP tool group.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := focus_tools.RegisterFocusTools(mcpSrv, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register focus tools: %w", err)
	}
	return nil
}
