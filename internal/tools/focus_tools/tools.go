package focus_tools

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/focusbot/internal/server"
)

// RegisterFocusTools registers all focus tools with the MCP server.
func RegisterFocusTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := RegisterSlotTools(s, sc); err != nil {
		return fmt.Errorf("failed to register slot tools: %w", err)
	}
	if err := RegisterTimerTools(s, sc); err != nil {
		return fmt.Errorf("failed to register timer tools: %w", err)
	}

	// Session tools mutate the calendar
	if !readOnly {
		if err := RegisterSessionTools(s, sc); err != nil {
			return fmt.Errorf("failed to register session tools: %w", err)
		}
	}
	return nil
}
