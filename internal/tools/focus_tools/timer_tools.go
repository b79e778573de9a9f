package focus_tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/focusbot/internal/server"
	"github.com/teemow/focusbot/internal/timerstate"
	"github.com/teemow/focusbot/internal/timeutil"
	"github.com/teemow/focusbot/internal/tools/common"
)

// RegisterTimerTools registers the timer state tool.
func RegisterTimerTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	stateTool := mcp.NewTool("focus_timer_state",
		mcp.WithDescription("Show the shared focus timer state: the active task and the time counted per task"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(stateTool, common.InstrumentedToolHandler("focus_timer_state", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTimerState(ctx, request, sc)
		}))
	return nil
}

func handleTimerState(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatTimerState(sc.Store().Read(ctx))), nil
}

func formatTimerState(st timerstate.TimerState) string {
	if len(st.Timers) == 0 {
		return "No timers yet."
	}

	ids := make([]string, 0, len(st.Timers))
	for id := range st.Timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	if st.ActiveTaskID != "" {
		fmt.Fprintf(&b, "Active task: %s\n", st.ActiveTaskID)
	} else {
		b.WriteString("No active task\n")
	}
	for _, id := range ids {
		timer := st.Timers[id]
		state := "paused"
		switch {
		case timer.Finalized:
			state = "completed"
		case timer.IsRunning:
			state = "running"
		}
		fmt.Fprintf(&b, "- %s: %s (%s)\n", id, timeutil.FormatCountup(timer.Seconds), state)
	}
	return b.String()
}
