package focus_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/server"
	"github.com/teemow/focusbot/internal/slots"
	"github.com/teemow/focusbot/internal/timeutil"
	"github.com/teemow/focusbot/internal/tools/common"
)

// RegisterSlotTools registers the read-only schedule tools.
func RegisterSlotTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	findTool := mcp.NewTool("focus_find_free_slots",
		mcp.WithDescription("List the free focus-session slots of a day within work hours"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("date",
			mcp.Description("Day to search (YYYY-MM-DD). Defaults to today."),
		),
	)
	s.AddTool(findTool, common.InstrumentedToolHandler("focus_find_free_slots", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFindFreeSlots(ctx, request, sc)
		}))

	todayTool := mcp.NewTool("focus_list_today",
		mcp.WithDescription("List today's timed calendar events, which are the tasks the focus timer tracks"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(todayTool, common.InstrumentedToolHandler("focus_list_today", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListToday(ctx, request, sc)
		}))

	return nil
}

func handleFindFreeSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	date, err := common.OptionalDate(request, sc.Location())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := sc.Finder().Find(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to find free slots: %v", err)), nil
	}
	return mcp.NewToolResultText(formatSlots(res, sc)), nil
}

func formatSlots(res slots.Result, sc *server.ServerContext) string {
	if res.Count == 0 {
		return fmt.Sprintf("No free slots on %s.", res.Date)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d free slot(s) on %s:\n", res.Count, res.Date)
	for _, slot := range res.Slots {
		fmt.Fprintf(&b, "- %s - %s (start: %s)\n",
			timeutil.FormatTime(slot.Start, sc.Location()),
			timeutil.FormatTime(slot.End, sc.Location()),
			slot.Start.In(sc.Location()).Format(time.RFC3339))
	}
	return b.String()
}

func handleListToday(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	events, err := sc.Cache().Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list today's events: %v", err)), nil
	}
	return mcp.NewToolResultText(formatEvents(events, sc)), nil
}

func formatEvents(events []calendar.Event, sc *server.ServerContext) string {
	var timed []calendar.Event
	for _, ev := range events {
		if !ev.AllDay {
			timed = append(timed, ev)
		}
	}
	if len(timed) == 0 {
		return "No events today."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d event(s) today:\n", len(timed))
	for _, ev := range timed {
		fmt.Fprintf(&b, "- %s - %s %s (id: %s)\n",
			timeutil.FormatTime(ev.Start, sc.Location()),
			timeutil.FormatTime(ev.End, sc.Location()),
			ev.Title, ev.ID)
	}
	return b.String()
}
