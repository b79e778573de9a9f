package focus_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/focusbot/internal/booking"
	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/server"
	"github.com/teemow/focusbot/internal/timeutil"
	"github.com/teemow/focusbot/internal/tools/batch"
	"github.com/teemow/focusbot/internal/tools/common"
)

// RegisterSessionTools registers the tools that change the calendar or
// finalize timers.
func RegisterSessionTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	bookTool := mcp.NewTool("focus_book_session",
		mcp.WithDescription("Book a focus session in a free slot. Use focus_find_free_slots first to get a start time."),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Slot start time (RFC3339, e.g. 2024-03-15T10:00:00+08:00)"),
		),
		mcp.WithString("who",
			mcp.Description("Name shown in the session title, e.g. 'Ada' gives 'Focus Session (Ada)'"),
		),
	)
	s.AddTool(bookTool, common.InstrumentedToolHandler("focus_book_session", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBookSession(ctx, request, sc)
		}))

	renewTool := mcp.NewTool("focus_renew_session",
		mcp.WithDescription("Book a follow-up session starting now"),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Title of the new session"),
		),
		mcp.WithNumber("minutes",
			mcp.Description("Session length in minutes (default: 30)"),
			mcp.Min(1),
		),
	)
	s.AddTool(renewTool, common.InstrumentedToolHandler("focus_renew_session", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRenewSession(ctx, request, sc)
		}))

	cancelTool := mcp.NewTool("focus_cancel_session",
		mcp.WithDescription("Delete one or more booked sessions from the calendar"),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithArray("eventIds",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Event id or list of event ids to delete"),
		),
	)
	s.AddTool(cancelTool, common.InstrumentedToolHandler("focus_cancel_session", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCancelSession(ctx, request, sc)
		}))

	completeTool := mcp.NewTool("focus_complete_task",
		mcp.WithDescription("Mark a task completed: stop and finalize its timer and report the focused time to the saved chat"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("Event id of the task"),
		),
		mcp.WithString("title",
			mcp.Description("Task title used in the report (defaults to the id)"),
		),
	)
	s.AddTool(completeTool, common.InstrumentedToolHandler("focus_complete_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCompleteTask(ctx, request, sc)
		}))

	return nil
}

func handleBookSession(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	start, err := common.RequireTime(request, "start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ev, err := sc.Booking().BookSlot(ctx, start, request.GetString("who", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to book session: %v", err)), nil
	}
	return mcp.NewToolResultText(formatBooked("Booked", ev, sc)), nil
}

func handleRenewSession(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d := booking.DefaultRenewDuration
	if minutes := request.GetInt("minutes", 0); minutes > 0 {
		d = time.Duration(minutes) * time.Minute
	}

	ev, err := sc.Booking().Renew(ctx, title, d)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to renew session: %v", err)), nil
	}
	return mcp.NewToolResultText(formatBooked("Renewed", ev, sc)), nil
}

func handleCancelSession(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseStringOrArray(request.GetArguments()["eventIds"], "eventIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results := batch.ProcessBatch(ctx, ids, batch.DefaultConcurrency, func(ctx context.Context, id string) (string, error) {
		if err := sc.Booking().Delete(ctx, id); err != nil {
			return "", err
		}
		return "deleted", nil
	})
	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

func handleCompleteTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	taskID, err := request.RequireString("taskId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := sc.Booking().Complete(ctx, taskID, request.GetString("title", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to complete task: %v", err)), nil
	}

	text := res.Message
	if !res.Reported {
		text += " (not reported to chat)"
	}
	return mcp.NewToolResultText(text), nil
}

func formatBooked(verb string, ev *calendar.Event, sc *server.ServerContext) string {
	return fmt.Sprintf("%s %q on %s, %s - %s (id: %s)",
		verb, ev.Title,
		timeutil.FormatDate(ev.Start, sc.Location()),
		timeutil.FormatTime(ev.Start, sc.Location()),
		timeutil.FormatTime(ev.End, sc.Location()),
		ev.ID)
}
