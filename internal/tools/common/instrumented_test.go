package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/focusbot/internal/booking"
	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/eventcache"
	"github.com/teemow/focusbot/internal/instrumentation"
	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/server"
	"github.com/teemow/focusbot/internal/slots"
	"github.com/teemow/focusbot/internal/timerstate"
	"github.com/teemow/focusbot/internal/timeutil"
)

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	loc := timeutil.FixedZone(timeutil.DefaultOffset)
	clock := timeutil.NewFakeClock(time.Date(2024, 3, 15, 9, 0, 0, 0, loc))
	cal := calendar.NewMemoryCalendar()
	logger := logging.Discard()
	hours := slots.DefaultWorkHours(loc)
	cache := eventcache.New(cal, eventcache.Options{Location: loc, Clock: clock, Logger: logger})

	finder, err := slots.NewFinder(cal, hours, clock)
	require.NoError(t, err)
	sc, err := server.NewServerContext(context.Background(), server.Services{
		Finder:   finder,
		Store:    timerstate.NewStore(timerstate.NewMemoryBackend(), clock, logger, nil),
		Cache:    cache,
		Booking:  booking.NewService(cal, cache, booking.Options{Hours: hours, Clock: clock, Logger: logger}),
		Location: loc,
		Clock:    clock,
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newServerContext(t)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	result, err := InstrumentedToolHandler("test_tool", sc, handler)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, called)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newServerContext(t)

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	_, err := InstrumentedToolHandler("test_tool", sc, handler)(context.Background(), mcp.CallToolRequest{})
	assert.ErrorIs(t, err, expectedErr)
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	sc := newServerContext(t)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("error message"), nil
	}

	result, err := InstrumentedToolHandler("test_tool", sc, handler)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}

func TestInstrumentedToolHandler_WithMetrics(t *testing.T) {
	sc := newServerContext(t)

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	require.NoError(t, err)
	sc.SetMetrics(metrics)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		time.Sleep(time.Millisecond)
		return mcp.NewToolResultText("success"), nil
	}

	// The noop meter cannot be inspected; this covers the recording path.
	result, err := InstrumentedToolHandler("focus_find_free_slots", sc, handler)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func request(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func TestOptionalDate(t *testing.T) {
	loc := timeutil.FixedZone(timeutil.DefaultOffset)

	date, err := OptionalDate(request(nil), loc)
	require.NoError(t, err)
	assert.Empty(t, date)

	date, err = OptionalDate(request(map[string]any{"date": " 2024-03-15 "}), loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", date)

	_, err = OptionalDate(request(map[string]any{"date": "15.03.2024"}), loc)
	assert.Error(t, err)
}

func TestRequireTime(t *testing.T) {
	got, err := RequireTime(request(map[string]any{"start": "2024-03-15T10:00:00+08:00"}), "start")
	require.NoError(t, err)
	assert.Equal(t, int64(1710468000), got.Unix())

	_, err = RequireTime(request(nil), "start")
	assert.Error(t, err)

	_, err = RequireTime(request(map[string]any{"start": "10:00"}), "start")
	assert.ErrorContains(t, err, "RFC3339")
}
