package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/focusbot/internal/timeutil"
)

// OptionalDate returns the "date" argument (YYYY-MM-DD) or "" for today.
func OptionalDate(request mcp.CallToolRequest, loc *time.Location) (string, error) {
	date := strings.TrimSpace(request.GetString("date", ""))
	if date == "" {
		return "", nil
	}
	if _, err := timeutil.ParseDate(date, loc); err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return date, nil
}

// RequireTime parses an RFC3339 argument.
func RequireTime(request mcp.CallToolRequest, name string) (time.Time, error) {
	raw, err := request.RequireString(name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be an RFC3339 timestamp: %w", name, err)
	}
	return t, nil
}
