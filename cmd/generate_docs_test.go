package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCategoryFromToolName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "focus_find_free_slots", want: "Focus Tools"},
		{name: "focus", want: "Focus Tools"},
		{name: "calendar_list", want: "Other"},
		{name: "", want: "Other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getCategoryFromToolName(tt.name))
		})
	}
}

func TestGenerateToolsMarkdown(t *testing.T) {
	tools := []mcp.Tool{
		mcp.NewTool("focus_timer_state",
			mcp.WithDescription("Show the timers"),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		mcp.NewTool("focus_book_session",
			mcp.WithDescription("Book a session"),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithString("start", mcp.Required(), mcp.Description("Slot start")),
			mcp.WithString("who", mcp.Description("Attendee")),
		),
	}

	md := generateToolsMarkdown(tools)

	assert.Contains(t, md, "# MCP Tools Reference")
	assert.Contains(t, md, "- [Focus Tools](#focus-tools)")
	assert.Contains(t, md, "### focus_book_session\n\n**write**")
	assert.NotContains(t, md, "### focus_timer_state\n\n**write**")
	assert.Contains(t, md, "### focus_timer_state\n\nread-only")
	assert.Contains(t, md, "| `start` | string | yes | Slot start |\n| `who` | string | no | Attendee |")
	assert.Less(t, strings.Index(md, "### focus_book_session"), strings.Index(md, "### focus_timer_state"), "tools are sorted by name")
}

func TestPropertyType(t *testing.T) {
	assert.Equal(t, "string", propertyType(map[string]any{"type": "string"}))
	assert.Equal(t, "string[]", propertyType(map[string]any{"type": "array", "items": map[string]any{"type": "string"}}))
	assert.Equal(t, "array", propertyType(map[string]any{"type": "array"}))
	assert.Equal(t, "any", propertyType(map[string]any{}))
}

func TestRunGenerateDocs_WritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tools.md")
	require.NoError(t, runGenerateDocs(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	md := string(data)
	for _, name := range []string{
		"focus_find_free_slots",
		"focus_list_today",
		"focus_timer_state",
		"focus_book_session",
		"focus_renew_session",
		"focus_cancel_session",
		"focus_complete_task",
	} {
		assert.Contains(t, md, "### "+name)
	}
}

