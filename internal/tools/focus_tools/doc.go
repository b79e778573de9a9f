// Package focus_tools exposes focus-session scheduling over MCP.
//
// Read tools list free slots, today's tasks and the timer state. Write
// tools book, renew and cancel sessions and complete tasks; they are only
// registered when the server is not read-only.
package focus_tools
