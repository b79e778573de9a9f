// Package cmd implements the command-line interface for focusbot.
//
// This package provides the following commands:
//   - serve: Run the HTTP API, the reminder scheduler and the metrics server
//   - client: Run the terminal focus timer against a serve instance
//   - slots: Print the free focus-session slots of a day
//   - mcp: Serve the focus tools over MCP stdio
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
package cmd
