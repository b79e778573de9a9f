// Package batch provides helpers for MCP tools that act on several ids at
// once: parameters that accept a single id or a list, bounded concurrent
// processing with per-item results, and a summary encoding.
package batch
