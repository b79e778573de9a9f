// Package logging provides structured logging utilities for focusbot.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from CLI flags (level, text or JSON output)
//   - Consistent attribute naming (component, task id, event id, tool)
//   - Chat id anonymization for notification logs
//
// # Usage Patterns
//
// Create a component logger:
//
//	logger := logging.WithComponent(slog.Default(), "notifier")
//	logger.Info("reminder sent",
//	    logging.EventID(ev.ID),
//	    logging.ChatHash(chatID))
//
// Chat ids and phone numbers are never logged in clear text.
package logging
