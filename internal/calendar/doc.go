// Package calendar provides the calendar collaborator used by focusbot.
//
// Three implementations of Calendar are available:
//   - GoogleCalendar talks to the Google Calendar API with a service account
//   - ICSCalendar reads a subscribed iCalendar feed (read-only, RRULE aware)
//   - MemoryCalendar keeps events in memory (development and tests)
//
// Instrumented wraps any of them with metrics and tracing.
//
// All instants are absolute; callers pass the fixed deployment zone when a
// calendar day has to be interpreted.
package calendar
