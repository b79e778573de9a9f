// Package server exposes the focusbot services over HTTP.
//
// # Key Components
//
// ServerContext bundles the domain services (slot finder, timer state store,
// event cache, booking service and chat registry) for the HTTP API and the MCP
// tools, and tracks shutdown.
//
// API registers the JSON endpoints on a http.ServeMux:
//   - GET/POST /api/timer-state: catch-up read and client push of the timer state
//   - GET/POST /api/slots, POST /api/slots/book: free slots and slot booking
//   - GET /api/tasks, POST /api/tasks/{id}/complete: today's tasks and completion
//   - POST /api/events, POST /api/events/renew, DELETE /api/events/{id}: bookings
//   - PUT /api/chat: the chat that receives reminders
//
// Errors are mapped from their apperrors kind to 400, 404, 409, 502 or 500
// with a {"error", "details"} body.
//
// Every request gets an X-Request-ID, a debug log line, an HTTP metric under
// its route pattern and an OpenTelemetry server span.
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed; readiness
// includes a ping of the state backend when it supports one. MetricsServer
// serves Prometheus metrics on a dedicated port.
package server
