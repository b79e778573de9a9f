// Package instrumentation provides OpenTelemetry instrumentation for focusbot.
//
// This package enables observability through:
//   - OpenTelemetry metrics for HTTP requests, calendar calls, reminders and timer writes
//   - Distributed tracing for calendar calls and MCP tool invocations
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, route, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Calendar Metrics:
//   - calendar_operations_total: Counter of calendar calls by backend, operation, status
//   - calendar_operation_duration_seconds: Histogram of calendar call durations
//
// Scheduler Metrics:
//   - notifications_sent_total: Counter of reminder sends by status
//   - timer_state_writes_total: Counter of timer state persists by source and status
//   - event_cache_lookups_total: Counter of event cache lookups by result (hit, miss, stale)
//   - recurring_task_runs_total: Counter of recurring task runs by task and result
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Configuration
//
// DefaultConfig holds the built-in settings; Config.ApplyEnv overrides them from:
//   - FOCUSBOT_INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - FOCUSBOT_METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - FOCUSBOT_TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - FOCUSBOT_METRICS_INTERVAL: push period of the otlp and stdout readers (default: 10s)
//   - FOCUSBOT_METRICS_DETAILED_LABELS: add event ids to calendar spans
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME, OTEL_SERVICE_INSTANCE_ID
//
// # Example Usage
//
//	config := instrumentation.DefaultConfig()
//	if err := config.ApplyEnv(os.LookupEnv); err != nil {
//		return err
//	}
//	provider, err := instrumentation.NewProvider(ctx, config)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordCalendarOperation(ctx, instrumentation.BackendGoogle,
//		instrumentation.OpListBusy, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
