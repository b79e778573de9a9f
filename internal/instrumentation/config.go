package instrumentation

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: focusbot)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// ServiceInstanceID identifies this process. Empty means the hostname.
	ServiceInstanceID string

	// Enabled determines if instrumentation is active (default: true)
	Enabled bool

	// MetricsExporter is "prometheus", "otlp" or "stdout" (default: "prometheus").
	MetricsExporter string

	// TracingExporter is "otlp", "stdout" or "none" (default: "none").
	TracingExporter string

	// OTLPEndpoint is the OTLP collector endpoint without scheme, e.g. "localhost:4318".
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP. Local development only.
	OTLPInsecure bool

	// TraceSamplingRate is the sampling rate for traces (0.0 to 1.0, default: 0.1)
	TraceSamplingRate float64

	// MetricInterval is the push period of the otlp and stdout metric readers.
	MetricInterval time.Duration

	// DetailedLabels adds task and event ids to span attributes.
	DetailedLabels bool
}

// Environment variables read by ApplyEnv. The OTEL_* names follow the
// OpenTelemetry conventions; the rest share the FOCUSBOT_ prefix of the
// application config.
const (
	EnvServiceName       = "OTEL_SERVICE_NAME"
	EnvServiceInstanceID = "OTEL_SERVICE_INSTANCE_ID"
	EnvOTLPEndpoint      = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure      = "OTEL_EXPORTER_OTLP_INSECURE"
	EnvSamplingRate      = "OTEL_TRACES_SAMPLER_ARG"
	EnvEnabled           = "FOCUSBOT_INSTRUMENTATION_ENABLED"
	EnvMetricsExporter   = "FOCUSBOT_METRICS_EXPORTER"
	EnvTracingExporter   = "FOCUSBOT_TRACING_EXPORTER"
	EnvMetricInterval    = "FOCUSBOT_METRICS_INTERVAL"
	EnvDetailedLabels    = "FOCUSBOT_METRICS_DETAILED_LABELS"
)

// DefaultConfig returns the built-in instrumentation settings.
func DefaultConfig() Config {
	return Config{
		ServiceName:       "focusbot",
		ServiceVersion:    "unknown",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
		MetricInterval:    DefaultMetricInterval,
	}
}

// ApplyEnv overrides c with the variables that are set. Malformed values
// are reported rather than silently replaced by defaults.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}

	for key, dst := range map[string]*string{
		EnvServiceName:       &c.ServiceName,
		EnvServiceInstanceID: &c.ServiceInstanceID,
		EnvOTLPEndpoint:      &c.OTLPEndpoint,
		EnvMetricsExporter:   &c.MetricsExporter,
		EnvTracingExporter:   &c.TracingExporter,
	} {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	var errs []error
	for key, dst := range map[string]*bool{
		EnvEnabled:        &c.Enabled,
		EnvOTLPInsecure:   &c.OTLPInsecure,
		EnvDetailedLabels: &c.DetailedLabels,
	} {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			*dst = b
		}
	}
	if v, ok := get(EnvSamplingRate); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvSamplingRate, err))
		} else {
			c.TraceSamplingRate = f
		}
	}
	if v, ok := get(EnvMetricInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvMetricInterval, err))
		} else {
			c.MetricInterval = d
		}
	}
	return errors.Join(errs...)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.TracingExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
	}
	if c.MetricsExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
	}
	if c.MetricInterval < 0 {
		return fmt.Errorf("metric interval must not be negative, got %s", c.MetricInterval)
	}
	return nil
}

// ServesPrometheus reports whether metrics are pulled from the default
// prometheus registry and need the metrics server.
func (c *Config) ServesPrometheus() bool {
	return c.Enabled && (c.MetricsExporter == "" || c.MetricsExporter == ExporterPrometheus)
}

// Constants for metric label values.
const (
	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	// Recurring task run results
	RunSkipped = "skipped"
	RunPanic   = "panic"

	// Calendar backends
	BackendGoogle = "google"
	BackendICS    = "ics"
	BackendMemory = "memory"

	// Calendar operations
	OpListBusy   = "list_busy"
	OpListEvents = "list_events"
	OpCreate     = "create"
	OpDelete     = "delete"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// DefaultMetricInterval is the push period of periodic metric readers.
	DefaultMetricInterval = 10 * time.Second
)
