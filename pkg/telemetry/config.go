package telemetry

import "time"

// Config carries the observability configuration for one cqctl invocation.
type Config struct {
	// ServiceName identifies the tool in traces and metrics.
	ServiceName string

	// ServiceVersion is the build version.
	ServiceVersion string

	// Environment names the deployment environment (dev, staging, prod).
	Environment string

	// Logging configures structured logging.
	Logging LoggingConfig

	// Tracing configures span export.
	Tracing TracingConfig

	// Metrics configures Prometheus collection.
	Metrics MetricsConfig
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format selects the log format (console, json).
	Format string

	// Output selects where logs are written (stdout, stderr).
	Output string
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Enabled controls whether spans are recorded at all.
	Enabled bool

	// Exporter selects the span exporter (otlp, stdout, none).
	Exporter string

	// Endpoint is the OTLP gRPC endpoint.
	Endpoint string

	// Insecure disables TLS toward the OTLP endpoint.
	Insecure bool

	// SamplingRate is the trace sampling ratio (0.0 to 1.0).
	SamplingRate float64

	// ExportTimeout bounds each export batch.
	ExportTimeout time.Duration
}

// MetricsConfig configures Prometheus collection.
type MetricsConfig struct {
	// Enabled controls whether counters are registered and served.
	Enabled bool

	// Namespace prefixes every metric name.
	Namespace string

	// ListenAddr is the optional exposition address (e.g. ":9464").
	// Empty disables the exposition endpoint.
	ListenAddr string
}

// DefaultConfig returns the configuration a bare CLI invocation uses:
// console logs on stderr, no tracing, no metrics endpoint.
func DefaultConfig(serviceName, version string) Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    "dev",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Exporter:      "none",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Namespace: "cqctl",
		},
	}
}
