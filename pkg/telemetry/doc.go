// Package telemetry provides the observability instrumentation for cqctl.
//
// The package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry) and metrics (Prometheus) behind one small
// configuration surface, sized for a short-lived CLI rather than a
// long-running service.
//
// # Logging
//
// NewLogger builds the root zerolog logger: console output for humans,
// JSON for machines, level and destination from configuration. Resource
// modules derive child loggers with their identifying fields; the run ID
// is attached once at the CLI boundary so every line of one invocation
// correlates.
//
// # Tracing
//
// NewTracer wires an OpenTelemetry tracer provider with an OTLP gRPC or
// stdout exporter, or none at all. Disabled tracing costs nothing: call
// sites that hold no tracer fall back to NoopSpan, so the reconcilers
// never branch on whether tracing is on.
//
// # Metrics
//
// NewMetrics registers Prometheus counters for reconciliation runs,
// remote actions, retried attempts and terminal errors on a private
// registry. A disabled Metrics records nothing and serves nothing; the
// optional exposition endpoint is only started when an address is
// configured.
package telemetry
