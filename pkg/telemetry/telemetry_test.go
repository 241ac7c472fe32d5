package telemetry

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for input, want := range cases {
		if got := parseLogLevel(input); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewLoggerLevels(t *testing.T) {
	log, err := NewLogger(LoggingConfig{Level: "warn", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	if log.GetLevel() != zerolog.WarnLevel {
		t.Errorf("logger level = %v, want warn", log.GetLevel())
	}
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := t.TempDir() + "/cqctl.log"
	log, err := NewLogger(LoggingConfig{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	log.Info().Msg("hello")
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, Namespace: "cqctl"})

	m.RecordRun("package", "success")
	m.RecordRun("package", "success")
	m.RecordAction("package", "install")
	m.RecordRetry("package", "observe")
	m.RecordErrorKind("timeout")

	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("package", "success")); got != 2 {
		t.Errorf("runs_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.actionsTotal.WithLabelValues("package", "install")); got != 1 {
		t.Errorf("actions_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.retriesTotal.WithLabelValues("package", "observe")); got != 1 {
		t.Errorf("retries_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal.WithLabelValues("timeout")); got != 1 {
		t.Errorf("errors_total = %v, want 1", got)
	}
	if m.Handler() == nil {
		t.Error("Handler() = nil for enabled metrics")
	}
}

func TestMetricsDisabledIsNoop(t *testing.T) {
	m := NewMetrics(MetricsConfig{})

	// Must not panic without a registry.
	m.RecordRun("package", "success")
	m.RecordAction("package", "install")
	m.RecordRetry("package", "observe")
	m.RecordErrorKind("timeout")

	if m.Handler() != nil {
		t.Error("Handler() != nil for disabled metrics")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("cqctl", "1.2.3")
	if cfg.ServiceName != "cqctl" || cfg.ServiceVersion != "1.2.3" {
		t.Errorf("service identity = %s/%s, want cqctl/1.2.3", cfg.ServiceName, cfg.ServiceVersion)
	}
	if cfg.Tracing.Exporter != "none" {
		t.Errorf("default trace exporter = %q, want none", cfg.Tracing.Exporter)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics enabled by default, want disabled")
	}
	if !strings.EqualFold(cfg.Logging.Output, "stderr") {
		t.Errorf("default log output = %q, want stderr", cfg.Logging.Output)
	}
}
