package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters for cqctl reconciliations. A
// disabled instance is a no-op so call sites never need to branch.
type Metrics struct {
	config MetricsConfig

	runsTotal    *prometheus.CounterVec
	actionsTotal *prometheus.CounterVec
	retriesTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "runs_total",
				Help:      "Total reconciliation runs by resource and outcome",
			},
			[]string{"resource", "status"},
		),
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "actions_total",
				Help:      "Total remote actions taken (or reported in check mode)",
			},
			[]string{"resource", "action"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "retries_total",
				Help:      "Total retried attempts of flaky remote operations",
			},
			[]string{"resource", "operation"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "errors_total",
				Help:      "Total terminal errors by kind",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(m.runsTotal, m.actionsTotal, m.retriesTotal, m.errorsTotal)
	return m
}

// RecordRun counts one completed reconciliation run.
func (m *Metrics) RecordRun(resource, status string) {
	if m.runsTotal != nil {
		m.runsTotal.WithLabelValues(resource, status).Inc()
	}
}

// RecordAction counts one remote action.
func (m *Metrics) RecordAction(resource, action string) {
	if m.actionsTotal != nil {
		m.actionsTotal.WithLabelValues(resource, action).Inc()
	}
}

// RecordRetry counts one retried attempt.
func (m *Metrics) RecordRetry(resource, operation string) {
	if m.retriesTotal != nil {
		m.retriesTotal.WithLabelValues(resource, operation).Inc()
	}
}

// RecordErrorKind counts one terminal error.
func (m *Metrics) RecordErrorKind(kind string) {
	if m.errorsTotal != nil {
		m.errorsTotal.WithLabelValues(kind).Inc()
	}
}

// Handler returns the Prometheus exposition handler, or nil when metrics
// are disabled.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts the exposition endpoint when one is configured. It returns
// immediately; the server runs until the process exits.
func (m *Metrics) Serve() {
	handler := m.Handler()
	if handler == nil || m.config.ListenAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	go func() {
		// Exposition is best effort for a short-lived CLI.
		_ = http.ListenAndServe(m.config.ListenAddr, mux)
	}()
}
