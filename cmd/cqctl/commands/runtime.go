package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cqops/cqctl/pkg/config"
	"github.com/cqops/cqctl/pkg/engine"
	"github.com/cqops/cqctl/pkg/telemetry"
	"github.com/cqops/cqctl/pkg/transports/crx"
)

// runtime bundles everything a resource command needs for one
// reconciliation pass.
type runtime struct {
	client  *crx.Client
	log     zerolog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	runID   string
	check   bool
}

// newRuntime assembles connection config (flags over instance file over
// defaults), logging, metrics and tracing for one invocation.
func newRuntime() (*runtime, func(), error) {
	tcfg := telemetry.DefaultConfig("cqctl", buildVersion)

	var file *config.File
	if configPath != "" {
		parser, err := config.NewParser()
		if err != nil {
			return nil, nil, err
		}
		file, err = parser.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		applyFileTelemetry(&tcfg, file.Telemetry)
	}
	if verbose {
		tcfg.Logging.Level = "debug"
	}
	if jsonOutput {
		tcfg.Logging.Format = "json"
	}
	if metricsAddr != "" {
		tcfg.Metrics.Enabled = true
		tcfg.Metrics.ListenAddr = metricsAddr
	}

	log, err := telemetry.NewLogger(tcfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	cfg := buildConnectionConfig(file)
	client, err := crx.NewClient(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	tracer, err := telemetry.NewTracer(tcfg.Tracing, tcfg.ServiceName, tcfg.ServiceVersion, tcfg.Environment)
	if err != nil {
		return nil, nil, err
	}
	metrics := telemetry.NewMetrics(tcfg.Metrics)
	metrics.Serve()

	runID := uuid.NewString()
	rt := &runtime{
		client:  client,
		log:     log.With().Str("run_id", runID).Logger(),
		metrics: metrics,
		tracer:  tracer,
		runID:   runID,
		check:   checkMode,
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}
	return rt, cleanup, nil
}

// buildConnectionConfig merges flag values over instance file values.
func buildConnectionConfig(file *config.File) crx.Config {
	var cfg crx.Config
	if file != nil {
		cfg = file.ConnectionConfig()
	} else {
		cfg = crx.DefaultConfig(host, port)
	}
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if adminUser != "" {
		cfg.User = adminUser
	}
	if adminPassword != "" {
		cfg.Password = adminPassword
	}
	if useTLS {
		cfg.UseTLS = true
	}
	if timeoutSecs > 0 {
		cfg.Timeout = time.Duration(timeoutSecs) * time.Second
	}
	if retrySecs > 0 {
		cfg.RetryInterval = time.Duration(retrySecs) * time.Second
	}
	return cfg
}

func applyFileTelemetry(tcfg *telemetry.Config, t config.Telemetry) {
	if t.LogLevel != "" {
		tcfg.Logging.Level = t.LogLevel
	}
	if t.LogFormat != "" {
		tcfg.Logging.Format = t.LogFormat
	}
	if t.MetricsAddr != "" {
		tcfg.Metrics.Enabled = true
		tcfg.Metrics.ListenAddr = t.MetricsAddr
	}
	if t.TraceExporter != "" && t.TraceExporter != "none" {
		tcfg.Tracing.Enabled = true
		tcfg.Tracing.Exporter = t.TraceExporter
		tcfg.Tracing.Endpoint = t.TraceEndpoint
	}
}

// finish reports the outcome of one reconciliation pass following the
// process exit contract: on success print the changed flag and the
// comma-joined action messages, on failure surface the single diagnostic
// and a non-zero exit through the returned error.
func (rt *runtime) finish(resource string, result *engine.Result, err error) error {
	if err != nil {
		rt.metrics.RecordRun(resource, "failed")
		rt.metrics.RecordErrorKind(string(engine.KindOf(err)))
		return err
	}
	rt.metrics.RecordRun(resource, "ok")
	result.RunID = rt.runID

	if jsonOutput {
		out, merr := json.Marshal(struct {
			Changed bool   `json:"changed"`
			Msg     string `json:"msg,omitempty"`
			RunID   string `json:"run_id"`
		}{result.Changed, result.Message(), rt.runID})
		if merr != nil {
			return merr
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	}

	fmt.Fprintf(os.Stdout, "changed: %t\n", result.Changed)
	if msg := result.Message(); msg != "" {
		fmt.Fprintf(os.Stdout, "msg: %s\n", msg)
	}
	return nil
}
