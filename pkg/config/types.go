// Package config loads the optional cqctl instance file. A file supplies
// connection defaults for one instance; command-line flags always win over
// file values. CUE files are validated against a builtin schema, YAML
// files against struct tags only.
package config

import (
	"time"

	"github.com/cqops/cqctl/pkg/transports/crx"
)

// File is the decoded instance file.
type File struct {
	// Instance holds the connection parameters.
	Instance Instance `json:"instance" yaml:"instance" validate:"required"`

	// Telemetry optionally adjusts logging, metrics and tracing.
	Telemetry Telemetry `json:"telemetry,omitempty" yaml:"telemetry"`
}

// Instance is the connection section of an instance file.
type Instance struct {
	// Host is the instance hostname or IP address.
	Host string `json:"host" yaml:"host" validate:"required"`

	// Port is the instance HTTP port.
	Port int `json:"port" yaml:"port" validate:"required,min=1,max=65535"`

	// User is the administrative account.
	User string `json:"user" yaml:"user"`

	// Password is the administrative password.
	Password string `json:"password" yaml:"password"`

	// UseTLS selects https.
	UseTLS bool `json:"use_tls" yaml:"use_tls"`

	// Timeout is the per-operation retry budget in seconds.
	Timeout int `json:"timeout" yaml:"timeout" validate:"omitempty,min=1"`

	// RetryInterval is the fixed retry pause in seconds.
	RetryInterval int `json:"retry_interval" yaml:"retry_interval" validate:"omitempty,min=1"`
}

// Telemetry is the observability section of an instance file.
type Telemetry struct {
	// LogLevel sets the minimum log level.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level"`

	// LogFormat selects console or json output.
	LogFormat string `json:"log_format,omitempty" yaml:"log_format"`

	// MetricsAddr enables the Prometheus exposition endpoint.
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr"`

	// TraceExporter selects the span exporter (otlp, stdout, none).
	TraceExporter string `json:"trace_exporter,omitempty" yaml:"trace_exporter"`

	// TraceEndpoint is the OTLP gRPC endpoint.
	TraceEndpoint string `json:"trace_endpoint,omitempty" yaml:"trace_endpoint"`
}

// ConnectionConfig converts the instance section into a transport config,
// applying the standard defaults for anything unset.
func (f *File) ConnectionConfig() crx.Config {
	cfg := crx.DefaultConfig(f.Instance.Host, f.Instance.Port)
	if f.Instance.User != "" {
		cfg.User = f.Instance.User
	}
	cfg.Password = f.Instance.Password
	cfg.UseTLS = f.Instance.UseTLS
	if f.Instance.Timeout > 0 {
		cfg.Timeout = time.Duration(f.Instance.Timeout) * time.Second
	}
	if f.Instance.RetryInterval > 0 {
		cfg.RetryInterval = time.Duration(f.Instance.RetryInterval) * time.Second
	}
	return cfg
}
