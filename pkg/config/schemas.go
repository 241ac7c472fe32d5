package config

// builtinInstanceSchema constrains CUE instance files. Defaults mirror
// crx.DefaultConfig so a minimal file only needs host, port and password.
const builtinInstanceSchema = `
instance: {
	host:           string & !=""
	port:           int & >0 & <65536
	user:           string | *"admin"
	password:       string
	use_tls:        bool | *false
	timeout:        int & >0 | *600
	retry_interval: int & >0 | *30
}

telemetry?: {
	log_level?:      "trace" | "debug" | "info" | "warn" | "error"
	log_format?:     "console" | "json"
	metrics_addr?:   string
	trace_exporter?: "otlp" | "stdout" | "none"
	trace_endpoint?: string
}
`
