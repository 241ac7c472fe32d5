package crx

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the connection parameters for one CQ/AEM instance. It is
// built once per invocation and passed by value to every operation; there
// is no process-wide connection state.
type Config struct {
	// Host is the instance hostname or IP address.
	Host string `json:"host" validate:"required"`

	// Port is the instance HTTP port (4502 author, 4503 publish).
	Port int `json:"port" validate:"required,min=1,max=65535"`

	// User is the administrative account used for Basic auth.
	User string `json:"user" validate:"required"`

	// Password is the administrative account password.
	Password string `json:"password" validate:"required"`

	// UseTLS selects https for all requests.
	UseTLS bool `json:"use_tls"`

	// Timeout is the wall-clock retry budget each flaky operation tracks
	// from its own start time.
	Timeout time.Duration `json:"timeout"`

	// RetryInterval is the fixed pause between retry attempts.
	RetryInterval time.Duration `json:"retry_interval"`
}

// DefaultConfig returns a Config with the standard author-instance
// defaults applied.
func DefaultConfig(host string, port int) Config {
	return Config{
		Host:          host,
		Port:          port,
		User:          "admin",
		Timeout:       600 * time.Second,
		RetryInterval: 30 * time.Second,
	}
}

// Validate checks the configuration for completeness.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid connection config: %w", err)
	}
	return nil
}

// BaseURL returns the scheme://host:port prefix for all requests.
func (c Config) BaseURL() string {
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}
