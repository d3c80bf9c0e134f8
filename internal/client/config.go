package client

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultAPIURL  = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second

	EnvAPIURL  = "EXEMPLA_CLIENT_API_URL"
	EnvTimeout = "EXEMPLA_CLIENT_TIMEOUT"
)

// Config holds the API endpoint and HTTP timeout.
type Config struct {
	// APIURL must include the scheme, e.g. http://localhost:8000.
	APIURL  string
	Timeout time.Duration
}

// DefaultConfig returns a Config with the default URL and timeout.
func DefaultConfig() Config {
	return Config{APIURL: DefaultAPIURL, Timeout: DefaultTimeout}
}

// LoadConfig overlays EXEMPLA_CLIENT_API_URL and EXEMPLA_CLIENT_TIMEOUT on the defaults.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if apiURL := os.Getenv(EnvAPIURL); apiURL != "" {
		cfg.APIURL = apiURL
	}

	if timeoutStr, ok := os.LookupEnv(EnvTimeout); ok {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout duration in %s: %w", EnvTimeout, err)
		}
		if timeout <= 0 {
			return nil, fmt.Errorf("invalid timeout value in %s: timeout must be positive, got %v", EnvTimeout, timeout)
		}
		cfg.Timeout = timeout
	}

	return &cfg, nil
}

// Validate checks the URL scheme and that the timeout is positive.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("invalid configuration: API URL cannot be empty")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("invalid configuration: API URL must have http:// or https:// scheme, got %q", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid configuration: timeout must be positive, got %v", c.Timeout)
	}
	return nil
}
