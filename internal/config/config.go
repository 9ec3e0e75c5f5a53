// Package config loads PagerDuty connection settings from an optional YAML
// file and the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIHost is the PagerDuty REST API v2 endpoint
	DefaultAPIHost = "https://api.pagerduty.com"

	// DefaultTimeout for API requests
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit in requests per second. PagerDuty allows 960 requests
	// per minute per API key; stay well below that.
	DefaultRateLimit = 10.0

	// DefaultUserAgent identifies the server to PagerDuty
	DefaultUserAgent = "pagerduty-mcp-server/1.0"
)

// Config holds PagerDuty connection settings
type Config struct {
	// APIKey is a PagerDuty REST API key (required)
	APIKey string `yaml:"api_key"`

	// APIHost is the API base URL, e.g. https://api.eu.pagerduty.com
	APIHost string `yaml:"api_host"`

	// FromEmail is sent as the From header, required by account-level keys
	// for some endpoints
	FromEmail string `yaml:"from_email"`

	// Timeout for API requests
	Timeout time.Duration `yaml:"timeout"`

	// RateLimit caps outbound requests per second
	RateLimit float64 `yaml:"rate_limit"`

	// UserAgent identifies the client to PagerDuty
	UserAgent string `yaml:"user_agent"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with every optional field set.
func Default() *Config {
	return &Config{
		APIHost:   DefaultAPIHost,
		Timeout:   DefaultTimeout,
		RateLimit: DefaultRateLimit,
		UserAgent: DefaultUserAgent,
		LogLevel:  "info",
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PAGERDUTY_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := getenv("PAGERDUTY_API_HOST"); v != "" {
		c.APIHost = v
	}
	if v := getenv("PAGERDUTY_FROM_EMAIL"); v != "" {
		c.FromEmail = v
	}
	if v := getenv("PAGERDUTY_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := getenv("PAGERDUTY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("PAGERDUTY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PAGERDUTY_TIMEOUT %q: %w", v, err)
		}
		c.Timeout = d
	}
	if v := getenv("PAGERDUTY_RATE_LIMIT"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid PAGERDUTY_RATE_LIMIT %q: %w", v, err)
		}
		c.RateLimit = r
	}
	return nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("PAGERDUTY_API_KEY environment variable is required")
	}
	u, err := url.Parse(c.APIHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid PagerDuty API host %q", c.APIHost)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %g", c.RateLimit)
	}
	return nil
}
