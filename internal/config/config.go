// Package config provides configuration management for the analysis engine.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Defaults applied when optional settings are unset.
const (
	// defaultMaxRequests is the provider request budget per window.
	defaultMaxRequests = 5
	// defaultWindow is the rolling rate-limit window.
	defaultWindow = "60s"
	// defaultStaleAfter marks cached Greeks stale.
	defaultStaleAfter = "30m"
	// defaultExpireAfter treats cached Greeks as a miss.
	defaultExpireAfter = "60m"
	// defaultRequestTimeout bounds one provider call.
	defaultRequestTimeout = "10s"
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Provider    ProviderConfig    `yaml:"provider"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Cache       CacheConfig       `yaml:"cache"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// EnvironmentConfig defines runtime environment settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// ProviderConfig defines the external market-data provider settings.
type ProviderConfig struct {
	APIKey      string `yaml:"api_key"`
	APIEndpoint string `yaml:"api_endpoint"`
	// RequestTimeout is the per-request timeout, e.g. "10s".
	RequestTimeout string `yaml:"request_timeout"`
}

// RateLimitConfig defines the external request budget. The provider's rate
// limit is configuration, never a constant baked into the engine.
type RateLimitConfig struct {
	MaxRequests int    `yaml:"max_requests"`
	Window      string `yaml:"window"` // e.g. "60s"
}

// CacheConfig defines Greeks cache policy and persistence.
type CacheConfig struct {
	StaleAfter  string `yaml:"stale_after"`  // e.g. "30m"
	ExpireAfter string `yaml:"expire_after"` // e.g. "60m"
	Backend     string `yaml:"backend"`      // memory | json | sqlite
	Path        string `yaml:"path"`
}

// DashboardConfig defines the optional HTTP API server.
type DashboardConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with all defaults applied, suitable for
// runs without a config file.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = defaultMaxRequests
	}
	if c.RateLimit.Window == "" {
		c.RateLimit.Window = defaultWindow
	}
	if c.Cache.StaleAfter == "" {
		c.Cache.StaleAfter = defaultStaleAfter
	}
	if c.Cache.ExpireAfter == "" {
		c.Cache.ExpireAfter = defaultExpireAfter
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Provider.RequestTimeout == "" {
		c.Provider.RequestTimeout = defaultRequestTimeout
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 9847
	}
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	switch c.Environment.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be debug|info|warn|error, got %q", c.Environment.LogLevel)
	}

	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be > 0")
	}
	if _, err := time.ParseDuration(c.RateLimit.Window); err != nil {
		return fmt.Errorf("rate_limit.window invalid: %w", err)
	}

	stale, err := time.ParseDuration(c.Cache.StaleAfter)
	if err != nil {
		return fmt.Errorf("cache.stale_after invalid: %w", err)
	}
	expire, err := time.ParseDuration(c.Cache.ExpireAfter)
	if err != nil {
		return fmt.Errorf("cache.expire_after invalid: %w", err)
	}
	if stale <= 0 || expire <= 0 {
		return fmt.Errorf("cache.stale_after and cache.expire_after must be > 0")
	}
	if stale >= expire {
		return fmt.Errorf("cache.stale_after (%v) must be < cache.expire_after (%v)", stale, expire)
	}

	switch c.Cache.Backend {
	case "memory":
	case "json", "sqlite":
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for backend %q", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("cache.backend must be memory|json|sqlite, got %q", c.Cache.Backend)
	}

	if _, err := time.ParseDuration(c.Provider.RequestTimeout); err != nil {
		return fmt.Errorf("provider.request_timeout invalid: %w", err)
	}

	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		return fmt.Errorf("dashboard.port must be in (0,65535], got %d", c.Dashboard.Port)
	}

	return nil
}

// Window returns the parsed rate-limit window.
func (c *Config) Window() time.Duration {
	d, err := time.ParseDuration(c.RateLimit.Window)
	if err != nil {
		d, _ = time.ParseDuration(defaultWindow)
	}
	return d
}

// StaleAfter returns the parsed staleness threshold.
func (c *Config) StaleAfter() time.Duration {
	d, err := time.ParseDuration(c.Cache.StaleAfter)
	if err != nil {
		d, _ = time.ParseDuration(defaultStaleAfter)
	}
	return d
}

// ExpireAfter returns the parsed cache TTL.
func (c *Config) ExpireAfter() time.Duration {
	d, err := time.ParseDuration(c.Cache.ExpireAfter)
	if err != nil {
		d, _ = time.ParseDuration(defaultExpireAfter)
	}
	return d
}

// RequestTimeout returns the parsed per-request provider timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Provider.RequestTimeout)
	if err != nil {
		d, _ = time.ParseDuration(defaultRequestTimeout)
	}
	return d
}
