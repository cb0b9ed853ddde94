package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadExampleConfig(t *testing.T) {
	configPath := filepath.Join("..", "..", "config.yaml.example")
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Expected example config to load, got error: %v", err)
	}
	if cfg.RateLimit.MaxRequests != 5 {
		t.Errorf("max_requests = %d, want 5", cfg.RateLimit.MaxRequests)
	}
	if cfg.Cache.Backend != "json" {
		t.Errorf("backend = %q, want json", cfg.Cache.Backend)
	}
}

func TestLoadInvalidPath(t *testing.T) {
	if _, err := Load("nonexistent.yaml"); err == nil {
		t.Error("Expected error when loading nonexistent config file, got nil")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
environment:
  log_level: info
rate_limits:
  max_requests: 5
`)
	if _, err := Load(path); err == nil {
		t.Error("Expected error for unknown top-level field, got nil")
	}
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("WHEELHOUSE_TEST_KEY", "secret-token")
	path := writeConfig(t, `
provider:
  api_key: ${WHEELHOUSE_TEST_KEY}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.APIKey != "secret-token" {
		t.Errorf("api_key = %q, want secret-token", cfg.Provider.APIKey)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.RateLimit.MaxRequests != 5 {
		t.Errorf("max_requests = %d, want 5", cfg.RateLimit.MaxRequests)
	}
	if cfg.Window() != time.Minute {
		t.Errorf("Window() = %v, want 1m", cfg.Window())
	}
	if cfg.StaleAfter() != 30*time.Minute {
		t.Errorf("StaleAfter() = %v, want 30m", cfg.StaleAfter())
	}
	if cfg.ExpireAfter() != 60*time.Minute {
		t.Errorf("ExpireAfter() = %v, want 60m", cfg.ExpireAfter())
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Errorf("RequestTimeout() = %v, want 10s", cfg.RequestTimeout())
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("backend = %q, want memory", cfg.Cache.Backend)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"bad log level", func(c *Config) { c.Environment.LogLevel = "trace" }, true},
		{"zero max requests", func(c *Config) { c.RateLimit.MaxRequests = -1 }, true},
		{"bad window", func(c *Config) { c.RateLimit.Window = "sixty" }, true},
		{"bad stale duration", func(c *Config) { c.Cache.StaleAfter = "soon" }, true},
		{"stale not below expire", func(c *Config) { c.Cache.StaleAfter = "60m" }, true},
		{"stale above expire", func(c *Config) { c.Cache.StaleAfter = "90m" }, true},
		{"json backend without path", func(c *Config) { c.Cache.Backend = "json" }, true},
		{"sqlite backend with path", func(c *Config) {
			c.Cache.Backend = "sqlite"
			c.Cache.Path = "data/cache.db"
		}, false},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }, true},
		{"bad request timeout", func(c *Config) { c.Provider.RequestTimeout = "fast" }, true},
		{"dashboard port out of range", func(c *Config) {
			c.Dashboard.Enabled = true
			c.Dashboard.Port = 70000
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}
