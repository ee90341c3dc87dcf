// Package config provides unit tests for configuration loading.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kimhsiao/fieldsync/internal/staleness"
)

// TestDefaultsValidateWithRemote tests that defaults plus a remote base URL
// form a valid configuration.
func TestDefaultsValidateWithRemote(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.BaseURL = "https://crm.example.com"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Drain.Policy != "fail-fast" {
		t.Errorf("expected fail-fast default policy, got %s", cfg.Drain.Policy)
	}
	if cfg.Staleness.Preset != staleness.PresetPipelineCard {
		t.Errorf("expected pipeline-card default preset, got %s", cfg.Staleness.Preset)
	}
}

// TestLoadFromFile tests TOML parsing, including duration strings.
func TestLoadFromFile(t *testing.T) {
	content := `
[remote]
base_url = "https://crm.example.com"
request_timeout = "10s"

[drain]
policy = "best-effort"
retry_interval = "45s"
handler_timeout = "90s"
eager_drain = false

[connectivity]
probe_interval = "5s"

[staleness]
preset = "deal-health"

[logging]
level = "debug"
format = "json"
`
	path := filepath.Join(t.TempDir(), "fieldsync.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Drain.Policy != "best-effort" {
		t.Errorf("expected best-effort policy, got %s", cfg.Drain.Policy)
	}
	if cfg.Drain.RetryInterval.Std() != 45*time.Second {
		t.Errorf("expected 45s retry interval, got %v", cfg.Drain.RetryInterval.Std())
	}
	if cfg.Connectivity.ProbeInterval.Std() != 5*time.Second {
		t.Errorf("expected 5s probe interval, got %v", cfg.Connectivity.ProbeInterval.Std())
	}
	if cfg.Staleness.Preset != staleness.PresetDealHealth {
		t.Errorf("expected deal-health preset, got %s", cfg.Staleness.Preset)
	}
	// Unset sections keep defaults.
	if cfg.Server.Port != 8090 {
		t.Errorf("expected default server port, got %d", cfg.Server.Port)
	}
}

// TestLoadMissingFile tests the missing-file error path.
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/fieldsync.toml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

// TestValidateRejectsBadValues tests individual validation failures.
func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Remote.BaseURL = "https://crm.example.com"
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad policy", func(c *Config) { c.Drain.Policy = "sometimes" }},
		{"zero retry interval", func(c *Config) { c.Drain.RetryInterval = 0 }},
		{"missing remote", func(c *Config) { c.Remote.BaseURL = "" }},
		{"unknown preset", func(c *Config) { c.Staleness.Preset = "vibes" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tc := range cases {
		cfg := base()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

// TestProbeURLFallback tests the probe URL fallback to the remote health endpoint.
func TestProbeURLFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.BaseURL = "https://crm.example.com"

	if got := cfg.ProbeURL(); got != "https://crm.example.com/api/health" {
		t.Errorf("unexpected probe URL fallback: %s", got)
	}

	cfg.Connectivity.ProbeURL = "https://probe.example.com/ping"
	if got := cfg.ProbeURL(); got != "https://probe.example.com/ping" {
		t.Errorf("expected explicit probe URL to win, got %s", got)
	}
}
