// Package config loads FieldSync daemon configuration from TOML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kimhsiao/fieldsync/internal/queue"
	"github.com/kimhsiao/fieldsync/internal/staleness"
)

// Duration wraps time.Duration so TOML values like "30s" parse naturally.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the daemon configuration.
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Store        StoreConfig        `toml:"store"`
	Drain        DrainConfig        `toml:"drain"`
	Connectivity ConnectivityConfig `toml:"connectivity"`
	Remote       RemoteConfig       `toml:"remote"`
	Staleness    StalenessConfig    `toml:"staleness"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Logging      LoggingConfig      `toml:"logging"`
}

// ServerConfig holds the local REST/WebSocket listener settings.
type ServerConfig struct {
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// StoreConfig holds durable store settings.
type StoreConfig struct {
	DataDir string `toml:"data_dir"`
}

// DrainConfig holds queue drain settings.
type DrainConfig struct {
	Policy         string   `toml:"policy"` // fail-fast or best-effort
	RetryInterval  Duration `toml:"retry_interval"`
	HandlerTimeout Duration `toml:"handler_timeout"`
	EagerDrain     bool     `toml:"eager_drain"`
}

// ConnectivityConfig holds remote reachability probe settings.
type ConnectivityConfig struct {
	ProbeURL      string   `toml:"probe_url"` // defaults to <remote.base_url>/api/health
	ProbeInterval Duration `toml:"probe_interval"`
}

// RemoteConfig holds remote CRM API settings.
type RemoteConfig struct {
	BaseURL        string   `toml:"base_url"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// StalenessConfig selects the classifier preset used by the pipeline API.
type StalenessConfig struct {
	Preset string `toml:"preset"` // pipeline-card or deal-health
}

// MetricsConfig holds metrics/monitoring settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "127.0.0.1",
			Port:    8090,
		},
		Store: StoreConfig{
			DataDir: "./data",
		},
		Drain: DrainConfig{
			Policy:         string(queue.PolicyFailFast),
			RetryInterval:  Duration(time.Minute),
			HandlerTimeout: Duration(2 * time.Minute),
			EagerDrain:     true,
		},
		Connectivity: ConnectivityConfig{
			ProbeInterval: Duration(30 * time.Second),
		},
		Remote: RemoteConfig{
			RequestTimeout: Duration(30 * time.Second),
		},
		Staleness: StalenessConfig{
			Preset: staleness.PresetPipelineCard,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration: defaults, overridden by the TOML file when a
// path is given.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Store.DataDir == "" {
		return fmt.Errorf("store data_dir must be specified")
	}

	switch queue.DrainPolicy(c.Drain.Policy) {
	case queue.PolicyFailFast, queue.PolicyBestEffort:
	default:
		return fmt.Errorf("invalid drain policy: %s (must be fail-fast or best-effort)", c.Drain.Policy)
	}
	if c.Drain.RetryInterval <= 0 {
		return fmt.Errorf("drain retry_interval must be positive")
	}
	if c.Drain.HandlerTimeout <= 0 {
		return fmt.Errorf("drain handler_timeout must be positive")
	}

	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote base_url must be specified")
	}

	if _, ok := staleness.ByName(c.Staleness.Preset); !ok {
		return fmt.Errorf("unknown staleness preset: %s", c.Staleness.Preset)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics port must be between 1 and 65535")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// ProbeURL returns the configured probe URL, falling back to the remote
// health endpoint.
func (c *Config) ProbeURL() string {
	if c.Connectivity.ProbeURL != "" {
		return c.Connectivity.ProbeURL
	}
	if c.Remote.BaseURL == "" {
		return ""
	}
	return c.Remote.BaseURL + "/api/health"
}
