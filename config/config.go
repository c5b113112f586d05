// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	appName        = "stimui"
	configFileName = "config.json"
)

// Defaults applied to zero-valued fields.
const (
	DefaultControllerURL          = "http://127.0.0.1:7777"
	DefaultStatePollMS            = 100
	DefaultTelemetryPollMS        = 150
	DefaultRequestTimeoutMS       = 1000
	DefaultRefreshWindowMS        = 1000
	DefaultTelemetryWindowSeconds = 5.0
	DefaultSampleRate             = 250.0
	DefaultLogLevel               = "info"
)

// Config represents the application configuration.
type Config struct {
	// Controller connection
	ControllerURL    string `json:"controller_url"`
	StatePollMS      int    `json:"state_poll_ms"`
	TelemetryPollMS  int    `json:"telemetry_poll_ms"`
	RequestTimeoutMS int    `json:"request_timeout_ms"`

	// Stimulus
	RefreshWindowMS int `json:"refresh_window_ms"`
	// SwapRunSurfaces drives the left surface from freq_right_hz and vice versa.
	SwapRunSurfaces bool `json:"swap_run_surfaces"`

	// Telemetry
	TelemetryWindowSeconds float64 `json:"telemetry_window_seconds"`
	DefaultSampleRate      float64 `json:"default_sample_rate"`
	// PerChannelHealth colors each trace from its own quality flag instead of
	// the aggregate bad-window rate.
	PerChannelHealth bool `json:"per_channel_health"`

	LogLevel string `json:"log_level"`
	ClientID string `json:"client_id"`

	path string
}

// Load loads configuration from the config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from path. A missing file yields defaults and a
// fresh client id, which is saved back so the id is stable across runs.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		cfg := defaultConfig()
		cfg.path = path
		if err := cfg.Save(); err != nil {
			slog.Warn("save default config", "path", path, "error", err)
		}
		return cfg, nil
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.path = path

	applyDefaults(&cfg)
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.New().String()
		if err := cfg.Save(); err != nil {
			slog.Warn("save client id", "path", path, "error", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := configPath()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate rejects settings the poll loops cannot run with.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.ControllerURL, "http://") && !strings.HasPrefix(c.ControllerURL, "https://") {
		return fmt.Errorf("controller url must be http(s): %q", c.ControllerURL)
	}
	if c.StatePollMS < 0 || c.TelemetryPollMS < 0 || c.RequestTimeoutMS < 0 {
		return fmt.Errorf("poll periods must not be negative")
	}
	if c.TelemetryWindowSeconds < 0 {
		return fmt.Errorf("telemetry window must not be negative")
	}
	return nil
}

// StatePollInterval returns the /state poll period.
func (c *Config) StatePollInterval() time.Duration {
	return time.Duration(c.StatePollMS) * time.Millisecond
}

// TelemetryPollInterval returns the /eeg + /quality poll period.
func (c *Config) TelemetryPollInterval() time.Duration {
	return time.Duration(c.TelemetryPollMS) * time.Millisecond
}

// RequestTimeout returns the per-request deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// RefreshWindow returns the refresh measurement window.
func (c *Config) RefreshWindow() time.Duration {
	return time.Duration(c.RefreshWindowMS) * time.Millisecond
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions

func applyDefaults(c *Config) {
	if c.ControllerURL == "" {
		c.ControllerURL = DefaultControllerURL
	}
	c.ControllerURL = strings.TrimRight(c.ControllerURL, "/")
	if c.StatePollMS == 0 {
		c.StatePollMS = DefaultStatePollMS
	}
	if c.TelemetryPollMS == 0 {
		c.TelemetryPollMS = DefaultTelemetryPollMS
	}
	if c.RequestTimeoutMS == 0 {
		c.RequestTimeoutMS = DefaultRequestTimeoutMS
	}
	if c.RefreshWindowMS == 0 {
		c.RefreshWindowMS = DefaultRefreshWindowMS
	}
	if c.TelemetryWindowSeconds == 0 {
		c.TelemetryWindowSeconds = DefaultTelemetryWindowSeconds
	}
	if c.DefaultSampleRate == 0 {
		c.DefaultSampleRate = DefaultSampleRate
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

func defaultConfig() *Config {
	c := &Config{ClientID: uuid.New().String()}
	applyDefaults(c)
	return c
}

// Default returns an in-memory default configuration that is never saved
// unless Save is called explicitly.
func Default() *Config {
	return defaultConfig()
}
