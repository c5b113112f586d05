package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stimui", "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.ControllerURL != DefaultControllerURL {
		t.Errorf("ControllerURL = %q, want %q", cfg.ControllerURL, DefaultControllerURL)
	}
	if cfg.StatePollInterval() != 100*time.Millisecond {
		t.Errorf("StatePollInterval = %v, want 100ms", cfg.StatePollInterval())
	}
	if cfg.ClientID == "" {
		t.Error("expected generated client id")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not saved: %v", err)
	}

	again, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.ClientID != cfg.ClientID {
		t.Errorf("client id changed across loads: %q -> %q", cfg.ClientID, again.ClientID)
	}
}

func TestLoadFromAppliesDefaultsToZeroFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data, _ := json.Marshal(map[string]any{
		"controller_url":    "http://10.0.0.5:7777/",
		"telemetry_poll_ms": 200,
		"client_id":         "fixed",
	})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.ControllerURL != "http://10.0.0.5:7777" {
		t.Errorf("ControllerURL = %q, trailing slash not trimmed", cfg.ControllerURL)
	}
	if cfg.TelemetryPollInterval() != 200*time.Millisecond {
		t.Errorf("TelemetryPollInterval = %v, want 200ms", cfg.TelemetryPollInterval())
	}
	if cfg.StatePollMS != DefaultStatePollMS {
		t.Errorf("StatePollMS = %d, want default %d", cfg.StatePollMS, DefaultStatePollMS)
	}
	if cfg.TelemetryWindowSeconds != DefaultTelemetryWindowSeconds {
		t.Errorf("TelemetryWindowSeconds = %v, want default", cfg.TelemetryWindowSeconds)
	}
	if cfg.ClientID != "fixed" {
		t.Errorf("ClientID = %q, want fixed", cfg.ClientID)
	}
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"controller_url":`},
		{"non http url", `{"controller_url":"ftp://x"}`},
		{"negative poll", `{"state_poll_ms":-5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := LoadFrom(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		c := &Config{LogLevel: tt.level}
		if got := c.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
