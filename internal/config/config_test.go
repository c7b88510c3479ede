package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  path: /tmp/test.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != DefaultAddress {
		t.Errorf("Address = %q, want %q", cfg.Server.Address, DefaultAddress)
	}
	if cfg.Storage.Path != "/tmp/test.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json defaults", cfg.Logging)
	}
	if cfg.Alerts.Interval != 30*time.Second {
		t.Errorf("Alerts.Interval = %v, want 30s", cfg.Alerts.Interval)
	}
	if cfg.Ingest.MaxBodySize != DefaultMaxBodySize {
		t.Errorf("MaxBodySize = %d", cfg.Ingest.MaxBodySize)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("LOGLENS_DB", "/data/lens.db")
	path := writeConfig(t, `
storage:
  path: ${LOGLENS_DB}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Path != "/data/lens.db" {
		t.Errorf("Storage.Path = %q, want expanded env value", cfg.Storage.Path)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "logging:\n  level: verbose\n"},
		{"bad log format", "logging:\n  format: xml\n"},
		{"negative rate limit", "ingest:\n  rate_limit: -1\n"},
		{"tail without path", "tail:\n  - source: app\n"},
		{"alert interval too short", "alerts:\n  enabled: true\n  interval: 100ms\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load accepted invalid configuration")
			}
		})
	}
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	cfg := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg.Server.Address != DefaultAddress {
		t.Errorf("Address = %q, want default", cfg.Server.Address)
	}
	if !cfg.Alerts.Enabled {
		t.Error("default config should enable alerts")
	}
}
