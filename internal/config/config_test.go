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

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Source.LookbackDays != 730 {
		t.Errorf("lookback_days = %d, want 730", cfg.Source.LookbackDays)
	}
	if cfg.Source.RetryAttempts != 3 {
		t.Errorf("retry_attempts = %d, want 3", cfg.Source.RetryAttempts)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
source:
  lookback_days: 365
  retry_delay_seconds: 5
schedule:
  sync_cron: "0 30 22 * * 1-5"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Source.LookbackDays != 365 {
		t.Errorf("lookback_days = %d, want 365", cfg.Source.LookbackDays)
	}
	if got := cfg.RetryDelay(); got != 5*time.Second {
		t.Errorf("RetryDelay = %v, want 5s", got)
	}
	if cfg.Schedule.SyncCron != "0 30 22 * * 1-5" {
		t.Errorf("sync_cron = %q", cfg.Schedule.SyncCron)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
`)
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("LOOKBACK_DAYS", "90")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("addr = %q, env should win over file", cfg.Server.Addr)
	}
	if cfg.Source.LookbackDays != 90 {
		t.Errorf("lookback_days = %d, want 90", cfg.Source.LookbackDays)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestValidateRejectsShortLookback(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Source.LookbackDays = 7
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for lookback_days below 30")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
