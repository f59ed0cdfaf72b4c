package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Source struct {
		LookbackDays        int `yaml:"lookback_days"`
		RetryAttempts       int `yaml:"retry_attempts"`
		RetryDelaySeconds   int `yaml:"retry_delay_seconds"`
		FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
	} `yaml:"source"`
	Schedule struct {
		// SyncCron, when set, schedules a periodic sync of all active
		// tickers (6-field cron spec, seconds first).
		SyncCron string `yaml:"sync_cron"`
	} `yaml:"schedule"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error; env and defaults
// still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SYNC_CRON"); v != "" {
		cfg.Schedule.SyncCron = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Source.LookbackDays = n
		}
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/scanner.db"
	}
	if cfg.Source.LookbackDays == 0 {
		cfg.Source.LookbackDays = 730
	}
	if cfg.Source.RetryAttempts == 0 {
		cfg.Source.RetryAttempts = 3
	}
	if cfg.Source.RetryDelaySeconds == 0 {
		cfg.Source.RetryDelaySeconds = 2
	}
	if cfg.Source.FetchTimeoutSeconds == 0 {
		cfg.Source.FetchTimeoutSeconds = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	if c.Source.LookbackDays < 30 {
		return fmt.Errorf("source.lookback_days must be at least 30, got %d", c.Source.LookbackDays)
	}
	if c.Source.RetryAttempts < 1 {
		return fmt.Errorf("source.retry_attempts must be at least 1, got %d", c.Source.RetryAttempts)
	}
	if c.Source.RetryDelaySeconds < 0 {
		return fmt.Errorf("source.retry_delay_seconds must not be negative")
	}
	if c.Source.FetchTimeoutSeconds < 1 {
		return fmt.Errorf("source.fetch_timeout_seconds must be at least 1")
	}
	return nil
}

// RetryDelay returns the fixed inter-attempt delay for sync fetches.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Source.RetryDelaySeconds) * time.Second
}

// FetchTimeout returns the per-attempt timeout for external fetches.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Source.FetchTimeoutSeconds) * time.Second
}
