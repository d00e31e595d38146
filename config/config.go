// Package config loads process configuration: CalDAV endpoint and
// credentials, the local timezone convention and operational limits.
// Values come from an optional YAML file overridden by environment
// variables; the core consumes the result read-only.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	CalDAVURL string `yaml:"caldav_url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`

	// TimezoneName is the IANA zone the temporal normalizer interprets
	// local date/time expressions in.
	TimezoneName string         `yaml:"timezone"`
	Timezone     *time.Location `yaml:"-"`

	// RequestTimeout bounds each CalDAV round-trip.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Concurrency bounds parallel dispatch in fan-out search and batch
	// execution.
	Concurrency int `yaml:"concurrency"`

	// DefaultEventMinutes is the event duration when no end is given.
	DefaultEventMinutes int `yaml:"default_event_minutes"`

	// RefreshCron schedules background calendar re-discovery.
	RefreshCron string `yaml:"refresh"`

	LogLevel string `yaml:"log_level"`
}

// Load reads the optional YAML file named by CALDAV_MCP_CONFIG, then
// applies environment overrides and defaults. CALDAV_URL, CALDAV_USERNAME
// and CALDAV_PASSWORD are required.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CALDAV_MCP_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("CALDAV_URL"); v != "" {
		cfg.CalDAVURL = v
	}
	if v := os.Getenv("CALDAV_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("CALDAV_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		cfg.TimezoneName = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be a number: %w", err)
		}
		cfg.RequestTimeout = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CONCURRENCY must be a number: %w", err)
		}
		cfg.Concurrency = n
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.RefreshCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if cfg.CalDAVURL == "" {
		return nil, fmt.Errorf("CALDAV_URL is required")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("CALDAV_USERNAME is required")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("CALDAV_PASSWORD is required")
	}

	if cfg.TimezoneName == "" {
		cfg.TimezoneName = "America/Denver"
	}
	tz, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Timezone = tz

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.DefaultEventMinutes <= 0 {
		cfg.DefaultEventMinutes = 30
	}
	if cfg.RefreshCron == "" {
		cfg.RefreshCron = "@every 15m"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// DefaultEventDuration returns the configured default event duration.
func (c *Config) DefaultEventDuration() time.Duration {
	return time.Duration(c.DefaultEventMinutes) * time.Minute
}
