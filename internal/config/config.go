package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loglens/loglens/internal/alert"
)

// Config represents the main configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Tail    []TailConfig  `yaml:"tail,omitempty"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig defines the HTTP API listener
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`
}

// StorageConfig locates the SQLite database file
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// IngestConfig bounds the ingestion endpoint
type IngestConfig struct {
	MaxBodySize   int64   `yaml:"max_body_size,omitempty"`
	RateLimit     float64 `yaml:"rate_limit,omitempty"` // requests per second per client, 0 disables
	RateBurst     int     `yaml:"rate_burst,omitempty"`
	DefaultSource string  `yaml:"default_source,omitempty"`
}

// AlertsConfig drives the evaluation scheduler and its transports
type AlertsConfig struct {
	Enabled       bool              `yaml:"enabled"`
	Interval      time.Duration     `yaml:"interval,omitempty"`
	NotifyTimeout time.Duration     `yaml:"notify_timeout,omitempty"`
	SMTP          alert.EmailConfig `yaml:"smtp,omitempty"`
}

// TailConfig defines one followed log file fed into ingestion
type TailConfig struct {
	Path   string `yaml:"path"`
	Source string `yaml:"source,omitempty"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SampleRate   float64 `yaml:"sample_rate,omitempty"`
	EnableStdout bool    `yaml:"enable_stdout,omitempty"`
}

// Default values
const (
	DefaultAddress         = ":8000"
	DefaultStoragePath     = "loglens.db"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultMaxBodySize     = 10 << 20
	DefaultShutdownTimeout = 15 * time.Second
)

// Load loads configuration from a YAML file with environment variable overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(expandedData, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration
func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Ingest.MaxBodySize == 0 {
		c.Ingest.MaxBodySize = DefaultMaxBodySize
	}
	if c.Ingest.RateLimit > 0 && c.Ingest.RateBurst == 0 {
		c.Ingest.RateBurst = int(c.Ingest.RateLimit * 2)
	}
	if c.Alerts.Interval == 0 {
		c.Alerts.Interval = alert.DefaultInterval
	}
	if c.Alerts.NotifyTimeout == 0 {
		c.Alerts.NotifyTimeout = alert.DefaultNotifyTimeout
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Ingest.RateLimit < 0 {
		return fmt.Errorf("ingest rate limit must not be negative")
	}
	if c.Alerts.Enabled && c.Alerts.Interval < time.Second {
		return fmt.Errorf("alert interval %s is below one second", c.Alerts.Interval)
	}
	if c.Alerts.SMTP.Port < 0 || c.Alerts.SMTP.Port > 65535 {
		return fmt.Errorf("invalid smtp port: %d", c.Alerts.SMTP.Port)
	}

	for i, tail := range c.Tail {
		if tail.Path == "" {
			return fmt.Errorf("tail entry %d has no path configured", i)
		}
	}

	return nil
}

// LoadOrDefault loads configuration from file or returns a default configuration
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Alerts: AlertsConfig{
			Enabled: true,
		},
	}
	cfg.applyDefaults()
	return cfg
}
