// Package config loads server settings from defaults, an optional YAML file
// and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Addr is the fixed listen address.
const Addr = ":3004"

const EnvConfigFile = "HTTPD_CONFIG"

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Workers         int           `yaml:"workers"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	DeferAccept     time.Duration `yaml:"defer_accept"`
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	MaxBodySize     int           `yaml:"max_body_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Workers:         8,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			DeferAccept:     5 * time.Second,
			ReadBufferSize:  8191,
			MaxBodySize:     1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "poolhttp",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (or at
// $HTTPD_CONFIG when path is empty) and then with environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs error
	var err error

	c.Server.Workers, err = getEnvAsIntOrDefault("HTTPD_WORKERS", c.Server.Workers)
	errs = errors.Join(errs, err)
	c.Server.ReadTimeout, err = getEnvAsDurationOrDefault("HTTPD_READ_TIMEOUT", c.Server.ReadTimeout)
	errs = errors.Join(errs, err)
	c.Server.WriteTimeout, err = getEnvAsDurationOrDefault("HTTPD_WRITE_TIMEOUT", c.Server.WriteTimeout)
	errs = errors.Join(errs, err)
	c.Server.ShutdownTimeout, err = getEnvAsDurationOrDefault("HTTPD_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	errs = errors.Join(errs, err)
	c.Server.DeferAccept, err = getEnvAsDurationOrDefault("HTTPD_DEFER_ACCEPT", c.Server.DeferAccept)
	errs = errors.Join(errs, err)

	c.Log.Level = getEnvOrDefault("HTTPD_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("HTTPD_LOG_FORMAT", c.Log.Format)

	c.Telemetry.ServiceName = getEnvOrDefault("OTEL_SERVICE_NAME", c.Telemetry.ServiceName)
	c.Telemetry.Endpoint = getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.Endpoint)
	if c.Telemetry.Endpoint != "" {
		c.Telemetry.Enabled = true
	}

	return errs
}

func (c *Config) Validate() error {
	if c.Server.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Server.Workers)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("%w: read timeout must be positive", ErrInvalidConfig)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write timeout must be positive", ErrInvalidConfig)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidConfig)
	}
	if c.Server.DeferAccept < 0 {
		return fmt.Errorf("%w: defer accept must not be negative", ErrInvalidConfig)
	}
	if c.Server.ReadBufferSize < 1 {
		return fmt.Errorf("%w: read buffer size must be positive", ErrInvalidConfig)
	}
	if c.Server.MaxBodySize < 0 {
		return fmt.Errorf("%w: max body size must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, found := os.LookupEnv(key); found && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) (int, error) {
	value, found := os.LookupEnv(key)
	if !found || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value, found := os.LookupEnv(key)
	if !found || value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
