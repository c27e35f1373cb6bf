package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/freekieb7/poolhttp/test"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		EnvConfigFile,
		"HTTPD_WORKERS",
		"HTTPD_READ_TIMEOUT",
		"HTTPD_WRITE_TIMEOUT",
		"HTTPD_SHUTDOWN_TIMEOUT",
		"HTTPD_DEFER_ACCEPT",
		"HTTPD_LOG_LEVEL",
		"HTTPD_LOG_FORMAT",
		"OTEL_SERVICE_NAME",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	test.AssertNoError(t, err)

	test.AssertEqual(t, 8, cfg.Server.Workers)
	test.AssertEqual(t, 5*time.Second, cfg.Server.ReadTimeout)
	test.AssertEqual(t, 5*time.Second, cfg.Server.WriteTimeout)
	test.AssertEqual(t, 8191, cfg.Server.ReadBufferSize)
	test.AssertEqual(t, 1048576, cfg.Server.MaxBodySize)
	test.AssertEqual(t, false, cfg.Telemetry.Enabled)
	test.AssertEqual(t, ":3004", Addr)

	level, err := cfg.Log.SlogLevel()
	test.AssertNoError(t, err)
	test.AssertEqual(t, slog.LevelInfo, level)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "httpd.yaml")
	data := []byte("" +
		"server:\n" +
		"  workers: 16\n" +
		"  read_timeout: 2s\n" +
		"log:\n" +
		"  level: debug\n" +
		"  format: json\n")
	test.AssertNoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	test.AssertNoError(t, err)

	test.AssertEqual(t, 16, cfg.Server.Workers)
	test.AssertEqual(t, 2*time.Second, cfg.Server.ReadTimeout)
	test.AssertEqual(t, 5*time.Second, cfg.Server.WriteTimeout)
	test.AssertEqual(t, "json", cfg.Log.Format)

	level, err := cfg.Log.SlogLevel()
	test.AssertNoError(t, err)
	test.AssertEqual(t, slog.LevelDebug, level)
}

func TestLoadFileFromEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "httpd.yaml")
	test.AssertNoError(t, os.WriteFile(path, []byte("server:\n  workers: 3\n"), 0o600))
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	test.AssertNoError(t, err)
	test.AssertEqual(t, 3, cfg.Server.Workers)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "httpd.yaml")
	test.AssertNoError(t, os.WriteFile(path, []byte("server:\n  workers: 3\n"), 0o600))
	t.Setenv("HTTPD_WORKERS", "12")
	t.Setenv("HTTPD_WRITE_TIMEOUT", "750ms")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://127.0.0.1:4317")
	t.Setenv("OTEL_SERVICE_NAME", "bench")

	cfg, err := Load(path)
	test.AssertNoError(t, err)

	test.AssertEqual(t, 12, cfg.Server.Workers)
	test.AssertEqual(t, 750*time.Millisecond, cfg.Server.WriteTimeout)
	test.AssertEqual(t, true, cfg.Telemetry.Enabled)
	test.AssertEqual(t, "bench", cfg.Telemetry.ServiceName)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	test.AssertErrorIs(t, err, os.ErrNotExist)

	t.Setenv("HTTPD_WORKERS", "many")
	_, err = Load("")
	if err == nil {
		t.Error("expected error for non-numeric HTTPD_WORKERS")
	}

	t.Setenv("HTTPD_WORKERS", "0")
	_, err = Load("")
	test.AssertErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *Config)
	}{
		{"no workers", func(c *Config) { c.Server.Workers = 0 }},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"zero write timeout", func(c *Config) { c.Server.WriteTimeout = 0 }},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"negative defer accept", func(c *Config) { c.Server.DeferAccept = -time.Second }},
		{"no read buffer", func(c *Config) { c.Server.ReadBufferSize = 0 }},
		{"negative body cap", func(c *Config) { c.Server.MaxBodySize = -1 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}

	test.AssertNoError(t, Default().Validate())

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
