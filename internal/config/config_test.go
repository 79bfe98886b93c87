package config

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/vango-dev/sellerconsole/internal/errors"
	"github.com/vango-dev/sellerconsole/pkg/backend"
	"github.com/vango-dev/sellerconsole/pkg/optimistic"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Language != DefaultLanguage {
		t.Errorf("Language = %q, want %q", cfg.Language, DefaultLanguage)
	}
	if cfg.Metrics.Namespace != DefaultNamespace || !cfg.MetricsEnabled() {
		t.Errorf("Metrics = %+v, want enabled %s", cfg.Metrics, DefaultNamespace)
	}
	if cfg.ConfirmTimeoutDuration() != 0 {
		t.Errorf("ConfirmTimeoutDuration() = %v, want 0", cfg.ConfirmTimeoutDuration())
	}
	if cfg.Rollback != RollbackSettled || cfg.RollbackPolicy() != optimistic.RollbackToSettled {
		t.Errorf("RollbackPolicy() = %v, want RollbackToSettled", cfg.RollbackPolicy())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	bc, err := cfg.BackendConfig()
	if err != nil {
		t.Fatalf("BackendConfig() error = %v", err)
	}
	if bc != backend.DefaultConfig() {
		t.Errorf("BackendConfig() = %+v, want %+v", bc, backend.DefaultConfig())
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if !stderrors.Is(err, errors.New(errors.CodeConfigRead)) {
		t.Errorf("Load(missing) error = %v, want %s", err, errors.CodeConfigRead)
	}

	writeConfig(t, tmpDir, `{
  "server": {"host": "0.0.0.0", "port": 8080},
  "backend": {"simulateFailure": true, "failureRate": 0, "minLatency": "10ms", "maxLatency": "20ms"},
  "confirmTimeout": "5s",
  "rollback": "previous",
  "language": "pt-BR",
  "metrics": {"enabled": false}
}
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("Address() = %q, want 0.0.0.0:8080", cfg.Address())
	}
	if cfg.URL() != "http://0.0.0.0:8080" {
		t.Errorf("URL() = %q", cfg.URL())
	}
	if cfg.Path() != filepath.Join(tmpDir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
	if cfg.ConfirmTimeoutDuration() != 5*time.Second {
		t.Errorf("ConfirmTimeoutDuration() = %v, want 5s", cfg.ConfirmTimeoutDuration())
	}
	if cfg.RollbackPolicy() != optimistic.RollbackToPrevious {
		t.Error("RollbackPolicy() should be RollbackToPrevious")
	}
	if cfg.LanguageTag() != language.BrazilianPortuguese {
		t.Errorf("LanguageTag() = %v, want pt-BR", cfg.LanguageTag())
	}
	if cfg.MetricsEnabled() {
		t.Error("MetricsEnabled() should be false")
	}
	if cfg.Server.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %q, want default", cfg.Server.ShutdownTimeout)
	}

	bc, err := cfg.BackendConfig()
	if err != nil {
		t.Fatalf("BackendConfig() error = %v", err)
	}
	// An explicit zero failure rate is kept, not replaced by the default.
	if !bc.SimulateFailure || bc.FailureRate != 0 {
		t.Errorf("BackendConfig() = %+v, want failures enabled at rate 0", bc)
	}
	if bc.MinLatency != 10*time.Millisecond || bc.MaxLatency != 20*time.Millisecond {
		t.Errorf("latency = %v-%v, want 10ms-20ms", bc.MinLatency, bc.MaxLatency)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"server": {"port": "eighty"}}`)

	_, err := Load(tmpDir)
	if !stderrors.Is(err, errors.New(errors.CodeConfigInvalid)) {
		t.Errorf("Load() error = %v, want %s", err, errors.CodeConfigInvalid)
	}
	if errors.CategoryOf(err) != errors.CategoryConfig {
		t.Errorf("CategoryOf() = %q, want config", errors.CategoryOf(err))
	}
}

func TestLoadOrDefault(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadOrDefault(tmpDir)
	if err != nil {
		t.Fatalf("LoadOrDefault(empty) error = %v", err)
	}
	if cfg.Path() != "" || cfg.Server.Port != DefaultPort {
		t.Errorf("LoadOrDefault(empty) = %+v, want defaults", cfg)
	}

	writeConfig(t, tmpDir, `{"server": {"port": 4000}}`)
	if !Exists(tmpDir) {
		t.Fatal("Exists() = false after writing the file")
	}
	cfg, err = LoadOrDefault(tmpDir)
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad timeout", func(c *Config) { c.ConfirmTimeout = "soon" }, "confirmTimeout"},
		{"negative timeout", func(c *Config) { c.ConfirmTimeout = "-1s" }, "confirmTimeout"},
		{"bad latency", func(c *Config) { c.Backend.MinLatency = "fast" }, "backend.minLatency"},
		{"latency order", func(c *Config) { c.Backend.MinLatency = "3s" }, ""},
		{"failure rate", func(c *Config) { r := 1.5; c.Backend.FailureRate = &r }, ""},
		{"rollback", func(c *Config) { c.Rollback = "never" }, "rollback"},
		{"language", func(c *Config) { c.Language = "x_invalid_!" }, "language"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !stderrors.Is(err, errors.New(errors.CodeConfigValue)) {
				t.Fatalf("Validate() error = %v, want %s", err, errors.CodeConfigValue)
			}
			var ce *errors.ConsoleError
			stderrors.As(err, &ce)
			if tt.field != "" && !strings.Contains(ce.Suggestion, tt.field) {
				t.Errorf("Suggestion = %q, want mention of %s", ce.Suggestion, tt.field)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	cfg := New()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("json output = %s", out)
	}
}

func TestShutdownTimeoutDuration(t *testing.T) {
	cfg := New()
	if cfg.ShutdownTimeoutDuration() != 10*time.Second {
		t.Errorf("ShutdownTimeoutDuration() = %v, want 10s", cfg.ShutdownTimeoutDuration())
	}
	cfg.Server.ShutdownTimeout = "0s"
	if cfg.ShutdownTimeoutDuration() != 10*time.Second {
		t.Errorf("zero ShutdownTimeoutDuration() = %v, want the default", cfg.ShutdownTimeoutDuration())
	}
}
