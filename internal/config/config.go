package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"github.com/vango-dev/sellerconsole/internal/errors"
	"github.com/vango-dev/sellerconsole/pkg/backend"
	"github.com/vango-dev/sellerconsole/pkg/optimistic"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "sellerconsole.json"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = "10s"

	// DefaultConfirmTimeout disables the confirmation timeout.
	DefaultConfirmTimeout = "0s"

	// DefaultLanguage is the language of toasts and validation messages.
	DefaultLanguage = "en"

	// DefaultNamespace is the Prometheus namespace.
	DefaultNamespace = "sellerconsole"

	// Rollback policies.
	RollbackPrevious = "previous"
	RollbackSettled  = "settled"
)

// Config represents the complete sellerconsole.json configuration.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server"`

	// Backend configures the simulated backend.
	Backend BackendConfig `json:"backend"`

	// ConfirmTimeout bounds every confirmation (e.g., "5s"). "0s" disables it.
	ConfirmTimeout string `json:"confirmTimeout,omitempty"`

	// Rollback is "settled" (default, restore the value from before the
	// overlapping chain) or "previous" (restore the value visible when the
	// failed mutation was issued).
	Rollback string `json:"rollback,omitempty"`

	// Language is a BCP 47 tag, e.g. "en" or "pt-BR".
	Language string `json:"language,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics"`

	// Log contains logging configuration.
	Log LogConfig `json:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`

	// AllowedOrigins lists origins allowed to open the websocket. Empty
	// allows same-origin requests only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// BackendConfig configures the simulated backend.
type BackendConfig struct {
	// SimulateFailure enables random failures.
	SimulateFailure bool `json:"simulateFailure,omitempty"`

	// FailureRate is the failure probability. Nil means the default.
	FailureRate *float64 `json:"failureRate,omitempty"`

	// MinLatency and MaxLatency bound the simulated delay (e.g., "1s").
	MinLatency string `json:"minLatency,omitempty"`
	MaxLatency string `json:"maxLatency,omitempty"`

	// Seed makes the simulator deterministic when non-zero.
	Seed uint64 `json:"seed,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics.
	Enabled *bool `json:"enabled,omitempty"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory.
// It looks for sellerconsole.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigRead).
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Create " + ConfigFileName + " or omit --config to use defaults")
		}
		return nil, errors.New(errors.CodeConfigRead).Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// LoadOrDefault loads dir's configuration file if there is one and
// returns the defaults otherwise.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		return New(), nil
	}
	return Load(dir)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Backend
	if c.Backend.FailureRate == nil {
		rate := backend.DefaultFailureRate
		c.Backend.FailureRate = &rate
	}
	if c.Backend.MinLatency == "" {
		c.Backend.MinLatency = backend.DefaultMinLatency.String()
	}
	if c.Backend.MaxLatency == "" {
		c.Backend.MaxLatency = backend.DefaultMaxLatency.String()
	}

	if c.ConfirmTimeout == "" {
		c.ConfirmTimeout = DefaultConfirmTimeout
	}
	if c.Rollback == "" {
		c.Rollback = RollbackSettled
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}

	// Metrics
	if c.Metrics.Enabled == nil {
		enabled := true
		c.Metrics.Enabled = &enabled
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port", "Port must be between 0 and 65535")
	}
	if err := positiveDuration("server.shutdownTimeout", c.Server.ShutdownTimeout); err != nil {
		return err
	}
	if err := positiveDuration("confirmTimeout", c.ConfirmTimeout); err != nil {
		return err
	}
	for _, field := range []struct{ name, value string }{
		{"backend.minLatency", c.Backend.MinLatency},
		{"backend.maxLatency", c.Backend.MaxLatency},
	} {
		if err := positiveDuration(field.name, field.value); err != nil {
			return err
		}
	}
	bc, _ := c.BackendConfig()
	if err := bc.Validate(); err != nil {
		return errors.New(errors.CodeConfigValue).WithDetail(err.Error()).Wrap(err)
	}
	if c.Rollback != RollbackPrevious && c.Rollback != RollbackSettled {
		return invalid("rollback", fmt.Sprintf("Rollback must be %q or %q, got %q", RollbackPrevious, RollbackSettled, c.Rollback))
	}
	if _, err := language.Parse(c.Language); err != nil {
		return invalid("language", fmt.Sprintf("Invalid language tag %q", c.Language))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return invalid("log.level", fmt.Sprintf("Unknown log level %q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format", fmt.Sprintf("Log format must be text or json, got %q", c.Log.Format))
	}
	return nil
}

func invalid(field, detail string) error {
	return errors.New(errors.CodeConfigValue).
		WithDetail(detail).
		WithSuggestion("Fix " + field + " in " + ConfigFileName)
}

func positiveDuration(field, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return invalid(field, fmt.Sprintf("Invalid duration %q", value))
	}
	if d < 0 {
		return invalid(field, fmt.Sprintf("Duration %q must not be negative", value))
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL returns the base URL of the server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// BackendConfig converts the backend section for the simulator.
func (c *Config) BackendConfig() (backend.Config, error) {
	bc := backend.DefaultConfig()
	bc.SimulateFailure = c.Backend.SimulateFailure
	if c.Backend.FailureRate != nil {
		bc.FailureRate = *c.Backend.FailureRate
	}
	var err error
	if bc.MinLatency, err = time.ParseDuration(c.Backend.MinLatency); err != nil {
		return bc, err
	}
	if bc.MaxLatency, err = time.ParseDuration(c.Backend.MaxLatency); err != nil {
		return bc, err
	}
	return bc, nil
}

// ConfirmTimeoutDuration returns the confirmation timeout; zero disables it.
func (c *Config) ConfirmTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConfirmTimeout)
	return d
}

// ShutdownTimeoutDuration returns the graceful shutdown bound.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil || d == 0 {
		d, _ = time.ParseDuration(DefaultShutdownTimeout)
	}
	return d
}

// RollbackPolicy returns the configured rollback policy.
func (c *Config) RollbackPolicy() optimistic.RollbackPolicy {
	if c.Rollback == RollbackPrevious {
		return optimistic.RollbackToPrevious
	}
	return optimistic.RollbackToSettled
}

// LanguageTag returns the configured language, English if unparsable.
func (c *Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.English
	}
	return tag
}

// MetricsEnabled reports whether /metrics is exposed.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

// Logger builds the process logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.Log.Level))
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
