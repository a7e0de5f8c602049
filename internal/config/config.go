// ABOUTME: Configuration loading and parsing for rune-console
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete rune-console configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Backend   BackendConfig   `yaml:"backend"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	Console   ConsoleConfig   `yaml:"console"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the console's listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	Funnel    bool   `yaml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// BackendConfig points at the rune backend REST API
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// DatabaseConfig holds the local store configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SessionConfig holds console session configuration
type SessionConfig struct {
	// SealKey is a hex-encoded 32-byte key that seals backend tokens
	// at rest. Generate one with `rune-console init`.
	SealKey  string        `yaml:"seal_key"`
	Duration time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	DurationRaw string `yaml:"duration"`
}

// ConsoleConfig holds web console behavior configuration
type ConsoleConfig struct {
	// BaseURL is the external URL for the console (used in links)
	BaseURL string `yaml:"base_url"`
	// ReservedRealm is the administrative realm hidden from the realm
	// switcher. Defaults to "system".
	ReservedRealm string `yaml:"reserved_realm"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultSessionDuration is used when session.duration is not set.
const DefaultSessionDuration = 7 * 24 * time.Hour

// DefaultBackendTimeout is used when backend.timeout is not set, so a
// backend call is never unbounded.
const DefaultBackendTimeout = 30 * time.Second

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// A listen address is required unless Tailscale provides one
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Session.SealKey == "" {
		return fmt.Errorf("session.seal_key is required (generate with: rune-console init)")
	}

	return nil
}

// applyDefaults fills fields that have sensible defaults
func applyDefaults(cfg *Config) {
	if cfg.Session.Duration == 0 {
		cfg.Session.Duration = DefaultSessionDuration
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = DefaultBackendTimeout
	}
	if cfg.Console.ReservedRealm == "" {
		cfg.Console.ReservedRealm = "system"
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Backend.TimeoutRaw != "" {
		cfg.Backend.Timeout, err = time.ParseDuration(cfg.Backend.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing backend timeout %q: %w", cfg.Backend.TimeoutRaw, err)
		}
	}

	if cfg.Session.DurationRaw != "" {
		cfg.Session.Duration, err = time.ParseDuration(cfg.Session.DurationRaw)
		if err != nil {
			return fmt.Errorf("parsing session duration %q: %w", cfg.Session.DurationRaw, err)
		}
	}

	return nil
}
