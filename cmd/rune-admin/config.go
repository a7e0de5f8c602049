// ABOUTME: Configuration loading for the rune-admin CLI
// ABOUTME: Loads TOML config from XDG path with environment variable expansion

package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Backend BackendConfig `toml:"backend"`
}

type BackendConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
	Realm string `toml:"realm"`
}

// configPath returns the path to the admin config file.
// Priority: RUNE_ADMIN_CONFIG env var > XDG_CONFIG_HOME/rune-console/admin.toml > ~/.config/rune-console/admin.toml
func configPath() string {
	if envPath := os.Getenv("RUNE_ADMIN_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "admin.toml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "rune-console", "admin.toml")
}

// loadConfig reads the TOML config if present, then applies environment
// overrides. A missing file is fine as long as the environment fills
// the gaps.
func loadConfig() (*Config, error) {
	cfg := &Config{}

	path := configPath()
	if data, err := os.ReadFile(path); err == nil {
		expanded := expandEnvVars(string(data))
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if v := os.Getenv("RUNE_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("RUNE_TOKEN"); v != "" {
		cfg.Backend.Token = v
	}
	if v := os.Getenv("RUNE_REALM"); v != "" {
		cfg.Backend.Realm = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks that required config fields are present and valid.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required (or set RUNE_BACKEND_URL)")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.url must be a valid URL, got %q", c.Backend.URL)
	}
	if c.Backend.Token == "" {
		return fmt.Errorf("backend.token is required (or set RUNE_TOKEN)")
	}
	return nil
}
