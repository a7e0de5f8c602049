// ABOUTME: Tests for configuration loading
// ABOUTME: Covers env expansion, duration parsing, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
server:
  http_addr: ":8080"
backend:
  base_url: "https://runes.example.org"
  timeout: "15s"
database:
  path: "/tmp/console.db"
session:
  seal_key: "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"
  duration: "24h"
console:
  base_url: "https://console.example.org"
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "https://runes.example.org", cfg.Backend.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Session.Duration)
	assert.Equal(t, "system", cfg.Console.ReservedRealm, "reserved realm defaults")
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BACKEND_URL", "https://backend.test")
	cfg, err := Load(writeConfig(t, `
server:
  http_addr: ":8080"
backend:
  base_url: "${TEST_BACKEND_URL}"
database:
  path: "/tmp/console.db"
session:
  seal_key: "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"
`))
	require.NoError(t, err)
	assert.Equal(t, "https://backend.test", cfg.Backend.BaseURL)
}

func TestLoad_DefaultSessionDuration(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  http_addr: ":8080"
backend:
  base_url: "https://runes.example.org"
database:
  path: "/tmp/console.db"
session:
  seal_key: "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"
`))
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionDuration, cfg.Session.Duration)
}

func TestLoad_DefaultBackendTimeout(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  http_addr: ":8080"
backend:
  base_url: "https://runes.example.org"
database:
  path: "/tmp/console.db"
session:
  seal_key: "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"
`))
	require.NoError(t, err)
	assert.Equal(t, DefaultBackendTimeout, cfg.Backend.Timeout,
		"omitting backend.timeout must not leave calls unbounded")
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  http_addr: ":8080"
backend:
  base_url: "https://runes.example.org"
  timeout: "soon"
database:
  path: "/tmp/console.db"
session:
  seal_key: "aa"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing backend timeout")
}

func TestValidate_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing http addr",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "" },
			wantErr: "server.http_addr",
		},
		{
			name:    "missing backend url",
			mutate:  func(c *Config) { c.Backend.BaseURL = "" },
			wantErr: "backend.base_url",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "missing seal key",
			mutate:  func(c *Config) { c.Session.SealKey = "" },
			wantErr: "session.seal_key",
		},
		{
			name: "tailscale without hostname",
			mutate: func(c *Config) {
				c.Tailscale.Enabled = true
				c.Tailscale.Hostname = ""
			},
			wantErr: "tailscale.hostname",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validConfig))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_TailscaleReplacesListenAddr(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	cfg.Server.HTTPAddr = ""
	cfg.Tailscale.Enabled = true
	cfg.Tailscale.Hostname = "rune-console"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
