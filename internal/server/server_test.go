// ABOUTME: Tests for server construction and the health endpoint
// ABOUTME: Uses a temp SQLite store and generated seal key

package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runeforge/rune-console/internal/config"
	"github.com/runeforge/rune-console/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	sealKey, err := store.GenerateSealKey()
	require.NoError(t, err)

	return &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		Backend:  config.BackendConfig{BaseURL: "http://localhost:9090", Timeout: 5 * time.Second},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "console.db")},
		Session:  config.SessionConfig{SealKey: sealKey, Duration: time.Hour},
	}
}

func TestNew_WiresEverything(t *testing.T) {
	srv, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.store.Close()
		srv.console.Close()
	})

	assert.NotNil(t, srv.httpServer)
	assert.Nil(t, srv.tsnetServer)
}

func TestNew_RejectsBadSealKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.SealKey = "not-hex"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	srv, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.store.Close()
		srv.console.Close()
	})

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestRootRedirectsToConsole(t *testing.T) {
	srv, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.store.Close()
		srv.console.Close()
	})

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/console/", rec.Header().Get("Location"))
}
