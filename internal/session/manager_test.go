// ABOUTME: Tests for the session manager
// ABOUTME: Covers login, logout, refresh 401 handling, and expiry inspection

package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runeforge/rune-console/internal/api"
)

// fakeBackend is a minimal session endpoint implementation.
type fakeBackend struct {
	mux         *http.ServeMux
	refreshCode int
	logouts     int
}

func newFakeBackend() *fakeBackend {
	fb := &fakeBackend{mux: http.NewServeMux(), refreshCode: http.StatusOK}

	fb.mux.HandleFunc("POST /v1/session", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string `json:"token"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Token != "good-pat" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid token"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.Session{Token: "sess-1", PrincipalID: "p-1", DisplayName: "Runa"})
	})

	fb.mux.HandleFunc("POST /v1/session/refresh", func(w http.ResponseWriter, r *http.Request) {
		if fb.refreshCode != http.StatusOK {
			w.WriteHeader(fb.refreshCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.Session{Token: "sess-2", PrincipalID: "p-1"})
	})

	fb.mux.HandleFunc("DELETE /v1/session", func(w http.ResponseWriter, r *http.Request) {
		fb.logouts++
		w.WriteHeader(http.StatusNoContent)
	})

	return fb
}

func newTestManager(t *testing.T) (*Manager, *fakeBackend) {
	t.Helper()
	fb := newFakeBackend()
	srv := httptest.NewServer(fb.mux)
	t.Cleanup(srv.Close)
	return NewManager(api.New(srv.URL, srv.Client())), fb
}

func TestLogin_Success(t *testing.T) {
	m, _ := newTestManager(t)

	session, err := m.Login(context.Background(), "good-pat")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.Token)
	assert.True(t, m.Authenticated())
	assert.NoError(t, m.Err())
	assert.False(t, m.Loading())
}

func TestLogin_Failure(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Login(context.Background(), "bad-pat")
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.False(t, m.Authenticated())
	assert.Error(t, m.Err())
}

func TestRefresh_ReplacesToken(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Login(context.Background(), "good-pat")
	require.NoError(t, err)

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, "sess-2", m.Current().Token)
}

func TestRefresh_401ClearsSessionWithoutError(t *testing.T) {
	m, fb := newTestManager(t)
	_, err := m.Login(context.Background(), "good-pat")
	require.NoError(t, err)

	fb.refreshCode = http.StatusUnauthorized
	require.NoError(t, m.Refresh(context.Background()))
	assert.False(t, m.Authenticated())
	assert.NoError(t, m.Err())
}

func TestRefresh_OtherFailureKeepsSession(t *testing.T) {
	m, fb := newTestManager(t)
	_, err := m.Login(context.Background(), "good-pat")
	require.NoError(t, err)

	fb.refreshCode = http.StatusInternalServerError
	require.Error(t, m.Refresh(context.Background()))
	assert.True(t, m.Authenticated())
	assert.Error(t, m.Err())
}

func TestRefresh_WithoutSession(t *testing.T) {
	m, _ := newTestManager(t)
	require.ErrorIs(t, m.Refresh(context.Background()), ErrNotAuthenticated)
}

func TestLogout_ClearsStateAndCallsBackend(t *testing.T) {
	m, fb := newTestManager(t)
	_, err := m.Login(context.Background(), "good-pat")
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))
	assert.False(t, m.Authenticated())
	assert.Equal(t, 1, fb.logouts)

	// Logout without a session is a no-op.
	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, 1, fb.logouts)
}

func TestClient_RequiresSession(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Client()
	require.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = m.Login(context.Background(), "good-pat")
	require.NoError(t, err)
	c, err := m.Client()
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "p-1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := TokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.WithinDuration(t, exp, got, time.Second)

	_, ok = TokenExpiry("not-a-jwt")
	assert.False(t, ok)
}

func TestExpiresWithin(t *testing.T) {
	m, _ := newTestManager(t)
	assert.True(t, m.ExpiresWithin(time.Minute), "no session counts as expired")

	m.mu.Lock()
	m.session = &api.Session{Token: signedToken(t, time.Now().Add(10*time.Minute))}
	m.mu.Unlock()

	assert.False(t, m.ExpiresWithin(time.Minute))
	assert.True(t, m.ExpiresWithin(time.Hour))

	// Opaque token falls back to the ExpiresAt field.
	m.mu.Lock()
	m.session = &api.Session{Token: "opaque", ExpiresAt: time.Now().Add(30 * time.Second)}
	m.mu.Unlock()
	assert.True(t, m.ExpiresWithin(time.Minute))
}
