// ABOUTME: Session state management over the backend API client
// ABOUTME: Tracks the current session through login, logout, and refresh

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/runeforge/rune-console/internal/api"
)

// ErrNotAuthenticated is returned when an operation needs a session and
// none is held.
var ErrNotAuthenticated = errors.New("not authenticated")

// Manager holds the current backend session for one console user. It
// is safe for concurrent use; HTTP handlers for the same browser
// session may overlap.
type Manager struct {
	client *api.Client
	logger *slog.Logger

	mu      sync.Mutex
	session *api.Session
	loading bool
	lastErr error
}

// NewManager creates a manager over the given base client. The client
// should be unbound; the manager binds tokens itself.
func NewManager(client *api.Client) *Manager {
	return &Manager{
		client: client,
		logger: slog.Default().With("component", "session"),
	}
}

// Login exchanges a personal access token for a backend session and
// stores it. A failed login clears any prior session state and records
// the error.
func (m *Manager) Login(ctx context.Context, pat string) (*api.Session, error) {
	m.setLoading(true)
	defer m.setLoading(false)

	session, err := m.client.Login(ctx, pat)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.session = nil
		m.lastErr = err
		return nil, fmt.Errorf("login: %w", err)
	}
	m.session = session
	m.lastErr = nil
	m.logger.Info("session established", "principal", session.PrincipalID)
	return session, nil
}

// Logout invalidates the backend session and clears local state. The
// local session is dropped even when the backend call fails; a dead
// backend must not pin a console login.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.lastErr = nil
	m.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := m.client.WithToken(session.Token).Logout(ctx); err != nil {
		m.logger.Warn("backend logout failed, session dropped locally", "error", err)
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Refresh exchanges the held token for a fresh one. A 401 means the
// session is simply gone: local state is cleared without recording an
// error. Any other failure keeps the session and records the error.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()
	if session == nil {
		return ErrNotAuthenticated
	}

	m.setLoading(true)
	defer m.setLoading(false)

	fresh, err := m.client.WithToken(session.Token).RefreshSession(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		if api.IsUnauthorized(err) {
			m.session = nil
			m.lastErr = nil
			m.logger.Info("session expired on refresh", "principal", session.PrincipalID)
			return nil
		}
		m.lastErr = err
		return fmt.Errorf("refresh: %w", err)
	}
	m.session = fresh
	m.lastErr = nil
	return nil
}

// Current returns the held session, or nil.
func (m *Manager) Current() *api.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Authenticated reports whether a session is held.
func (m *Manager) Authenticated() bool {
	return m.Current() != nil
}

// Loading reports whether a login or refresh is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Err returns the last recorded failure, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Client returns an API client bound to the held session token, or an
// error when no session is held.
func (m *Manager) Client() (*api.Client, error) {
	session := m.Current()
	if session == nil {
		return nil, ErrNotAuthenticated
	}
	return m.client.WithToken(session.Token), nil
}

// ExpiresWithin reports whether the held session token expires within
// d. Prefers the token's own exp claim; falls back to the session's
// ExpiresAt field when the token is not a JWT. No session counts as
// expired.
func (m *Manager) ExpiresWithin(d time.Duration) bool {
	session := m.Current()
	if session == nil {
		return true
	}
	if exp, ok := TokenExpiry(session.Token); ok {
		return time.Until(exp) < d
	}
	if !session.ExpiresAt.IsZero() {
		return time.Until(session.ExpiresAt) < d
	}
	return false
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}
