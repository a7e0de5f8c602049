// ABOUTME: Session lifecycle operations against the backend
// ABOUTME: Login with a PAT, logout, refresh, and identity lookup

package api

import (
	"context"
	"net/http"
	"time"
)

// Session is the credential state returned by the backend on login and
// refresh. Token is opaque to the console beyond its expiry claim.
type Session struct {
	Token       string    `json:"token"`
	PrincipalID string    `json:"principal_id"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Identity describes the authenticated principal as the backend sees
// it, including per-realm role assignments.
type Identity struct {
	PrincipalID string            `json:"principal_id"`
	DisplayName string            `json:"display_name"`
	Status      string            `json:"status"`
	RealmRoles  map[string]string `json:"realm_roles"`
}

// Login exchanges a personal access token for a session.
func (c *Client) Login(ctx context.Context, pat string) (*Session, error) {
	req := struct {
		Token string `json:"token"`
	}{Token: pat}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/session", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Logout invalidates the bound session token on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/session", nil, nil)
}

// RefreshSession exchanges the bound token for a fresh one.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/session/refresh", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Me returns the authenticated principal's identity and realm roles.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/v1/me", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}
