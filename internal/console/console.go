// ABOUTME: Web console package for rune backend administration
// ABOUTME: Provides login, session management, realm switching, and console routes

package console

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/runeforge/rune-console/internal/api"
	"github.com/runeforge/rune-console/internal/cache"
	"github.com/runeforge/rune-console/internal/realm"
	"github.com/runeforge/rune-console/internal/store"
)

const (
	// SessionCookieName is the name of the console session cookie
	SessionCookieName = "rune_console_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "rune_console_csrf"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const sessionContextKey contextKey = "console_session"
const csrfContextKey contextKey = "csrf_token"

// Config holds console behavior configuration
type Config struct {
	// BaseURL is the external URL for generating links
	BaseURL string
	// SessionDuration is how long console sessions last
	SessionDuration time.Duration
	// ReservedRealm is hidden from the realm switcher
	ReservedRealm string
}

// Console handles console routes, sessions, and wizard flows.
type Console struct {
	store   store.Store
	backend *api.Client
	config  Config
	logger  *slog.Logger
	flows   *flowRegistry
	toasts  *toastHub
	realms  *cache.Cache[[]api.Realm]
}

// New creates a new Console handler. backend is the unbound base
// client; per-session clients are derived from it.
func New(st store.Store, backend *api.Client, cfg Config) *Console {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = 7 * 24 * time.Hour
	}
	if cfg.ReservedRealm == "" {
		cfg.ReservedRealm = realm.ReservedRealm
	}
	return &Console{
		store:   st,
		backend: backend,
		config:  cfg,
		logger:  slog.Default().With("component", "console"),
		flows:   newFlowRegistry(),
		toasts:  newToastHub(),
		realms:  cache.New[[]api.Realm](30*time.Second, 256),
	}
}

// Close cleans up console resources.
func (c *Console) Close() {
	c.realms.Close()
}

// RegisterRoutes registers all console routes on the given mux.
func (c *Console) RegisterRoutes(mux *http.ServeMux) {
	// Public routes (no session required)
	mux.HandleFunc("GET /console/login", c.handleLoginPage)
	mux.HandleFunc("POST /console/login", c.handleLogin)

	// Protected routes
	mux.HandleFunc("GET /console/", c.requireSession(c.handleDashboard))
	mux.HandleFunc("GET /console", c.requireSession(c.handleDashboard))
	mux.HandleFunc("POST /console/logout", c.requireSession(c.handleLogout))
	mux.HandleFunc("POST /console/realm", c.requireSession(c.handleRealmSelect))

	// Runes
	mux.HandleFunc("GET /console/runes", c.requireSession(c.handleRunesPage))
	mux.HandleFunc("GET /console/runes/list", c.requireSession(c.handleRunesList))
	mux.HandleFunc("GET /console/runes/new", c.requireSession(c.handleRuneNewPage))
	mux.HandleFunc("POST /console/runes", c.requireSession(c.handleRuneCreate))
	mux.HandleFunc("GET /console/runes/{id}", c.requireSession(c.handleRuneDetail))
	mux.HandleFunc("POST /console/runes/{id}/transition", c.requireSession(c.handleRuneTransition))
	mux.HandleFunc("POST /console/runes/{id}/delete", c.requireSession(c.handleRuneDelete))

	// Onboarding wizard
	mux.HandleFunc("POST /console/onboarding", c.requireSession(c.handleOnboardingStart))
	mux.HandleFunc("GET /console/onboarding/{flow}", c.requireSession(c.handleFlowPage))
	mux.HandleFunc("POST /console/onboarding/{flow}/advance", c.requireSession(c.handleFlowAdvance))
	mux.HandleFunc("POST /console/onboarding/{flow}/back", c.requireSession(c.handleFlowBack))

	// Account creation wizard
	mux.HandleFunc("POST /console/accounts/new", c.requireSession(c.handleAccountFlowStart))
	mux.HandleFunc("GET /console/accounts/flow/{flow}", c.requireSession(c.handleFlowPage))
	mux.HandleFunc("POST /console/accounts/flow/{flow}/advance", c.requireSession(c.handleFlowAdvance))
	mux.HandleFunc("POST /console/accounts/flow/{flow}/back", c.requireSession(c.handleFlowBack))

	c.logger.Info("console routes registered")
}

// requireSession wraps a handler to require a live console session.
func (c *Console) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := c.sessionFromRequest(r)
		if err != nil {
			http.Redirect(w, r, "/console/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next(w, r.WithContext(ctx))
	}
}

// sessionFromRequest resolves the console session from the cookie.
func (c *Console) sessionFromRequest(r *http.Request) (*store.ConsoleSession, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, err
	}
	return c.store.GetSession(r.Context(), cookie.Value)
}

// sessionFromContext retrieves the console session placed by requireSession.
func sessionFromContext(r *http.Request) *store.ConsoleSession {
	session, _ := r.Context().Value(sessionContextKey).(*store.ConsoleSession)
	return session
}

// client returns an API client bound to the session's backend token.
func (c *Console) client(session *store.ConsoleSession) *api.Client {
	return c.backend.WithToken(session.Token)
}

// selector builds the realm selector for a session, sharing the
// console-wide realm-list cache.
func (c *Console) selector(session *store.ConsoleSession) *realm.Selector {
	return realm.NewSelector(c.client(session), c.store, session.ID,
		realm.WithReserved(c.config.ReservedRealm),
		realm.WithCache(c.realms))
}

// notifier returns the toast sink for a session.
func (c *Console) notifier(session *store.ConsoleSession) Notifier {
	return &sessionNotifier{hub: c.toasts, sessionID: session.ID}
}

// getCSRFToken retrieves the CSRF token from the request context.
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context.
func (c *Console) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		c.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/console",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from form against cookie.
func (c *Console) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		// Also check header for htmx requests
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

// handleLoginPage renders the login page.
func (c *Console) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to dashboard
	if _, err := c.sessionFromRequest(r); err == nil {
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
		return
	}

	r, csrfToken := c.ensureCSRFToken(w, r)
	c.renderLoginPage(w, "", csrfToken)
}

// handleLogin exchanges a submitted PAT for a backend session and binds
// it to a new console session cookie.
func (c *Console) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_, csrfToken := c.ensureCSRFToken(w, r)
		c.renderLoginPage(w, "Invalid form data", csrfToken)
		return
	}

	if !c.validateCSRF(r) {
		_, csrfToken := c.ensureCSRFToken(w, r)
		c.renderLoginPage(w, "Invalid request, please try again", csrfToken)
		return
	}

	pat := r.FormValue("token")
	if pat == "" {
		_, csrfToken := c.ensureCSRFToken(w, r)
		c.renderLoginPage(w, "Access token required", csrfToken)
		return
	}

	backendSession, err := c.backend.Login(r.Context(), pat)
	if err != nil {
		msg := "An error occurred"
		if api.IsUnauthorized(err) {
			msg = "Invalid access token"
		} else if api.IsStatus(err, 0) {
			msg = "Backend unreachable"
		}
		c.logger.Warn("login failed", "error", err)
		_, csrfToken := c.ensureCSRFToken(w, r)
		c.renderLoginPage(w, msg, csrfToken)
		return
	}

	if err := c.createSession(w, r, backendSession); err != nil {
		c.logger.Error("failed to create console session", "error", err)
		_, csrfToken := c.ensureCSRFToken(w, r)
		c.renderLoginPage(w, "An error occurred", csrfToken)
		return
	}

	c.logger.Info("console login", "principal", backendSession.PrincipalID)
	http.Redirect(w, r, "/console/", http.StatusSeeOther)
}

// createSession persists a console session and sets the cookie.
func (c *Console) createSession(w http.ResponseWriter, r *http.Request, backendSession *api.Session) error {
	session := &store.ConsoleSession{
		ID:          uuid.New().String(),
		Token:       backendSession.Token,
		PrincipalID: backendSession.PrincipalID,
		DisplayName: backendSession.DisplayName,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(c.config.SessionDuration),
	}
	// The backend token may expire before the console cookie would.
	if !backendSession.ExpiresAt.IsZero() && backendSession.ExpiresAt.Before(session.ExpiresAt) {
		session.ExpiresAt = backendSession.ExpiresAt
	}

	if err := c.store.CreateSession(r.Context(), session); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/console",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// handleLogout invalidates the backend session and clears local state.
func (c *Console) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		// Validate CSRF - but don't block logout if invalid (security trade-off)
		if !c.validateCSRF(r) {
			c.logger.Warn("logout request with invalid CSRF token")
		}
	}

	session := sessionFromContext(r)
	if session != nil {
		if err := c.client(session).Logout(r.Context()); err != nil {
			c.logger.Warn("backend logout failed, dropping console session anyway", "error", err)
		}
		_ = c.store.DeleteSession(r.Context(), session.ID)
		c.toasts.Forget(session.ID)
	}

	// Clear session cookie
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/console",
		MaxAge:   -1,
		HttpOnly: true,
	})

	// Clear CSRF cookie
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/console",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.Redirect(w, r, "/console/login", http.StatusSeeOther)
}

// handleDashboard renders the main console dashboard.
func (c *Console) handleDashboard(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	r, csrfToken := c.ensureCSRFToken(w, r)

	sel := c.selector(session)
	if err := sel.Refresh(r.Context()); err != nil {
		c.logger.Error("failed to load realms", "error", err)
		c.toasts.Push(session.ID, ToastError, "Failed to load realms: "+errMessage(err))
	}

	var runes []api.Rune
	if client, err := sel.Client(); err == nil {
		runes, err = client.ListRunes(r.Context(), api.RuneFilter{Limit: 10})
		if err != nil {
			c.logger.Error("failed to list runes", "error", err)
			runes = nil // Show empty state on error
		}
	}

	c.renderDashboard(w, session, sel, runes, c.toasts.Drain(session.ID), csrfToken)
}

// handleRealmSelect switches the active realm for this session.
func (c *Console) handleRealmSelect(w http.ResponseWriter, r *http.Request) {
	if !c.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	realmID := r.FormValue("realm_id")
	if realmID == "" {
		http.Error(w, "Realm ID required", http.StatusBadRequest)
		return
	}

	session := sessionFromContext(r)
	sel := c.selector(session)
	if err := sel.Refresh(r.Context()); err != nil {
		http.Error(w, "Failed to load realms", http.StatusBadGateway)
		return
	}

	if err := sel.Select(r.Context(), realmID); err != nil {
		if errors.Is(err, realm.ErrUnknownRealm) {
			http.Error(w, "Realm not available", http.StatusForbidden)
			return
		}
		// Selection applied but persistence failed; carry on with a warning.
		c.toasts.Push(session.ID, ToastError, "Realm choice may not survive this session")
	}

	c.logger.Info("realm selected", "realm", realmID, "principal", session.PrincipalID)
	http.Redirect(w, r, "/console/", http.StatusSeeOther)
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
