// ABOUTME: Realm selection state for a console session
// ABOUTME: Tracks the active realm, the accessible list, and the caller's role

package realm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/runeforge/rune-console/internal/api"
	"github.com/runeforge/rune-console/internal/cache"
)

// ReservedRealm is the administrative realm the backend keeps for
// itself. It never appears in the selectable list.
const ReservedRealm = "system"

// Selector errors
var (
	// ErrUnknownRealm is returned by Select for an id outside the
	// accessible list.
	ErrUnknownRealm = errors.New("realm not in accessible list")
	// ErrNoRealm is returned when an operation needs an active realm
	// and none is selected.
	ErrNoRealm = errors.New("no realm selected")
)

// Prefs persists the realm choice across requests for one console
// session. Implemented by the store package.
type Prefs interface {
	SetRealmPref(ctx context.Context, sessionID, realmID string) error
	GetRealmPref(ctx context.Context, sessionID string) (string, error)
}

// realmCacheTTL bounds how stale the accessible-realms list may be.
const realmCacheTTL = 30 * time.Second

// Selector tracks which realm a console session is working in. The
// accessible list comes from the backend (minus the reserved realm)
// through a short TTL cache so dashboards don't hammer the list
// endpoint.
type Selector struct {
	client    *api.Client // token-bound
	prefs     Prefs
	sessionID string
	reserved  string
	realms    *cache.Cache[[]api.Realm]
	logger    *slog.Logger

	mu        sync.Mutex
	available []api.Realm
	active    string
}

// Option configures a Selector.
type Option func(*Selector)

// WithReserved overrides the reserved administrative realm id.
func WithReserved(id string) Option {
	return func(s *Selector) { s.reserved = id }
}

// WithCache shares a realm-list cache across selectors.
func WithCache(c *cache.Cache[[]api.Realm]) Option {
	return func(s *Selector) { s.realms = c }
}

// NewSelector creates a selector for one console session. client must
// already be bound to the session token.
func NewSelector(client *api.Client, prefs Prefs, sessionID string, opts ...Option) *Selector {
	s := &Selector{
		client:    client,
		prefs:     prefs,
		sessionID: sessionID,
		reserved:  ReservedRealm,
		logger:    slog.Default().With("component", "realm"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.realms == nil {
		s.realms = cache.New[[]api.Realm](realmCacheTTL, 256)
	}
	return s
}

// Refresh repopulates the accessible list from the backend and restores
// the persisted selection when it is still accessible. A persisted
// realm the session lost access to is silently dropped.
func (s *Selector) Refresh(ctx context.Context) error {
	realms, err := s.fetchRealms(ctx)
	if err != nil {
		return fmt.Errorf("refreshing realms: %w", err)
	}

	accessible := make([]api.Realm, 0, len(realms))
	for _, r := range realms {
		if r.ID == s.reserved {
			continue
		}
		accessible = append(accessible, r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = accessible

	if s.active != "" && !containsRealm(accessible, s.active) {
		s.logger.Info("active realm no longer accessible, clearing", "realm", s.active)
		s.active = ""
	}
	if s.active == "" {
		if persisted, err := s.prefs.GetRealmPref(ctx, s.sessionID); err == nil && containsRealm(accessible, persisted) {
			s.active = persisted
		}
	}
	return nil
}

func (s *Selector) fetchRealms(ctx context.Context) ([]api.Realm, error) {
	key := "realms:" + s.sessionID
	if cached, ok := s.realms.Get(key); ok {
		return cached, nil
	}
	realms, err := s.client.ListRealms(ctx)
	if err != nil {
		return nil, err
	}
	s.realms.Put(key, realms)
	return realms, nil
}

// Select makes the given realm active and persists the choice. Ids
// outside the accessible list are rejected with ErrUnknownRealm.
func (s *Selector) Select(ctx context.Context, realmID string) error {
	s.mu.Lock()
	if !containsRealm(s.available, realmID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownRealm, realmID)
	}
	s.active = realmID
	s.mu.Unlock()

	if err := s.prefs.SetRealmPref(ctx, s.sessionID, realmID); err != nil {
		// Selection still applies for this session; only persistence
		// failed.
		s.logger.Warn("failed to persist realm choice", "realm", realmID, "error", err)
		return fmt.Errorf("persisting realm choice: %w", err)
	}
	return nil
}

// Active returns the active realm id, or "".
func (s *Selector) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Available returns the realms this session may select.
func (s *Selector) Available() []api.Realm {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Realm, len(s.available))
	copy(out, s.available)
	return out
}

// Role returns the caller's role string in the active realm, or ""
// when no realm is active.
func (s *Selector) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.available {
		if r.ID == s.active {
			return r.Role
		}
	}
	return ""
}

// Client returns the session client scoped to the active realm.
func (s *Selector) Client() (*api.Client, error) {
	active := s.Active()
	if active == "" {
		return nil, ErrNoRealm
	}
	return s.client.WithRealm(active), nil
}

// Invalidate drops the cached realm list so the next Refresh refetches,
// e.g. right after creating a realm.
func (s *Selector) Invalidate() {
	s.realms.Invalidate("realms:" + s.sessionID)
}

func containsRealm(realms []api.Realm, id string) bool {
	for _, r := range realms {
		if r.ID == id {
			return true
		}
	}
	return false
}
