// ABOUTME: Tests for the realm selector
// ABOUTME: Covers reserved-realm filtering, selection validation, and persistence

package realm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runeforge/rune-console/internal/api"
)

// memPrefs is an in-memory Prefs implementation.
type memPrefs struct {
	prefs map[string]string
	fail  bool
}

func newMemPrefs() *memPrefs {
	return &memPrefs{prefs: make(map[string]string)}
}

func (p *memPrefs) SetRealmPref(ctx context.Context, sessionID, realmID string) error {
	if p.fail {
		return assert.AnError
	}
	p.prefs[sessionID] = realmID
	return nil
}

func (p *memPrefs) GetRealmPref(ctx context.Context, sessionID string) (string, error) {
	if id, ok := p.prefs[sessionID]; ok {
		return id, nil
	}
	return "", assert.AnError
}

func realmBackend(t *testing.T, calls *atomic.Int32, realms []api.Realm) *api.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]api.Realm{"realms": realms})
	}))
	t.Cleanup(srv.Close)
	return api.New(srv.URL, srv.Client()).WithToken("sess-1")
}

var testRealms = []api.Realm{
	{ID: "system", Name: "System", Role: "owner"},
	{ID: "realm-a", Name: "Alpha", Role: "admin"},
	{ID: "realm-b", Name: "Beta", Role: "member"},
}

func TestRefresh_ExcludesReservedRealm(t *testing.T) {
	s := NewSelector(realmBackend(t, nil, testRealms), newMemPrefs(), "sid-1")
	require.NoError(t, s.Refresh(context.Background()))

	available := s.Available()
	require.Len(t, available, 2)
	for _, r := range available {
		assert.NotEqual(t, ReservedRealm, r.ID)
	}
}

func TestSelect_RejectsUnknown(t *testing.T) {
	s := NewSelector(realmBackend(t, nil, testRealms), newMemPrefs(), "sid-1")
	require.NoError(t, s.Refresh(context.Background()))

	err := s.Select(context.Background(), "realm-z")
	require.ErrorIs(t, err, ErrUnknownRealm)
	assert.Empty(t, s.Active())

	// The reserved realm is not selectable either.
	err = s.Select(context.Background(), "system")
	require.ErrorIs(t, err, ErrUnknownRealm)
}

func TestSelect_PersistsChoice(t *testing.T) {
	prefs := newMemPrefs()
	s := NewSelector(realmBackend(t, nil, testRealms), prefs, "sid-1")
	require.NoError(t, s.Refresh(context.Background()))

	require.NoError(t, s.Select(context.Background(), "realm-a"))
	assert.Equal(t, "realm-a", s.Active())
	assert.Equal(t, "realm-a", prefs.prefs["sid-1"])
	assert.Equal(t, "admin", s.Role())
}

func TestSelect_PersistFailureKeepsSelection(t *testing.T) {
	prefs := newMemPrefs()
	prefs.fail = true
	s := NewSelector(realmBackend(t, nil, testRealms), prefs, "sid-1")
	require.NoError(t, s.Refresh(context.Background()))

	err := s.Select(context.Background(), "realm-b")
	require.Error(t, err)
	assert.Equal(t, "realm-b", s.Active(), "selection applies even when persistence fails")
}

func TestRefresh_RestoresPersistedChoice(t *testing.T) {
	prefs := newMemPrefs()
	prefs.prefs["sid-1"] = "realm-b"
	s := NewSelector(realmBackend(t, nil, testRealms), prefs, "sid-1")
	require.NoError(t, s.Refresh(context.Background()))

	assert.Equal(t, "realm-b", s.Active())
	assert.Equal(t, "member", s.Role())
}

func TestRefresh_DropsInaccessiblePersistedChoice(t *testing.T) {
	prefs := newMemPrefs()
	prefs.prefs["sid-1"] = "realm-gone"
	s := NewSelector(realmBackend(t, nil, testRealms), prefs, "sid-1")
	require.NoError(t, s.Refresh(context.Background()))

	assert.Empty(t, s.Active())
}

func TestRefresh_UsesCache(t *testing.T) {
	var calls atomic.Int32
	s := NewSelector(realmBackend(t, &calls, testRealms), newMemPrefs(), "sid-1")

	require.NoError(t, s.Refresh(context.Background()))
	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, int32(1), calls.Load())

	s.Invalidate()
	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_RequiresActiveRealm(t *testing.T) {
	s := NewSelector(realmBackend(t, nil, testRealms), newMemPrefs(), "sid-1")
	require.NoError(t, s.Refresh(context.Background()))

	_, err := s.Client()
	require.ErrorIs(t, err, ErrNoRealm)

	require.NoError(t, s.Select(context.Background(), "realm-a"))
	c, err := s.Client()
	require.NoError(t, err)
	assert.NotNil(t, c)
}
