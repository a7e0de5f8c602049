// ABOUTME: Tests for the SQLite console store
// ABOUTME: Covers session lifecycle, token sealing, expiry, and realm prefs

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *[SealKeySize]byte {
	t.Helper()
	hexKey, err := GenerateSealKey()
	require.NoError(t, err)
	key, err := ParseSealKey(hexKey)
	require.NoError(t, err)
	return key
}

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "console.db"), testKey(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession(id string) *ConsoleSession {
	return &ConsoleSession{
		ID:          id,
		Token:       "backend-token-" + id,
		PrincipalID: "p-1",
		DisplayName: "Runa",
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestSession_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, testSession("sid-1")))

	got, err := s.GetSession(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "backend-token-sid-1", got.Token)
	assert.Equal(t, "p-1", got.PrincipalID)
	assert.Equal(t, "Runa", got.DisplayName)
}

func TestSession_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetSession(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSession_Duplicate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, testSession("sid-1")))
	require.ErrorIs(t, s.CreateSession(ctx, testSession("sid-1")), ErrDuplicateSession)
}

func TestSession_ExpiredReportsNotFound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	session := testSession("sid-old")
	session.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, s.CreateSession(ctx, session))

	_, err := s.GetSession(ctx, "sid-old")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSession_Delete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, testSession("sid-1")))
	require.NoError(t, s.DeleteSession(ctx, "sid-1"))

	_, err := s.GetSession(ctx, "sid-1")
	require.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting again is not an error.
	require.NoError(t, s.DeleteSession(ctx, "sid-1"))
}

func TestPurgeExpiredSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	live := testSession("sid-live")
	expired := testSession("sid-dead")
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.CreateSession(ctx, live))
	require.NoError(t, s.CreateSession(ctx, expired))

	n, err := s.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetSession(ctx, "sid-live")
	assert.NoError(t, err)
}

func TestTokenSealedAtRest(t *testing.T) {
	key := testKey(t)
	path := filepath.Join(t.TempDir(), "console.db")
	s, err := NewSQLiteStore(path, key)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.CreateSession(ctx, testSession("sid-1")))

	var sealed []byte
	err = s.db.QueryRow(`SELECT token_sealed FROM console_sessions WHERE id = 'sid-1'`).Scan(&sealed)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "backend-token", "raw token must not appear on disk")
}

func TestGetSession_WrongKeyFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.db")
	s1, err := NewSQLiteStore(path, testKey(t))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s1.CreateSession(ctx, testSession("sid-1")))
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(path, testKey(t))
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.GetSession(ctx, "sid-1")
	require.ErrorIs(t, err, ErrSealedTokenCorrupt)
}

func TestRealmPrefs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, testSession("sid-1")))

	_, err := s.GetRealmPref(ctx, "sid-1")
	require.ErrorIs(t, err, ErrPrefNotFound)

	require.NoError(t, s.SetRealmPref(ctx, "sid-1", "realm-a"))
	got, err := s.GetRealmPref(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "realm-a", got)

	// Upsert replaces the previous choice.
	require.NoError(t, s.SetRealmPref(ctx, "sid-1", "realm-b"))
	got, err = s.GetRealmPref(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "realm-b", got)
}

func TestRealmPref_CascadesWithSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, testSession("sid-1")))
	require.NoError(t, s.SetRealmPref(ctx, "sid-1", "realm-a"))
	require.NoError(t, s.DeleteSession(ctx, "sid-1"))

	_, err := s.GetRealmPref(ctx, "sid-1")
	require.ErrorIs(t, err, ErrPrefNotFound)
}

func TestParseSealKey(t *testing.T) {
	_, err := ParseSealKey("zz")
	require.Error(t, err)

	_, err = ParseSealKey("abcd")
	require.Error(t, err, "short keys rejected")

	hexKey, err := GenerateSealKey()
	require.NoError(t, err)
	key, err := ParseSealKey(hexKey)
	require.NoError(t, err)
	assert.NotNil(t, key)
}
