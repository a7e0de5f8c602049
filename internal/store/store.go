// ABOUTME: Store types and errors for rune-console persistence
// ABOUTME: Defines ConsoleSession and the interfaces the console consumes

package store

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a console session does not exist
// or has expired.
var ErrSessionNotFound = errors.New("console session not found")

// ErrPrefNotFound is returned when no realm preference is stored for a
// session.
var ErrPrefNotFound = errors.New("realm preference not found")

// ErrDuplicateSession is returned when a session id collides.
var ErrDuplicateSession = errors.New("console session already exists")

// ConsoleSession links a browser cookie to a backend session token.
// The token is sealed at rest; Token is only populated on reads.
type ConsoleSession struct {
	ID          string
	Token       string
	PrincipalID string
	DisplayName string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// SessionStore persists console sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *ConsoleSession) error
	GetSession(ctx context.Context, id string) (*ConsoleSession, error)
	DeleteSession(ctx context.Context, id string) error
	PurgeExpiredSessions(ctx context.Context) (int, error)
}

// PrefStore persists per-session realm choices. It satisfies
// realm.Prefs.
type PrefStore interface {
	SetRealmPref(ctx context.Context, sessionID, realmID string) error
	GetRealmPref(ctx context.Context, sessionID string) (string, error)
}

// Store combines everything the console needs.
type Store interface {
	SessionStore
	PrefStore
	Close() error
}
