// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides console session and realm preference persistence

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	sealKey *[SealKeySize]byte
	logger  *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path. The
// schema is created automatically; parent directories are created if
// needed. sealKey encrypts backend tokens at rest.
func NewSQLiteStore(path string, sealKey *[SealKeySize]byte) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		sealKey: sealKey,
		logger:  logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS console_sessions (
			id TEXT PRIMARY KEY,
			token_sealed BLOB NOT NULL,
			principal_id TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_console_sessions_expires
			ON console_sessions(expires_at);

		CREATE TABLE IF NOT EXISTS realm_prefs (
			session_id TEXT PRIMARY KEY
				REFERENCES console_sessions(id) ON DELETE CASCADE,
			realm_id TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// CreateSession stores a console session with its token sealed.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *ConsoleSession) error {
	sealed, err := seal(session.Token, s.sealKey)
	if err != nil {
		return fmt.Errorf("sealing token: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO console_sessions (id, token_sealed, principal_id, display_name, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, sealed, session.PrincipalID, session.DisplayName,
		session.CreatedAt.UTC(), session.ExpiresAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateSession
		}
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession returns a live console session with its token unsealed.
// Expired sessions report ErrSessionNotFound.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*ConsoleSession, error) {
	var (
		session ConsoleSession
		sealed  []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, token_sealed, principal_id, display_name, created_at, expires_at
		FROM console_sessions WHERE id = ?`, id,
	).Scan(&session.ID, &sealed, &session.PrincipalID, &session.DisplayName,
		&session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionNotFound
	}

	token, err := open(sealed, s.sealKey)
	if err != nil {
		return nil, fmt.Errorf("unsealing token for session %s: %w", id, err)
	}
	session.Token = token
	return &session, nil
}

// DeleteSession removes a console session and, via cascade, its realm
// preference. Deleting a missing session is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes all expired sessions and returns how
// many were removed.
func (s *SQLiteStore) PurgeExpiredSessions(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM console_sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("purged expired console sessions", "count", n)
	}
	return int(n), nil
}

// SetRealmPref stores the realm choice for a session.
func (s *SQLiteStore) SetRealmPref(ctx context.Context, sessionID, realmID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO realm_prefs (session_id, realm_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET realm_id = excluded.realm_id, updated_at = excluded.updated_at`,
		sessionID, realmID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing realm preference: %w", err)
	}
	return nil
}

// GetRealmPref returns the stored realm choice for a session.
func (s *SQLiteStore) GetRealmPref(ctx context.Context, sessionID string) (string, error) {
	var realmID string
	err := s.db.QueryRowContext(ctx,
		`SELECT realm_id FROM realm_prefs WHERE session_id = ?`, sessionID,
	).Scan(&realmID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrPrefNotFound
		}
		return "", fmt.Errorf("querying realm preference: %w", err)
	}
	return realmID, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
