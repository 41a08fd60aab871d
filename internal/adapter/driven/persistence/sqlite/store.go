package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps the signaling database. Timestamps are stored as unix seconds
// so comparisons in SQL stay integer-only.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database file and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS calls (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			caller_id  INTEGER NOT NULL,
			callee_id  INTEGER NOT NULL,
			media_type TEXT NOT NULL DEFAULT 'audio',
			status     TEXT NOT NULL DEFAULT 'ringing',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS call_sdp (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			call_id    INTEGER NOT NULL,
			role       TEXT NOT NULL,
			sdp_type   TEXT NOT NULL,
			sdp        TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS call_ice (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			call_id         INTEGER NOT NULL,
			role            TEXT NOT NULL,
			candidate       TEXT NOT NULL,
			sdp_mid         TEXT,
			sdp_mline_index INTEGER,
			delivered       INTEGER NOT NULL DEFAULT 0,
			created_at      INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_call_sdp_lookup ON call_sdp(call_id, role, sdp_type);
		CREATE INDEX IF NOT EXISTS idx_call_ice_pending ON call_ice(call_id, role, delivered);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create signaling tables: %w", err)
	}

	// Platform tables consulted read-only: push-token directory and session
	// store. In production these are the social platform's own tables; the
	// DDL here only makes a self-contained deployment possible.
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_id               INTEGER PRIMARY KEY,
			name                  TEXT NOT NULL DEFAULT '',
			avatar                TEXT NOT NULL DEFAULT '',
			firebase_device_token TEXT,
			pushkit_token         TEXT,
			pushkit_env           TEXT,
			pushkit_bundle        TEXT
		);

		CREATE TABLE IF NOT EXISTS app_sessions (
			session_id TEXT PRIMARY KEY,
			user_id    INTEGER NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create platform tables: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Exec executes a statement without returning rows.
func (s *Store) Exec(query string, args ...any) (sql.Result, error) {
	return s.db.Exec(query, args...)
}

// QueryRow executes a query that returns a single row.
func (s *Store) QueryRow(query string, args ...any) *sql.Row {
	return s.db.QueryRow(query, args...)
}
