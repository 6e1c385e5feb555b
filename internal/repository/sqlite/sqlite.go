// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// the SQLite sources — works everywhere Go works.
//
// The database is a single file (or ":memory:" in tests). WAL mode allows
// concurrent reads while a write is in progress, and foreign keys are turned
// on so deleting a user cascades to their connections and analytics rows —
// SQLite ships with both off for backwards compatibility.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB connection pool. Repository methods hang off the
// per-entity stores returned by Users(), Connections(), and Analytics(),
// which all share this pool.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath, applies the pragmas, and runs migrations.
//
// dbPath examples:
//   - "data/linkvault.db" → file-based, persistent
//   - ":memory:"          → in-memory, gone on close (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection, not a pool. PRAGMAs apply per connection, a pooled
	// ":memory:" database would be a different empty database on every
	// connection, and SQLite serializes writers anyway.
	conn.SetMaxOpenConns(1)

	// sql.Open doesn't touch the file; Ping forces a real connection so a
	// bad path surfaces here instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the user store backed by this pool.
func (db *DB) Users() *UserStore { return &UserStore{conn: db.conn} }

// Connections returns the connection store backed by this pool.
func (db *DB) Connections() *ConnectionStore { return &ConnectionStore{conn: db.conn} }

// Analytics returns the analytics store backed by this pool.
func (db *DB) Analytics() *AnalyticsStore { return &AnalyticsStore{conn: db.conn} }

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this
// idempotent — safe to run on every startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id             TEXT PRIMARY KEY,
			email          TEXT NOT NULL UNIQUE,
			password_hash  TEXT,
			github_id      TEXT UNIQUE,
			first_name     TEXT NOT NULL,
			last_name      TEXT NOT NULL DEFAULT '',
			bio            TEXT,
			website        TEXT,
			location       TEXT,
			title          TEXT,
			company        TEXT,
			avatar_url     TEXT,
			public_profile INTEGER NOT NULL DEFAULT 1,
			show_email     INTEGER NOT NULL DEFAULT 0,
			show_location  INTEGER NOT NULL DEFAULT 1,
			created_at     DATETIME NOT NULL,
			updated_at     DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// UNIQUE(user_id, platform): at most one connection per platform per
	// user. The ON DELETE CASCADE makes account deletion take the
	// connections with it.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS connections (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			platform      TEXT NOT NULL,
			username      TEXT NOT NULL,
			url           TEXT NOT NULL,
			is_active     INTEGER NOT NULL DEFAULT 1,
			metadata      TEXT NOT NULL DEFAULT '{}',
			access_token  TEXT,
			refresh_token TEXT,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL,
			UNIQUE(user_id, platform)
		);
		CREATE INDEX IF NOT EXISTS idx_connections_user_id ON connections(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating connections table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS analytics (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			event_type TEXT NOT NULL,
			platform   TEXT,
			visitor_ip TEXT,
			user_agent TEXT,
			referrer   TEXT,
			metadata   TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_analytics_user_created
			ON analytics(user_id, event_type, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating analytics table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. modernc.org/sqlite doesn't export a typed error for this, so we
// match the stable message text the SQLite core produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
