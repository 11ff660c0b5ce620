// Package sqlite implements the repository interfaces on SQLite.
//
// WHY SQLITE FOR A DOCUMENT-SHAPED MODEL?
// The diary's records are document-shaped: a memory embeds a list of
// locations and a list of files, and everything is addressed by composite
// natural keys rather than foreign keys. Rather than normalizing the embeds
// into join tables nothing ever queries independently, the embedded lists are
// stored as JSON TEXT columns and rewritten whole — the same single-document
// write granularity the data model assumes. List mutations ($-style push,
// pull, and positional set) are a read-modify-write inside one transaction,
// which keeps each operation atomic in isolation; multi-step flows above this
// layer are deliberately not transactional across calls.
//
// modernc.org/sqlite is a pure Go translation of SQLite — no CGo, no C
// toolchain, works everywhere Go compiles.
package sqlite

import (
	"database/sql"
	"fmt"

	// Blank import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces. The server owns the lifecycle: New opens it, Close releases it
// on shutdown.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an immediate connection so a bad path surfaces here, not on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — this is a web
	// server, requests overlap.
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

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// latitude/longitude are REAL: every input path coerces to float64
	// before touching this table, so "48.8566" and 48.8566 always compare
	// equal in the composite-key WHERE clauses.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS locations (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			latitude    REAL NOT NULL,
			longitude   REAL NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			owner_email TEXT NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_locations_owner ON locations(owner_email);
	`)
	if err != nil {
		return fmt.Errorf("creating locations table: %w", err)
	}

	// date is the plain "YYYY-MM-DD" string: it is a calendar date with no
	// time component, and it must round-trip byte-identical to clients.
	// locations and files hold the embedded JSON lists.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS memories (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			date        TEXT NOT NULL,
			text        TEXT NOT NULL,
			owner_email TEXT NOT NULL,
			locations   TEXT NOT NULL DEFAULT '[]',
			files       TEXT NOT NULL DEFAULT '[]',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_memories_owner ON memories(owner_email);
	`)
	if err != nil {
		return fmt.Errorf("creating memories table: %w", err)
	}

	return nil
}
