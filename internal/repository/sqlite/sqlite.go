// Package sqlite implements the repository interfaces on SQLite.
//
// DOCUMENT ROWS
//
// Users are a plain table. Profiles and posts are stored as JSON documents,
// one row per document, next to the few columns needed to look them up
// (user_id) or order them (created_unix):
//
//	posts
//	┌──────────┬─────────┬──────────────┬──────────────────────────────────┐
//	│ id       │ user_id │ created_unix │ doc                              │
//	├──────────┼─────────┼──────────────┼──────────────────────────────────┤
//	│ cq3f...  │ cq1a... │ 17291...     │ {"title":..,"likes":[..],...}    │
//	└──────────┴─────────┴──────────────┴──────────────────────────────────┘
//
// Embedded lists (likes, comments, experience, education) live inside doc,
// so loading a post loads its likes and comments with it and a change to one
// of them is a single row write. The lookup columns are the source of truth
// for ownership; the document copy of the owner id is overwritten on write.
//
// OWNERSHIP
//
// profiles.user_id and posts.user_id reference users(id) with ON DELETE
// CASCADE. Deleting a user removes everything they own in one statement,
// and a document can never be inserted for a user that does not exist.
// SQLite only enforces this with PRAGMA foreign_keys=ON, which is set per
// connection; the pool is pinned to one connection so the pragma holds.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C toolchain is
// needed to build or cross-compile.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repositories.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/devconnect.db"  → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// A single connection serialises writers, which is what SQLite does
	// anyway, and keeps ":memory:" databases from splitting into one
	// database per pooled connection.
	conn.SetMaxOpenConns(1)

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

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// PingContext is Ping bounded by ctx.
func (db *DB) PingContext(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates tables and indexes. Every statement is idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			avatar_url    TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// user_id is UNIQUE: at most one profile per user.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id       TEXT PRIMARY KEY,
			user_id  TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			doc      TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_unix INTEGER NOT NULL,
			doc          TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_unix);
		CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	return nil
}
