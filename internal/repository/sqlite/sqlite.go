// Package sqlite implements the repository interfaces on top of SQLite.
//
// The database is embedded — a single file, no separate server. We use
// modernc.org/sqlite (a pure Go translation of SQLite) rather than
// mattn/go-sqlite3 so the binary builds without CGo and cross-compiles
// anywhere Go does.
//
// All access goes through database/sql. Multi-step mutations (removing a
// connection, deleting an account, deleting a post with its likes, the
// first-login GitHub sync) run inside a single transaction; there are no
// multi-commit operations anywhere in this package.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. One instance is created at startup by
// server.New and closed on shutdown. The typed accessors below expose the
// per-aggregate repositories, all sharing the same pool.
type DB struct {
	conn *sql.DB
}

// UserDB implements repository.UserRepository.
type UserDB struct{ *DB }

// PostDB implements repository.PostRepository.
type PostDB struct{ *DB }

// ConnectionDB implements repository.ConnectionRepository.
type ConnectionDB struct{ *DB }

// Users returns the user repository view of this database.
func (db *DB) Users() *UserDB { return &UserDB{db} }

// Posts returns the post repository view of this database.
func (db *DB) Posts() *PostDB { return &PostDB{db} }

// Connections returns the connection-edge repository view of this database.
func (db *DB) Connections() *ConnectionDB { return &ConnectionDB{db} }

// New opens the SQLite database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database (tests).
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — needed
	// because every HTTP request checks out a connection from the pool.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Referential integrity is off by default in SQLite.
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

// Close closes the connection pool. Always defer this after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps this safe to
// run on every startup.
//
// Deletion order is enforced in code (likes → posts → edges → user) inside
// transactions rather than with ON DELETE CASCADE, so the dependency chain
// stays visible at the call sites that need it.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER,
			github_login  TEXT NOT NULL DEFAULT '',
			avatar_url    TEXT NOT NULL DEFAULT '',
			languages     TEXT,
			repos         TEXT,
			github_linked INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			body       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	// One row per ordered (sender, recipient) pair. accepted = 0 is a
	// pending request, 1 an active connection read symmetrically.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS connections (
			sender_id    TEXT NOT NULL REFERENCES users(id),
			recipient_id TEXT NOT NULL REFERENCES users(id),
			accepted     INTEGER NOT NULL DEFAULT 0,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (sender_id, recipient_id)
		);
		CREATE INDEX IF NOT EXISTS idx_connections_recipient
			ON connections(recipient_id);
	`)
	if err != nil {
		return fmt.Errorf("creating connections table: %w", err)
	}

	// The primary key doubles as the "a user likes a post at most once"
	// invariant — the row's existence is the sole source of truth.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS post_likes (
			user_id    TEXT NOT NULL REFERENCES users(id),
			post_id    TEXT NOT NULL REFERENCES posts(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, post_id)
		);
		CREATE INDEX IF NOT EXISTS idx_post_likes_post ON post_likes(post_id);
	`)
	if err != nil {
		return fmt.Errorf("creating post_likes table: %w", err)
	}

	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}
