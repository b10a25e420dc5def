package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is stored in PRAGMA user_version after a successful migrate.
const schemaVersion = 1

// DB is the capture index database. Writers take Lock, readers RLock; the
// driver itself gets a single connection.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New opens (or creates) the index at dbPath in WAL mode and applies the schema.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// migrate creates the index tables when missing.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS captures (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		state TEXT NOT NULL,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		filesize INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		filename TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS split_runs (
		id TEXT PRIMARY KEY,
		ratio REAL NOT NULL,
		train_count INTEGER NOT NULL,
		val_count INTEGER NOT NULL,
		skipped INTEGER NOT NULL DEFAULT 0,
		descriptor TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_captures_state ON captures(state, seq);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	CREATE INDEX IF NOT EXISTS idx_split_runs_created_at ON split_runs(created_at);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}
	_, err := db.conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	return err
}

// Version reports the schema version recorded in the database file.
func (db *DB) Version() (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var v int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the connection to the repositories of this package.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Lock() { db.mu.Lock() }
func (db *DB) Unlock() { db.mu.Unlock() }
func (db *DB) RLock() { db.mu.RLock() }
func (db *DB) RUnlock() { db.mu.RUnlock() }
