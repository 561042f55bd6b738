// Package store provides the shared backing store used by the cache and the
// quota counter. The default implementation is a SQLite file that several
// brain processes on one host can share; Memory offers the same contract
// in-process.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database connection holding cache entries and counters.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

// DefaultPath returns the path to the shared store database.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "brain", "store.db")
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled so readers in other processes are not blocked.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps PRAGMAs applied and serializes writers.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &DB{
		conn: conn,
		path: path,
		now:  time.Now,
	}, nil
}

// OpenDefault opens the store at DefaultPath and applies migrations.
func OpenDefault() (*DB, error) {
	return OpenMigrated(DefaultPath())
}

// OpenMigrated opens the store at path and applies migrations.
func OpenMigrated(path string) (*DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1CacheEntries},
		{2, migrationV2Counters},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1CacheEntries = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	inserted_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
`

const migrationV2Counters = `
CREATE TABLE IF NOT EXISTS counters (
	key TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_counters_expires_at ON counters(expires_at);
`

// Get returns the value stored under key. Expired rows are reported as absent.
func (db *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var value []byte
	err := db.conn.QueryRowContext(ctx,
		"SELECT value FROM cache_entries WHERE key = ? AND expires_at > ?",
		key, db.now().UnixNano(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, unavailable(err))
	}
	return value, true, nil
}

// Set stores value under key until ttl elapses.
func (db *DB) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("set %s: ttl must be positive", key)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, inserted_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			inserted_at = excluded.inserted_at,
			expires_at = excluded.expires_at
	`, key, value, now.UnixNano(), now.Add(ttl).UnixNano())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, unavailable(err))
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, unavailable(err))
	}
	return nil
}

// IncrWithTTL atomically increments the counter under key and returns the new
// value. A missing or expired counter restarts at 1. Every increment pushes
// the expiry to now+ttl.
func (db *DB) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("incr %s: ttl must be positive", key)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now()
	var count int64
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO counters (key, count, expires_at) VALUES (?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			count = CASE WHEN counters.expires_at <= ? THEN 1 ELSE counters.count + 1 END,
			expires_at = excluded.expires_at
		RETURNING count
	`, key, now.Add(ttl).UnixNano(), now.UnixNano()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, unavailable(err))
	}
	return count, nil
}

// Count returns the current value of the counter under key, or 0.
func (db *DB) Count(ctx context.Context, key string) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT count FROM counters WHERE key = ? AND expires_at > ?",
		key, db.now().UnixNano(),
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", key, unavailable(err))
	}
	return count, nil
}

// Sweep deletes expired cache entries and counters and returns how many rows
// were removed.
func (db *DB) Sweep(ctx context.Context) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now().UnixNano()
	var total int64
	for _, table := range []string{"cache_entries", "counters"} {
		res, err := db.conn.ExecContext(ctx, "DELETE FROM "+table+" WHERE expires_at <= ?", now)
		if err != nil {
			return total, fmt.Errorf("sweep %s: %w", table, unavailable(err))
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// unavailable tags err as a store outage unless it is a context error.
func unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
