package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnavailable is returned when the backing store cannot be reached.
// Callers treat it as non-fatal: caches miss and quotas fail open.
var ErrUnavailable = errors.New("store unavailable")

// KV is a byte store with per-key expiry.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Counter is an atomic increment-with-ttl store.
type Counter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Count(ctx context.Context, key string) (int64, error)
}

// Pinger reports backing store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Migrator handles database schema migrations.
type Migrator interface {
	Migrate() error
}

// BackingStore is everything the cache and quota counter need from a shared
// store.
type BackingStore interface {
	io.Closer
	Pinger
	KV
	Counter
}

// Compile-time verification that both stores implement the interfaces.
var (
	_ BackingStore = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ BackingStore = (*Memory)(nil)
)
