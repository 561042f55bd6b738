// Package cache provides a namespaced TTL cache over either the shared
// backing store or a bounded in-process LRU. Caching is never a correctness
// dependency: every failure degrades to a miss or a no-op.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/misterprompt/brain-ai/internal/store"
)

// Namespace separates cache keys by purpose.
type Namespace string

const (
	NamespaceSearch Namespace = "search"
	NamespaceAPI    Namespace = "api"
	NamespaceAI     Namespace = "ai"
)

// ExpertNamespace scopes cached expert replies to one expert and session.
func ExpertNamespace(expertID, sessionID string) Namespace {
	return Namespace(fmt.Sprintf("expert:%s:%s", expertID, sessionID))
}

// Key derives the backend key for rawKey in ns.
func Key(ns Namespace, rawKey string) string {
	sum := md5.Sum([]byte(rawKey))
	return string(ns) + ":" + hex.EncodeToString(sum[:])
}

// Backend is the storage a Cache delegates to.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// BackendKind names the active backend.
type BackendKind string

const (
	BackendShared BackendKind = "shared"
	BackendLRU    BackendKind = "lru"
)

// Options tune a single cache operation.
type Options struct {
	// Sensitive bypasses the cache entirely.
	Sensitive bool
}

// Cache is a namespaced TTL cache.
type Cache struct {
	backend   Backend
	kind      BackendKind
	lru       *LRU
	opTimeout time.Duration
}

// Config holds cache construction settings.
type Config struct {
	// Capacity bounds the in-process LRU fallback.
	Capacity int
	// OpTimeout bounds each backend round trip.
	OpTimeout time.Duration
}

// New creates a Cache on the shared store when it is reachable, and on a
// bounded LRU otherwise.
func New(ctx context.Context, shared store.KV, cfg Config) *Cache {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 250 * time.Millisecond
	}

	c := &Cache{opTimeout: cfg.OpTimeout}
	if shared != nil && reachable(ctx, shared, cfg.OpTimeout) {
		c.backend = shared
		c.kind = BackendShared
		return c
	}

	if shared != nil {
		log.Printf("[cache] shared store unreachable, using in-process LRU (capacity %d)", capacityOr(cfg.Capacity))
	}
	c.lru = NewLRU(cfg.Capacity)
	c.backend = c.lru
	c.kind = BackendLRU
	return c
}

// NewWithBackend creates a Cache over an explicit backend.
func NewWithBackend(b Backend, opTimeout time.Duration) *Cache {
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	c := &Cache{backend: b, kind: BackendShared, opTimeout: opTimeout}
	if l, ok := b.(*LRU); ok {
		c.lru = l
		c.kind = BackendLRU
	}
	return c
}

func reachable(ctx context.Context, kv store.KV, timeout time.Duration) bool {
	p, ok := kv.(store.Pinger)
	if !ok {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Ping(ctx) == nil
}

func capacityOr(n int) int {
	if n <= 0 {
		return DefaultCapacity
	}
	return n
}

// Backend reports which backend is active.
func (c *Cache) Backend() BackendKind {
	return c.kind
}

// Stats returns LRU counters, or false when the shared backend is active.
func (c *Cache) Stats() (LRUStats, bool) {
	if c.lru == nil {
		return LRUStats{}, false
	}
	return c.lru.Stats(), true
}

// Get looks up rawKey in ns. Any backend error is reported as a miss.
func (c *Cache) Get(ctx context.Context, ns Namespace, rawKey string, opts ...Options) ([]byte, bool) {
	if c == nil || sensitive(opts) {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	v, ok, err := c.backend.Get(ctx, Key(ns, rawKey))
	if err != nil {
		log.Printf("[cache] get %s failed: %v", ns, err)
		return nil, false
	}
	return v, ok
}

// Set stores value under rawKey in ns for ttl. Failures are logged and
// otherwise ignored.
func (c *Cache) Set(ctx context.Context, ns Namespace, rawKey string, value []byte, ttl time.Duration, opts ...Options) {
	if c == nil || sensitive(opts) || ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.backend.Set(ctx, Key(ns, rawKey), value, ttl); err != nil {
		log.Printf("[cache] set %s failed: %v", ns, err)
	}
}

func sensitive(opts []Options) bool {
	for _, o := range opts {
		if o.Sensitive {
			return true
		}
	}
	return false
}
