package store

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	count     int64
	expiresAt time.Time
}

// Memory is an in-process BackingStore. It is unbounded; use it for a single
// process or tests. The bounded cache fallback lives in the cache package.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]memEntry
	counters map[string]memEntry
	now      func() time.Time
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		entries:  make(map[string]memEntry),
		counters: make(map[string]memEntry),
		now:      time.Now,
	}
}

// SetClock replaces the clock used for expiry checks.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.entries[key] = memEntry{value: v, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.counters[key]
	if !ok || !now.Before(e.expiresAt) {
		e = memEntry{}
	}
	e.count++
	e.expiresAt = now.Add(ttl)
	m.counters[key] = e
	return e.count, nil
}

func (m *Memory) Count(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.counters[key]
	if !ok || !m.now().Before(e.expiresAt) {
		return 0, nil
	}
	return e.count, nil
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close releases nothing; it exists to satisfy BackingStore.
func (m *Memory) Close() error { return nil }
