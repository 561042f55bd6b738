package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultCapacity is the LRU size used when none is configured.
const DefaultCapacity = 2000

type lruEntry struct {
	key        string
	value      []byte
	insertedAt time.Time
	expiresAt  time.Time
}

// LRUStats reports LRU effectiveness.
type LRUStats struct {
	Entries   int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Expired   uint64
}

// LRU is a bounded in-process cache with per-entry expiry.
type LRU struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
	now      func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

// NewLRU creates an LRU holding at most capacity entries.
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
}

// Get returns the value under key if present and not expired.
func (l *LRU) Get(ctx context.Context, key string) ([]byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.items[key]
	if !ok {
		l.misses++
		return nil, false, nil
	}
	e := el.Value.(*lruEntry)
	if !l.now().Before(e.expiresAt) {
		l.removeLocked(el)
		l.expired++
		l.misses++
		return nil, false, nil
	}
	l.order.MoveToFront(el)
	l.hits++
	return e.value, true, nil
}

// Set stores value under key, evicting the least recently used entry when full.
func (l *LRU) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if el, ok := l.items[key]; ok {
		e := el.Value.(*lruEntry)
		e.value = value
		e.insertedAt = now
		e.expiresAt = now.Add(ttl)
		l.order.MoveToFront(el)
		return nil
	}

	for l.order.Len() >= l.capacity {
		oldest := l.order.Back()
		if oldest == nil {
			break
		}
		l.removeLocked(oldest)
		l.evictions++
	}

	l.items[key] = l.order.PushFront(&lruEntry{
		key:        key,
		value:      value,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	})
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

// Stats returns a snapshot of LRU counters.
func (l *LRU) Stats() LRUStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LRUStats{
		Entries:   l.order.Len(),
		Capacity:  l.capacity,
		Hits:      l.hits,
		Misses:    l.misses,
		Evictions: l.evictions,
		Expired:   l.expired,
	}
}

func (l *LRU) removeLocked(el *list.Element) {
	e := el.Value.(*lruEntry)
	delete(l.items, e.key)
	l.order.Remove(el)
}
