package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/misterprompt/brain-ai/internal/store"
)

// failingKV returns an error from every call.
type failingKV struct{}

func (failingKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, store.ErrUnavailable
}

func (failingKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return store.ErrUnavailable
}

func (failingKV) Delete(ctx context.Context, key string) error { return store.ErrUnavailable }

// downKV is a KV whose Ping fails.
type downKV struct{ failingKV }

func (downKV) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestKey(t *testing.T) {
	got := Key(NamespaceSearch, "bitcoin price")
	if !strings.HasPrefix(got, "search:") {
		t.Errorf("Key() = %q, want search: prefix", got)
	}
	if len(got) != len("search:")+32 {
		t.Errorf("Key() = %q, want 32 hex chars after prefix", got)
	}
	if Key(NamespaceSearch, "bitcoin price") != got {
		t.Error("Key() must be deterministic")
	}
	if Key(NamespaceAPI, "bitcoin price") == got {
		t.Error("different namespaces must produce different keys")
	}
}

func TestExpertNamespace(t *testing.T) {
	if got, want := ExpertNamespace("doctor", "s1"), Namespace("expert:doctor:s1"); got != want {
		t.Errorf("ExpertNamespace() = %q, want %q", got, want)
	}
}

func TestCache_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		c    *Cache
		kind BackendKind
	}{
		{"shared", New(context.Background(), store.NewMemory(), Config{}), BackendShared},
		{"lru", New(context.Background(), nil, Config{Capacity: 10}), BackendLRU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.c.Backend() != tt.kind {
				t.Fatalf("Backend() = %q, want %q", tt.c.Backend(), tt.kind)
			}

			tt.c.Set(ctx, NamespaceAI, "prompt", []byte("answer"), time.Minute)
			got, ok := tt.c.Get(ctx, NamespaceAI, "prompt")
			if !ok || string(got) != "answer" {
				t.Errorf("Get() = %q, %v; want answer, true", got, ok)
			}
			if _, ok := tt.c.Get(ctx, NamespaceSearch, "prompt"); ok {
				t.Error("lookup in another namespace should miss")
			}
		})
	}
}

func TestCache_ExpiredEntryMisses(t *testing.T) {
	lru := NewLRU(10)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	lru.now = func() time.Time { return now }
	c := NewWithBackend(lru, 0)
	ctx := context.Background()

	c.Set(ctx, NamespaceAPI, "k", []byte("v"), time.Second)
	now = now.Add(time.Second)

	if _, ok := c.Get(ctx, NamespaceAPI, "k"); ok {
		t.Error("expired entry must not be returned")
	}
	stats, _ := c.Stats()
	if stats.Expired != 1 {
		t.Errorf("Stats().Expired = %d, want 1", stats.Expired)
	}
}

func TestCache_SensitiveBypass(t *testing.T) {
	c := New(context.Background(), store.NewMemory(), Config{})
	ctx := context.Background()
	sensitive := Options{Sensitive: true}

	c.Set(ctx, NamespaceAI, "k", []byte("secret"), time.Minute, sensitive)
	if _, ok := c.Get(ctx, NamespaceAI, "k"); ok {
		t.Error("sensitive Set must not store anything")
	}

	c.Set(ctx, NamespaceAI, "k", []byte("public"), time.Minute)
	if _, ok := c.Get(ctx, NamespaceAI, "k", sensitive); ok {
		t.Error("sensitive Get must always miss")
	}
}

func TestCache_FallsBackWhenSharedUnreachable(t *testing.T) {
	c := New(context.Background(), downKV{}, Config{Capacity: 5})
	if c.Backend() != BackendLRU {
		t.Fatalf("Backend() = %q, want lru", c.Backend())
	}

	ctx := context.Background()
	c.Set(ctx, NamespaceSearch, "q", []byte("r"), time.Minute)
	if got, ok := c.Get(ctx, NamespaceSearch, "q"); !ok || string(got) != "r" {
		t.Errorf("Get() = %q, %v; want r, true", got, ok)
	}
}

func TestCache_BackendErrorsDegradeToMiss(t *testing.T) {
	c := NewWithBackend(failingKV{}, 0)
	ctx := context.Background()

	c.Set(ctx, NamespaceAI, "k", []byte("v"), time.Minute)
	if _, ok := c.Get(ctx, NamespaceAI, "k"); ok {
		t.Error("backend error must be reported as a miss")
	}
}

func TestCache_NilIsNoop(t *testing.T) {
	var c *Cache
	c.Set(context.Background(), NamespaceAI, "k", []byte("v"), time.Minute)
	if _, ok := c.Get(context.Background(), NamespaceAI, "k"); ok {
		t.Error("nil cache must miss")
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	lru := NewLRU(2)
	ctx := context.Background()

	lru.Set(ctx, "a", []byte("1"), time.Minute)
	lru.Set(ctx, "b", []byte("2"), time.Minute)
	lru.Get(ctx, "a")
	lru.Set(ctx, "c", []byte("3"), time.Minute)

	if _, ok, _ := lru.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok, _ := lru.Get(ctx, "a"); !ok {
		t.Error("a was recently used and should remain")
	}
	if lru.Len() != 2 {
		t.Errorf("Len() = %d, want 2", lru.Len())
	}
	if s := lru.Stats(); s.Evictions != 1 {
		t.Errorf("Stats().Evictions = %d, want 1", s.Evictions)
	}
}

func TestLRU_DefaultCapacity(t *testing.T) {
	if got := NewLRU(0).Stats().Capacity; got != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", got, DefaultCapacity)
	}
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	lru := NewLRU(50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (id*100+j)%80)
				lru.Set(ctx, key, []byte("v"), time.Minute)
				lru.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	if lru.Len() > 50 {
		t.Errorf("Len() = %d exceeds capacity 50", lru.Len())
	}
}

func TestTTLs_For(t *testing.T) {
	tests := []struct {
		ns   Namespace
		ttls TTLs
		want time.Duration
	}{
		{NamespaceSearch, TTLs{}, DefaultSearchTTL},
		{NamespaceAPI, TTLs{}, DefaultAPITTL},
		{NamespaceAI, TTLs{AI: time.Minute}, time.Minute},
		{ExpertNamespace("a", "b"), TTLs{}, 120 * time.Second},
	}

	for _, tt := range tests {
		t.Run(string(tt.ns), func(t *testing.T) {
			if got := tt.ttls.For(tt.ns); got != tt.want {
				t.Errorf("For(%q) = %v, want %v", tt.ns, got, tt.want)
			}
		})
	}
}
