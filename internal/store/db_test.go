package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMigrated(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	path := filepath.Join(nested, "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/proc/nonexistent/test.db")
	if err == nil {
		t.Error("expected error opening db at invalid path")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var version int
	if err := db.conn.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("query schema version: %v", err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}
}

func TestDB_SetGet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Set(ctx, "search:abc", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := db.Get(ctx, "search:abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != "payload" {
		t.Errorf("Get = %q, want %q", got, "payload")
	}

	if _, ok, _ := db.Get(ctx, "search:missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestDB_GetExpired(t *testing.T) {
	db := setupTestDB(t)
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	db.now = clock.Now
	ctx := context.Background()

	if err := db.Set(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clock.Advance(time.Second)

	if _, ok, _ := db.Get(ctx, "k"); ok {
		t.Error("expired entry must not be returned")
	}
}

func TestDB_SetRejectsNonPositiveTTL(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Set(context.Background(), "k", []byte("v"), 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}

func TestDB_Delete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	db.Set(ctx, "k", []byte("v"), time.Minute)
	if err := db.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := db.Get(ctx, "k"); ok {
		t.Error("deleted entry still present")
	}
	if err := db.Delete(ctx, "k"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestDB_IncrWithTTL(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := db.IncrWithTTL(ctx, "quota:groq:2025-03-01", time.Hour)
		if err != nil {
			t.Fatalf("IncrWithTTL failed: %v", err)
		}
		if n != i {
			t.Errorf("IncrWithTTL = %d, want %d", n, i)
		}
	}

	n, err := db.Count(ctx, "quota:groq:2025-03-01")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestDB_IncrWithTTL_RestartsAfterExpiry(t *testing.T) {
	db := setupTestDB(t)
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	db.now = clock.Now
	ctx := context.Background()

	db.IncrWithTTL(ctx, "c", time.Minute)
	db.IncrWithTTL(ctx, "c", time.Minute)

	clock.Advance(2 * time.Minute)

	if n, _ := db.Count(ctx, "c"); n != 0 {
		t.Errorf("Count after expiry = %d, want 0", n)
	}
	n, err := db.IncrWithTTL(ctx, "c", time.Minute)
	if err != nil {
		t.Fatalf("IncrWithTTL failed: %v", err)
	}
	if n != 1 {
		t.Errorf("IncrWithTTL after expiry = %d, want 1", n)
	}
}

func TestDB_IncrWithTTL_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := db.IncrWithTTL(ctx, "c", time.Hour); err != nil {
				t.Errorf("IncrWithTTL failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n, _ := db.Count(ctx, "c"); n != 50 {
		t.Errorf("Count = %d, want 50", n)
	}
}

func TestDB_Sweep(t *testing.T) {
	db := setupTestDB(t)
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	db.now = clock.Now
	ctx := context.Background()

	db.Set(ctx, "short", []byte("v"), time.Second)
	db.Set(ctx, "long", []byte("v"), time.Hour)
	db.IncrWithTTL(ctx, "counter", time.Second)

	clock.Advance(time.Minute)

	n, err := db.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Sweep removed %d rows, want 2", n)
	}
	if _, ok, _ := db.Get(ctx, "long"); !ok {
		t.Error("unexpired entry was swept")
	}
}

func TestDB_ClosedStoreIsUnavailable(t *testing.T) {
	db, err := OpenMigrated(tempDBPath(t))
	if err != nil {
		t.Fatalf("OpenMigrated failed: %v", err)
	}
	db.Close()

	_, _, err = db.Get(context.Background(), "k")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Get on closed store error = %v, want ErrUnavailable", err)
	}
	if err := db.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ping on closed store error = %v, want ErrUnavailable", err)
	}
}

func TestDefaultPath(t *testing.T) {
	os.Setenv("XDG_DATA_HOME", "/custom/data")
	defer os.Unsetenv("XDG_DATA_HOME")

	want := "/custom/data/brain/store.db"
	if got := DefaultPath(); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}
