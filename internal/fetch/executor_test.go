package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func staticSource(id, payload string) Source {
	return NewFuncSource(id, func(ctx context.Context, query string) ([]byte, error) {
		return []byte(payload), nil
	})
}

func slowSource(id string, d time.Duration) Source {
	return NewFuncSource(id, func(ctx context.Context, query string) ([]byte, error) {
		select {
		case <-time.After(d):
			return []byte(id), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

func byID(results []Result) map[string]Result {
	m := make(map[string]Result, len(results))
	for _, r := range results {
		m[r.SourceID] = r
	}
	return m
}

func TestRunTier_MixedOutcomes(t *testing.T) {
	sources := []Source{
		staticSource("ok", `{"btc":65000}`),
		NewFuncSource("broken", func(context.Context, string) ([]byte, error) {
			return nil, errors.New("connection refused")
		}),
		slowSource("slow", time.Second),
		NewFuncSource("panics", func(context.Context, string) ([]byte, error) {
			panic("boom")
		}),
	}

	start := time.Now()
	results := NewExecutor(4).RunTier(context.Background(), sources, "bitcoin", 50*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("RunTier took %v, want it bounded by the per-call timeout", elapsed)
	}

	if len(results) != len(sources) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(sources))
	}

	got := byID(results)
	if r := got["ok"]; !r.Succeeded || string(r.Payload) != `{"btc":65000}` {
		t.Errorf("ok = %+v", r)
	}
	for _, id := range []string{"broken", "slow", "panics"} {
		r := got[id]
		if r.Succeeded {
			t.Errorf("%s should have failed", id)
		}
		if !errors.Is(r.Err, ErrSourceFetchFailed) {
			t.Errorf("%s error = %v, want ErrSourceFetchFailed", id, r.Err)
		}
	}
	if !errors.Is(got["slow"].Err, context.DeadlineExceeded) {
		t.Errorf("slow error = %v, want DeadlineExceeded", got["slow"].Err)
	}

	if n := len(Succeeded(results)); n != 1 {
		t.Errorf("len(Succeeded) = %d, want 1", n)
	}
}

func TestRunTier_ConcurrencyCap(t *testing.T) {
	var inFlight, peak int32
	var mu sync.Mutex

	var sources []Source
	for i := 0; i < 10; i++ {
		sources = append(sources, NewFuncSource(string(rune('a'+i)), func(ctx context.Context, q string) ([]byte, error) {
			n := atomic.AddInt32(&inFlight, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return []byte("x"), nil
		}))
	}

	results := NewExecutor(3).RunTier(context.Background(), sources, "q", time.Second)
	if len(Succeeded(results)) != 10 {
		t.Fatalf("expected all 10 sources to succeed")
	}
	if peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestRunTier_CancelledContext(t *testing.T) {
	var calls int32
	src := NewFuncSource("s", func(ctx context.Context, q string) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("x"), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewExecutor(2).RunTier(ctx, []Source{src}, "q", time.Second)
	if results[0].Succeeded {
		t.Error("cancelled run should not succeed")
	}
	if calls != 0 {
		t.Errorf("source called %d times after cancellation", calls)
	}
}

func TestRunTier_Empty(t *testing.T) {
	if results := NewExecutor(1).RunTier(context.Background(), nil, "q", time.Second); len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}
