package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/misterprompt/brain-ai/internal/cache"
)

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "bitcoin price" {
			t.Errorf("q = %q, want %q", got, "bitcoin price")
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		w.Write([]byte(`{"btc":65000}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(Spec{
		ID:      "prices",
		URL:     srv.URL + "/search?q={query}",
		Headers: map[string]string{"Accept": "application/json"},
	}, nil)

	body, err := src.Fetch(context.Background(), "bitcoin price")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != `{"btc":65000}` {
		t.Errorf("body = %q", body)
	}
}

func TestHTTPSource_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(Spec{ID: "down", URL: srv.URL}, nil).Fetch(context.Background(), "q")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", fe.StatusCode)
	}
	if !errors.Is(err, ErrSourceFetchFailed) {
		t.Error("FetchError should match ErrSourceFetchFailed")
	}
}

func TestHTTPSource_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", MaxBodyBytes+1024)))
	}))
	defer srv.Close()

	body, err := NewHTTPSource(Spec{ID: "big", URL: srv.URL}, nil).Fetch(context.Background(), "q")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(body) != MaxBodyBytes {
		t.Errorf("len(body) = %d, want %d", len(body), MaxBodyBytes)
	}
}

func TestCachedSource(t *testing.T) {
	calls := 0
	inner := NewFuncSource("wiki", func(ctx context.Context, q string) ([]byte, error) {
		calls++
		if q == "fail" {
			return nil, errors.New("nope")
		}
		return []byte("payload for " + q), nil
	})

	c := cache.NewWithBackend(cache.NewLRU(10), time.Second)
	src := Cached(inner, c, time.Minute)

	if src.ID() != "wiki" {
		t.Errorf("ID() = %q, want wiki", src.ID())
	}

	for i := 0; i < 3; i++ {
		body, err := src.Fetch(context.Background(), "go")
		if err != nil || string(body) != "payload for go" {
			t.Fatalf("Fetch = %q, %v", body, err)
		}
	}
	if calls != 1 {
		t.Errorf("inner called %d times, want 1", calls)
	}

	src.Fetch(context.Background(), "fail")
	src.Fetch(context.Background(), "fail")
	if calls != 3 {
		t.Errorf("failures must not be cached: inner called %d times, want 3", calls)
	}
}
