package provider

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/misterprompt/brain-ai/internal/breaker"
)

func countingCall(calls *int32, errs ...error) CallFunc {
	return func(ctx context.Context, req Request) (string, error) {
		n := atomic.AddInt32(calls, 1)
		if int(n) <= len(errs) && errs[n-1] != nil {
			return "", errs[n-1]
		}
		return "ok", nil
	}
}

var fastRetry = RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next CallFunc) CallFunc {
			return func(ctx context.Context, req Request) (string, error) {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	call := Chain(func(context.Context, Request) (string, error) {
		order = append(order, "call")
		return "", nil
	}, mark("outer"), nil, mark("inner"))

	call(context.Background(), Request{})

	want := []string{"outer", "inner", "call"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestWithRetry(t *testing.T) {
	serverErr := &CallError{Provider: "p", StatusCode: http.StatusBadGateway}
	clientErr := &CallError{Provider: "p", StatusCode: http.StatusBadRequest}

	tests := []struct {
		name      string
		errs      []error
		wantCalls int32
		wantErr   bool
	}{
		{"succeeds first try", nil, 1, false},
		{"recovers after transient failures", []error{serverErr, serverErr}, 3, false},
		{"gives up after max retries", []error{serverErr, serverErr, serverErr, serverErr, serverErr}, 4, true},
		{"client error is permanent", []error{clientErr}, 1, true},
		{"rate limit is not retried", []error{ErrRateLimited}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			call := Chain(countingCall(&calls, tt.errs...), WithRetry(fastRetry))

			_, err := call(context.Background(), Request{})
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestWithRetry_PreservesError(t *testing.T) {
	clientErr := &CallError{Provider: "p", StatusCode: http.StatusForbidden}
	var calls int32
	call := Chain(countingCall(&calls, clientErr), WithRetry(fastRetry))

	_, err := call(context.Background(), Request{})
	var ce *CallError
	if !errors.As(err, &ce) || ce.StatusCode != http.StatusForbidden {
		t.Errorf("error = %v, want the adapter's *CallError", err)
	}
}

func TestWithRetry_Disabled(t *testing.T) {
	if WithRetry(RetryPolicy{}) != nil {
		t.Error("WithRetry with zero retries should be nil")
	}
}

func TestWithRateLimit(t *testing.T) {
	var calls int32
	// 60/min with a burst of 6.
	call := Chain(countingCall(&calls), WithRateLimit(60))

	var limited int
	for i := 0; i < 10; i++ {
		if _, err := call(context.Background(), Request{}); errors.Is(err, ErrRateLimited) {
			limited++
		}
	}

	if calls != 6 {
		t.Errorf("calls = %d, want 6", calls)
	}
	if limited != 4 {
		t.Errorf("limited = %d, want 4", limited)
	}
}

func TestWithBreaker(t *testing.T) {
	b := breaker.New("p", breaker.Config{Threshold: 2, Cooldown: time.Hour})
	failure := &CallError{Provider: "p", StatusCode: http.StatusInternalServerError}

	var calls int32
	call := Chain(countingCall(&calls, failure, failure, failure), WithBreaker(b))

	for i := 0; i < 2; i++ {
		if _, err := call(context.Background(), Request{}); !errors.Is(err, ErrCallFailed) {
			t.Fatalf("call %d error = %v, want ErrCallFailed", i, err)
		}
	}

	_, err := call(context.Background(), Request{})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("error = %v, want ErrBreakerOpen", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (open breaker must not reach the adapter)", calls)
	}
}

func TestWithTimeout(t *testing.T) {
	call := Chain(func(ctx context.Context, req Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}, WithTimeout(10*time.Millisecond))

	_, err := call(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}
