package provider

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/misterprompt/brain-ai/internal/breaker"
)

// Middleware wraps a CallFunc with a cross-cutting concern.
type Middleware func(next CallFunc) CallFunc

// Chain applies mws to call. The first middleware is the outermost.
func Chain(call CallFunc, mws ...Middleware) CallFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			call = mws[i](call)
		}
	}
	return call
}

// WithTimeout bounds each call to d.
func WithTimeout(d time.Duration) Middleware {
	if d <= 0 {
		return nil
	}
	return func(next CallFunc) CallFunc {
		return func(ctx context.Context, req Request) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// RetryPolicy configures WithRetry.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// WithRetry retries retryable failures with exponential backoff. Client
// errors, open breakers and caller cancellation are not retried.
func WithRetry(p RetryPolicy) Middleware {
	if p.MaxRetries <= 0 {
		return nil
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 200 * time.Millisecond
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 2 * time.Second
	}

	return func(next CallFunc) CallFunc {
		return func(ctx context.Context, req Request) (string, error) {
			expo := backoff.NewExponentialBackOff()
			expo.InitialInterval = p.InitialInterval
			expo.MaxInterval = p.MaxInterval
			expo.MaxElapsedTime = 0
			bo := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(p.MaxRetries)), ctx)

			var out string
			op := func() error {
				text, err := next(ctx, req)
				if err == nil {
					out = text
					return nil
				}
				if !retryable(ctx, err) {
					return backoff.Permanent(err)
				}
				return err
			}
			if err := backoff.Retry(op, bo); err != nil {
				return "", err
			}
			return out, nil
		}
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrBreakerOpen) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable) {
		return false
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Retryable()
	}
	return true
}

// WithRateLimit refuses calls beyond perMinute, spread evenly with a burst of
// one tenth of the budget. It fails fast so the router can move on.
func WithRateLimit(perMinute int) Middleware {
	if perMinute <= 0 {
		return nil
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)

	return func(next CallFunc) CallFunc {
		return func(ctx context.Context, req Request) (string, error) {
			if !limiter.Allow() {
				return "", ErrRateLimited
			}
			return next(ctx, req)
		}
	}
}

// WithBreaker guards the call with b. An open breaker short-circuits the
// call; every attempted call's outcome is recorded.
func WithBreaker(b *breaker.Breaker) Middleware {
	if b == nil {
		return nil
	}
	return func(next CallFunc) CallFunc {
		return func(ctx context.Context, req Request) (string, error) {
			var out string
			err := b.Execute(ctx, func(ctx context.Context) error {
				text, err := next(ctx, req)
				out = text
				return err
			})
			if err != nil {
				return "", err
			}
			return out, nil
		}
	}
}
