package provider

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/misterprompt/brain-ai/internal/breaker"
)

var (
	// ErrProviderUnavailable means the provider is not configured or not
	// reachable. It does not clear on its own.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrQuotaExhausted means the provider's daily quota is used up.
	ErrQuotaExhausted = errors.New("daily quota exhausted")
	// ErrBreakerOpen means the provider's breaker is rejecting calls.
	ErrBreakerOpen = breaker.ErrOpen
	// ErrCallFailed marks a single failed attempt: transport error, timeout,
	// bad status or malformed response.
	ErrCallFailed = errors.New("provider call failed")
	// ErrRateLimited means the local rate limiter refused the call.
	ErrRateLimited = errors.New("provider rate limited")
)

// CallError describes one failed adapter call.
type CallError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *CallError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s: call failed", e.Provider)
	}
}

func (e *CallError) Unwrap() error { return e.Err }

// Is makes every CallError match ErrCallFailed.
func (e *CallError) Is(target error) bool {
	return target == ErrCallFailed
}

// Retryable reports whether repeating the call could succeed. Client errors
// other than 429 are permanent.
func (e *CallError) Retryable() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return false
	}
	return true
}

func callErr(provider string, err error) *CallError {
	return &CallError{Provider: provider, Err: err}
}
