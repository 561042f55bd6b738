package router

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAllProvidersFailed is matched by every *AllProvidersFailedError.
var ErrAllProvidersFailed = errors.New("all providers failed")

// Attempt records why one provider did not produce a response.
type Attempt struct {
	Provider string
	Err      error
	// Skipped is true when the provider was ineligible and never called.
	Skipped bool
}

// AllProvidersFailedError is returned by Route when every candidate was
// skipped or failed.
type AllProvidersFailedError struct {
	Attempts []Attempt
}

func (e *AllProvidersFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all providers failed: no providers configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Is makes every AllProvidersFailedError match ErrAllProvidersFailed.
func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

// Unwrap exposes the per-provider errors to errors.Is and errors.As.
func (e *AllProvidersFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Called returns the attempts that reached the provider.
func (e *AllProvidersFailedError) Called() []Attempt {
	var out []Attempt
	for _, a := range e.Attempts {
		if !a.Skipped {
			out = append(out, a)
		}
	}
	return out
}
