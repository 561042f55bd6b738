// Package provider defines the uniform call contract over external completion
// services, the adapters implementing it and the middleware composed around
// each adapter's call.
package provider

import (
	"context"
	"sync"
)

// Kind identifies an adapter implementation.
type Kind string

const (
	KindAnthropic Kind = "anthropic"
	KindOpenAI    Kind = "openai"
	KindGemini    Kind = "gemini"
	KindOllama    Kind = "ollama"
)

// Valid returns true if the kind is a known value.
func (k Kind) Valid() bool {
	switch k {
	case KindAnthropic, KindOpenAI, KindGemini, KindOllama:
		return true
	default:
		return false
	}
}

// Request is one completion request.
type Request struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	// Temperature is passed through when non-nil.
	Temperature *float64
}

// CallFunc performs one completion call.
type CallFunc func(ctx context.Context, req Request) (string, error)

// Adapter is one external completion service. Adapters own their endpoint,
// auth and payload shape, and enforce their own per-call timeout.
type Adapter interface {
	Name() string
	Call(ctx context.Context, req Request) (string, error)
}

// Prober is implemented by adapters that can check reachability up front.
type Prober interface {
	Probe(ctx context.Context) error
}

// Provider is a routable completion backend. Name, Kind, Priority,
// DailyQuota and Model are fixed at startup; availability and the last error
// change at runtime.
type Provider struct {
	Name       string
	Kind       Kind
	Priority   int
	DailyQuota int64
	Model      string
	Adapter    Adapter
	// Policy configures the middleware the router wraps around Adapter.
	Policy Policy

	mu        sync.RWMutex
	available bool
	lastError error
}

// Policy holds the per-provider call policy.
type Policy struct {
	RatePerMinute int
	Retry         RetryPolicy
}

// New creates a Provider. It starts available when adapter is non-nil.
func New(name string, kind Kind, priority int, dailyQuota int64, model string, adapter Adapter) *Provider {
	return &Provider{
		Name:       name,
		Kind:       kind,
		Priority:   priority,
		DailyQuota: dailyQuota,
		Model:      model,
		Adapter:    adapter,
		available:  adapter != nil,
	}
}

// Available reports whether the provider is configured and reachable.
func (p *Provider) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.available
}

// SetAvailable updates availability.
func (p *Provider) SetAvailable(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = v
}

// LastError returns the most recent failure, or nil.
func (p *Provider) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastError
}

// SetLastError records err as the most recent failure. nil clears it.
func (p *Provider) SetLastError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastError = err
}
