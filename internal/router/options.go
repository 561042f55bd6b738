package router

import (
	"github.com/misterprompt/brain-ai/internal/cache"
	"github.com/misterprompt/brain-ai/internal/provider"
)

// Option configures a Router. Use With* functions to create Options.
type Option func(*routerOptions)

type routerOptions struct {
	hook       SystemPromptHook
	cache      *cache.Cache
	ttls       cache.TTLs
	middleware []provider.Middleware
}

// WithSystemPromptHook shapes every outgoing system prompt with h.
func WithSystemPromptHook(h SystemPromptHook) Option {
	return func(o *routerOptions) { o.hook = h }
}

// WithCache enables response caching for requests that name a namespace.
func WithCache(c *cache.Cache, ttls cache.TTLs) Option {
	return func(o *routerOptions) {
		o.cache = c
		o.ttls = ttls
	}
}

// WithMiddleware adds middleware inside the per-provider policy chain,
// closest to the adapter.
func WithMiddleware(mws ...provider.Middleware) Option {
	return func(o *routerOptions) { o.middleware = append(o.middleware, mws...) }
}
