// Package router picks a completion provider for each request. It tries a
// preferred provider first, then the rest by ascending priority, skipping
// any that are unavailable, over quota or behind an open breaker.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/misterprompt/brain-ai/internal/breaker"
	"github.com/misterprompt/brain-ai/internal/cache"
	"github.com/misterprompt/brain-ai/internal/provider"
	"github.com/misterprompt/brain-ai/internal/quota"
	"github.com/misterprompt/brain-ai/internal/store"
)

// Request is one routed completion request.
type Request struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  *float64

	// Preferred names a provider to try before the priority order.
	Preferred string
	// Sources are titles passed to the system prompt hook.
	Sources []string

	// Sensitive requests never touch the cache.
	Sensitive bool
	// CacheNamespace enables caching of the response. Empty disables it.
	CacheNamespace cache.Namespace
	// CacheTTL overrides the namespace's default TTL.
	CacheTTL time.Duration
}

// Result is a successful routed response.
type Result struct {
	Response  string        `json:"response"`
	Provider  string        `json:"provider"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMs int64         `json:"elapsed_ms"`
	// QuotaRemaining is -1 for unlimited providers.
	QuotaRemaining int64 `json:"quota_remaining"`
	Cached         bool  `json:"cached"`
}

type route struct {
	p       *provider.Provider
	breaker *breaker.Breaker
	call    provider.CallFunc
}

// Router routes requests across a fixed set of providers. It is built once
// at startup and is safe for concurrent use.
type Router struct {
	routes   []*route
	byName   map[string]*route
	quota    *quota.Counter
	breakers *breaker.Registry
	opts     routerOptions
}

// New validates providers and wraps each adapter with its call policy. A nil
// quota counter uses an in-process store; nil breakers use default settings.
func New(providers []*provider.Provider, q *quota.Counter, breakers *breaker.Registry, opts ...Option) (*Router, error) {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if q == nil {
		q = quota.NewCounter(store.NewMemory(), 0)
	}
	if breakers == nil {
		breakers = breaker.NewRegistry(breaker.DefaultConfig())
	}

	r := &Router{
		byName:   make(map[string]*route, len(providers)),
		quota:    q,
		breakers: breakers,
		opts:     o,
	}

	for _, p := range providers {
		if p == nil || p.Name == "" {
			return nil, errors.New("provider name is required")
		}
		if _, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate provider name %q", p.Name)
		}

		rt := &route{p: p, breaker: breakers.Get(p.Name)}
		if p.Adapter != nil {
			mws := []provider.Middleware{
				provider.WithRateLimit(p.Policy.RatePerMinute),
				provider.WithBreaker(rt.breaker),
				provider.WithRetry(p.Policy.Retry),
			}
			mws = append(mws, o.middleware...)
			rt.call = provider.Chain(p.Adapter.Call, mws...)
		}

		r.routes = append(r.routes, rt)
		r.byName[p.Name] = rt
	}

	sort.SliceStable(r.routes, func(i, j int) bool {
		return r.routes[i].p.Priority < r.routes[j].p.Priority
	})

	return r, nil
}

// Providers returns the providers in routing order.
func (r *Router) Providers() []*provider.Provider {
	out := make([]*provider.Provider, len(r.routes))
	for i, rt := range r.routes {
		out[i] = rt.p
	}
	return out
}

// Route sends req to the first provider that answers. It fails with an
// *AllProvidersFailedError only when every candidate was skipped or failed.
func (r *Router) Route(ctx context.Context, req Request) (*Result, error) {
	if res, ok := r.cached(ctx, req); ok {
		return res, nil
	}

	var attempts []Attempt
	tried := make(map[string]bool, len(r.routes))

	if req.Preferred != "" {
		if rt, ok := r.byName[req.Preferred]; ok {
			if err := r.eligible(ctx, rt); err == nil {
				tried[rt.p.Name] = true
				res, err := r.attempt(ctx, rt, req)
				if err == nil {
					return res, nil
				}
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				attempts = append(attempts, Attempt{Provider: rt.p.Name, Err: err})
			}
		}
	}

	for _, rt := range r.routes {
		if tried[rt.p.Name] {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tried[rt.p.Name] = true

		if err := r.eligible(ctx, rt); err != nil {
			attempts = append(attempts, Attempt{Provider: rt.p.Name, Err: err, Skipped: true})
			continue
		}

		res, err := r.attempt(ctx, rt, req)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		attempts = append(attempts, Attempt{
			Provider: rt.p.Name,
			Err:      err,
			Skipped:  errors.Is(err, provider.ErrBreakerOpen) || errors.Is(err, provider.ErrRateLimited),
		})
	}

	return nil, &AllProvidersFailedError{Attempts: attempts}
}

// eligible returns the reason rt cannot be called, or nil.
func (r *Router) eligible(ctx context.Context, rt *route) error {
	if rt.call == nil || !rt.p.Available() {
		return provider.ErrProviderUnavailable
	}
	if rt.breaker.State() == breaker.StateOpen {
		return provider.ErrBreakerOpen
	}
	if !r.quota.Available(ctx, rt.p.Name, rt.p.DailyQuota) {
		return provider.ErrQuotaExhausted
	}
	return nil
}

func (r *Router) attempt(ctx context.Context, rt *route, req Request) (*Result, error) {
	systemPrompt := req.SystemPrompt
	if r.opts.hook != nil {
		systemPrompt = r.opts.hook(rt.p.Name, systemPrompt, req.Sources)
	}

	start := time.Now()
	text, err := rt.call(ctx, provider.Request{
		Prompt:       req.Prompt,
		SystemPrompt: systemPrompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	})
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() == nil {
			rt.p.SetLastError(err)
			log.Printf("[router] %s failed after %dms: %v", rt.p.Name, elapsed.Milliseconds(), err)
		}
		return nil, err
	}

	if _, qerr := r.quota.Increment(ctx, rt.p.Name); qerr != nil {
		log.Printf("[router] WARNING: %v", qerr)
	}
	rt.p.SetLastError(nil)

	res := &Result{
		Response:       text,
		Provider:       rt.p.Name,
		Elapsed:        elapsed,
		ElapsedMs:      elapsed.Milliseconds(),
		QuotaRemaining: r.quota.Remaining(ctx, rt.p.Name, rt.p.DailyQuota),
	}
	r.store(ctx, req, res)
	return res, nil
}

type cachedResponse struct {
	Response string `json:"response"`
	Provider string `json:"provider"`
}

func cacheKey(req Request) string {
	return fmt.Sprintf("%d|%s|%s", req.MaxTokens, req.SystemPrompt, req.Prompt)
}

func (r *Router) cached(ctx context.Context, req Request) (*Result, bool) {
	if r.opts.cache == nil || req.CacheNamespace == "" {
		return nil, false
	}
	raw, ok := r.opts.cache.Get(ctx, req.CacheNamespace, cacheKey(req), cache.Options{Sensitive: req.Sensitive})
	if !ok {
		return nil, false
	}
	var cr cachedResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, false
	}
	return &Result{
		Response:       cr.Response,
		Provider:       cr.Provider,
		QuotaRemaining: -1,
		Cached:         true,
	}, true
}

func (r *Router) store(ctx context.Context, req Request, res *Result) {
	if r.opts.cache == nil || req.CacheNamespace == "" {
		return
	}
	ttl := req.CacheTTL
	if ttl <= 0 {
		ttl = r.opts.ttls.For(req.CacheNamespace)
	}
	raw, err := json.Marshal(cachedResponse{Response: res.Response, Provider: res.Provider})
	if err != nil {
		return
	}
	r.opts.cache.Set(ctx, req.CacheNamespace, cacheKey(req), raw, ttl, cache.Options{Sensitive: req.Sensitive})
}
