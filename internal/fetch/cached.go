package fetch

import (
	"context"
	"time"

	"github.com/misterprompt/brain-ai/internal/cache"
)

// CachedSource serves repeated queries from the API cache namespace.
type CachedSource struct {
	Source
	cache *cache.Cache
	ttl   time.Duration
}

// Cached wraps src so successful payloads are cached for ttl.
func Cached(src Source, c *cache.Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{Source: src, cache: c, ttl: ttl}
}

// Fetch returns a cached payload or calls the wrapped source.
func (s *CachedSource) Fetch(ctx context.Context, query string) ([]byte, error) {
	key := s.ID() + "|" + query
	if v, ok := s.cache.Get(ctx, cache.NamespaceAPI, key); ok {
		return v, nil
	}

	payload, err := s.Source.Fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.NamespaceAPI, key, payload, s.ttl)
	return payload, nil
}
