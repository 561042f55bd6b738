package cache

import (
	"strings"
	"time"
)

// Default TTLs per namespace.
const (
	DefaultSearchTTL = time.Hour
	DefaultAPITTL    = 30 * time.Minute
	DefaultAITTL     = 24 * time.Hour
	DefaultExpertTTL = 120 * time.Second
)

// TTLs holds per-namespace expiry. Zero fields fall back to the defaults.
type TTLs struct {
	Search time.Duration
	API    time.Duration
	AI     time.Duration
	Expert time.Duration
}

// For returns the TTL for ns. Expert namespaces share the Expert TTL.
func (t TTLs) For(ns Namespace) time.Duration {
	switch {
	case ns == NamespaceSearch:
		return orDefault(t.Search, DefaultSearchTTL)
	case ns == NamespaceAPI:
		return orDefault(t.API, DefaultAPITTL)
	case ns == NamespaceAI:
		return orDefault(t.AI, DefaultAITTL)
	case strings.HasPrefix(string(ns), "expert:"):
		return orDefault(t.Expert, DefaultExpertTTL)
	default:
		return orDefault(t.API, DefaultAPITTL)
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
