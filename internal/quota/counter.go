// Package quota tracks per-provider daily call counts in the shared store.
package quota

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/misterprompt/brain-ai/internal/store"
)

// KeyTTL keeps a day's counter alive past the UTC day boundary.
const KeyTTL = 48 * time.Hour

// Counter counts successful calls per provider per UTC day.
type Counter struct {
	store     store.Counter
	opTimeout time.Duration
	now       func() time.Time
}

// NewCounter creates a Counter backed by s. opTimeout bounds each store round
// trip; zero means 250ms.
func NewCounter(s store.Counter, opTimeout time.Duration) *Counter {
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	return &Counter{
		store:     s,
		opTimeout: opTimeout,
		now:       time.Now,
	}
}

// SetClock replaces the clock used to derive the date key.
func (c *Counter) SetClock(now func() time.Time) {
	c.now = now
}

// Key returns the store key for provider on the current UTC day.
func (c *Counter) Key(provider string) string {
	return fmt.Sprintf("quota:%s:%s", provider, c.now().UTC().Format("2006-01-02"))
}

// Increment records one successful call and returns today's count.
func (c *Counter) Increment(ctx context.Context, provider string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	n, err := c.store.IncrWithTTL(ctx, c.Key(provider), KeyTTL)
	if err != nil {
		return 0, fmt.Errorf("increment quota for %s: %w", provider, err)
	}
	return n, nil
}

// Current returns today's count for provider.
func (c *Counter) Current(ctx context.Context, provider string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	n, err := c.store.Count(ctx, c.Key(provider))
	if err != nil {
		return 0, fmt.Errorf("read quota for %s: %w", provider, err)
	}
	return n, nil
}

// Available reports whether provider can take another call. A dailyQuota of
// zero means unlimited. Store failures fail open.
func (c *Counter) Available(ctx context.Context, provider string, dailyQuota int64) bool {
	if dailyQuota <= 0 {
		return true
	}
	n, err := c.Current(ctx, provider)
	if err != nil {
		log.Printf("[quota] WARNING: %v (allowing call)", err)
		return true
	}
	return n < dailyQuota
}

// Remaining returns the calls left today, or -1 for unlimited providers.
// On a store failure the full quota is reported.
func (c *Counter) Remaining(ctx context.Context, provider string, dailyQuota int64) int64 {
	if dailyQuota <= 0 {
		return -1
	}
	n, err := c.Current(ctx, provider)
	if err != nil {
		return dailyQuota
	}
	if n >= dailyQuota {
		return 0
	}
	return dailyQuota - n
}
