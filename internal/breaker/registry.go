package breaker

import (
	"sort"
	"sync"
	"time"
)

// Registry holds one Breaker per provider. Breaker state is shared by every
// run in the process.
type Registry struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty registry whose breakers share cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		now:      time.Now,
		breakers: make(map[string]*Breaker),
	}
}

// SetClock replaces the clock for breakers created afterwards.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, r.cfg)
	b.now = r.now
	r.breakers[name] = b
	return b
}

// Snapshots returns every breaker's state sorted by name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	list := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		list = append(list, b)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(list))
	for _, b := range list {
		out = append(out, b.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
