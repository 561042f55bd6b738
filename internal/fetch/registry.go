package fetch

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/misterprompt/brain-ai/internal/cache"
	"github.com/misterprompt/brain-ai/pkg/models"
)

// Entry is a registered source with its routing metadata.
type Entry struct {
	Source   Source
	Name     string
	Tier     models.Tier
	Category models.Category
}

// Registry maps tiers to their sources. It is safe for concurrent use and
// can be replaced wholesale while runs are reading it.
type Registry struct {
	mu     sync.RWMutex
	byTier map[models.Tier][]Entry
	ids    map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byTier: make(map[models.Tier][]Entry),
		ids:    make(map[string]bool),
	}
}

// Register adds e. Duplicate IDs and invalid tiers or categories are errors.
func (r *Registry) Register(e Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := e.Source.ID()
	if r.ids[id] {
		return fmt.Errorf("source %s already registered", id)
	}
	r.ids[id] = true
	r.byTier[e.Tier] = append(r.byTier[e.Tier], e)
	return nil
}

// Replace swaps the registry contents for entries. Nothing changes if any
// entry is invalid.
func (r *Registry) Replace(entries []Entry) error {
	byTier := make(map[models.Tier][]Entry)
	ids := make(map[string]bool, len(entries))
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return err
		}
		id := e.Source.ID()
		if ids[id] {
			return fmt.Errorf("source %s listed twice", id)
		}
		ids[id] = true
		byTier[e.Tier] = append(byTier[e.Tier], e)
	}

	r.mu.Lock()
	r.byTier = byTier
	r.ids = ids
	r.mu.Unlock()
	return nil
}

func validateEntry(e Entry) error {
	if e.Source == nil {
		return fmt.Errorf("entry %q has no source", e.Name)
	}
	if !e.Tier.Valid() {
		return fmt.Errorf("source %s: invalid tier %q", e.Source.ID(), e.Tier)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("source %s: invalid category %q", e.Source.ID(), e.Category)
	}
	return nil
}

// Select returns the tier's entries whose category is in categories and not
// in exclude, in registration order.
func (r *Registry) Select(tier models.Tier, categories, exclude []models.Category) []Entry {
	want := make(map[models.Category]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}
	for _, c := range exclude {
		delete(want, c)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.byTier[tier] {
		if want[e.Category] {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns every entry ordered by tier, then ID.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, tier := range models.Tiers {
		entries := append([]Entry(nil), r.byTier[tier]...)
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Source.ID() < entries[j].Source.ID()
		})
		out = append(out, entries...)
	}
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// Sources extracts the sources from entries.
func Sources(entries []Entry) []Source {
	out := make([]Source, len(entries))
	for i, e := range entries {
		out[i] = e.Source
	}
	return out
}

// Builder turns catalog specs into registry entries.
type Builder struct {
	Client *http.Client
	// Cache, when set, wraps sources whose spec has a positive CacheTTL.
	Cache *cache.Cache
}

// Build creates one HTTP-backed entry per spec.
func (b Builder) Build(specs []Spec) []Entry {
	entries := make([]Entry, 0, len(specs))
	for _, spec := range specs {
		var src Source = NewHTTPSource(spec, b.Client)
		if b.Cache != nil && spec.CacheTTL > 0 {
			src = Cached(src, b.Cache, spec.CacheTTL)
		}
		entries = append(entries, Entry{
			Source:   src,
			Name:     spec.DisplayName(),
			Tier:     spec.Tier,
			Category: spec.Category,
		})
	}
	return entries
}
