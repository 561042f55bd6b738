package router

import (
	"context"

	"github.com/misterprompt/brain-ai/internal/breaker"
	"github.com/misterprompt/brain-ai/internal/provider"
)

// ProviderStatus is a point-in-time view of one provider.
type ProviderStatus struct {
	Name       string        `json:"name"`
	Kind       provider.Kind `json:"kind"`
	Model      string        `json:"model"`
	Priority   int           `json:"priority"`
	Available  bool          `json:"available"`
	DailyQuota int64         `json:"daily_quota"`
	UsedToday  int64         `json:"used_today"`
	Remaining  int64         `json:"remaining"`
	Breaker    breaker.State `json:"-"`
	BreakerStr string        `json:"breaker"`
	Failures   int           `json:"consecutive_failures"`
	LastError  string        `json:"last_error,omitempty"`
	TokensIn   int64         `json:"tokens_in,omitempty"`
	TokensOut  int64         `json:"tokens_out,omitempty"`
}

type usageReporter interface {
	Usage() *provider.Usage
}

// Status reports every provider in routing order.
func (r *Router) Status(ctx context.Context) []ProviderStatus {
	out := make([]ProviderStatus, 0, len(r.routes))
	for _, rt := range r.routes {
		p := rt.p
		snap := rt.breaker.Snapshot()

		used, _ := r.quota.Current(ctx, p.Name)
		st := ProviderStatus{
			Name:       p.Name,
			Kind:       p.Kind,
			Model:      p.Model,
			Priority:   p.Priority,
			Available:  p.Available(),
			DailyQuota: p.DailyQuota,
			UsedToday:  used,
			Remaining:  r.quota.Remaining(ctx, p.Name, p.DailyQuota),
			Breaker:    snap.State,
			BreakerStr: snap.State.String(),
			Failures:   snap.ConsecutiveFailures,
		}
		if err := p.LastError(); err != nil {
			st.LastError = err.Error()
		}
		if u, ok := p.Adapter.(usageReporter); ok {
			st.TokensIn, st.TokensOut = u.Usage().Total()
		}
		out = append(out, st)
	}
	return out
}
