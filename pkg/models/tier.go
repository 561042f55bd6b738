package models

import "time"

// Tier is a latency bucket of data sources fetched together.
type Tier string

const (
	// TierFast holds sources that usually answer in under a second.
	TierFast Tier = "fast"
	// TierMedium holds sources that usually answer in one to three seconds.
	TierMedium Tier = "medium"
	// TierSlow holds sources that may take up to ten seconds.
	TierSlow Tier = "slow"
)

// Tiers lists the tiers in execution order.
var Tiers = []Tier{TierFast, TierMedium, TierSlow}

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	switch t {
	case TierFast, TierMedium, TierSlow:
		return true
	default:
		return false
	}
}

// DefaultTimeout returns the per-call timeout used when none is configured.
func (t Tier) DefaultTimeout() time.Duration {
	switch t {
	case TierFast:
		return 2 * time.Second
	case TierMedium:
		return 4 * time.Second
	case TierSlow:
		return 8 * time.Second
	default:
		return 4 * time.Second
	}
}
