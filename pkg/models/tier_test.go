package models

import (
	"testing"
	"time"
)

func TestTier_Valid(t *testing.T) {
	tests := []struct {
		name string
		tier Tier
		want bool
	}{
		{"fast is valid", TierFast, true},
		{"medium is valid", TierMedium, true},
		{"slow is valid", TierSlow, true},
		{"empty string is invalid", Tier(""), false},
		{"unknown tier is invalid", Tier("unknown"), false},
		{"uppercase is invalid", Tier("FAST"), false},
		{"trailing space is invalid", Tier("slow "), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tier.Valid(); got != tt.want {
				t.Errorf("Tier(%q).Valid() = %v, want %v", tt.tier, got, tt.want)
			}
		})
	}
}

func TestTier_ExecutionOrder(t *testing.T) {
	want := []Tier{TierFast, TierMedium, TierSlow}
	if len(Tiers) != len(want) {
		t.Fatalf("len(Tiers) = %d, want %d", len(Tiers), len(want))
	}
	for i, tier := range want {
		if Tiers[i] != tier {
			t.Errorf("Tiers[%d] = %q, want %q", i, Tiers[i], tier)
		}
	}
}

func TestTier_DefaultTimeout(t *testing.T) {
	tests := []struct {
		tier Tier
		want time.Duration
	}{
		{TierFast, 2 * time.Second},
		{TierMedium, 4 * time.Second},
		{TierSlow, 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			if got := tt.tier.DefaultTimeout(); got != tt.want {
				t.Errorf("DefaultTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}
