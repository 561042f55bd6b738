package main

import (
	"strings"
	"testing"
	"time"

	"github.com/misterprompt/brain-ai/internal/config"
)

func TestProviderKey(t *testing.T) {
	tests := []struct {
		key   string
		name  string
		field string
		ok    bool
	}{
		{"providers.groq.daily_quota", "groq", "daily_quota", true},
		{"providers.groq", "", "", false},
		{"providers..model", "", "", false},
		{"breaker.threshold", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			name, field, ok := providerKey(tt.key)
			if ok != tt.ok || (ok && (name != tt.name || field != tt.field)) {
				t.Errorf("providerKey(%q) = %q, %q, %v", tt.key, name, field, ok)
			}
		})
	}
}

func TestConfigValues_RoundTrip(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"breaker.threshold", "3"},
		{"breaker.cooldown", "30s"},
		{"store.disabled", "true"},
		{"pipeline.sufficiency_threshold", "12"},
		{"pipeline.fast_timeout", "1.5s"},
		{"catalog.path", "/tmp/sources.yaml"},
		{"providers.groq.daily_quota", "500"},
		{"providers.ollama.model", "qwen2.5"},
		{"PROVIDERS.Groq.Disabled", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := config.Default()
			if err := setConfigValue(cfg, tt.key, tt.value); err != nil {
				t.Fatalf("setConfigValue() error = %v", err)
			}
			got, err := getConfigValue(cfg, tt.key)
			if err != nil {
				t.Fatalf("getConfigValue() error = %v", err)
			}
			if got != tt.value {
				t.Errorf("getConfigValue() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestSetConfigValue_Errors(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"breaker.threshold", "many", "invalid value"},
		{"breaker.cooldown", "soon", "invalid duration"},
		{"store.disabled", "maybe", "invalid boolean"},
		{"nope.key", "1", "unknown configuration key"},
		{"providers.nobody.model", "x", "unknown provider"},
		{"providers.groq.colour", "x", "unknown provider field"},
		{"providers.groq.api_key", "gsk_0123456789abcdefghij", "GROQ_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := setConfigValue(config.Default(), tt.key, tt.value)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("setConfigValue() error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestScalarKeysResolve(t *testing.T) {
	cfg := config.Default()
	for _, key := range scalarKeys {
		if _, err := getConfigValue(cfg, key); err != nil {
			t.Errorf("getConfigValue(%q) error = %v", key, err)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{5 * time.Minute, "5m"},
		{2 * time.Hour, "2h"},
		{90 * time.Minute, "1h30m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
