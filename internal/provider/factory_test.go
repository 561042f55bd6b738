package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/misterprompt/brain-ai/internal/config"
)

func TestBuild(t *testing.T) {
	t.Setenv("TEST_OR_KEY", "or-key")
	t.Setenv("TEST_MISSING_KEY", "")

	cfgs := []config.ProviderConfig{
		{Name: "openrouter", Kind: "openai", Priority: 0, APIKeyEnv: "TEST_OR_KEY", MaxRetries: 2},
		{Name: "gemini", Kind: "gemini", Priority: 3, DailyQuota: 1500, APIKeyEnv: "TEST_MISSING_KEY"},
		{Name: "ollama", Kind: "ollama", Priority: 5},
		{Name: "off", Kind: "openai", Disabled: true},
	}

	providers, err := Build(cfgs, config.RetryConfig{InitialInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(providers) != 3 {
		t.Fatalf("len(providers) = %d, want 3", len(providers))
	}

	or := providers[0]
	if !or.Available() {
		t.Error("openrouter should be available")
	}
	if _, ok := or.Adapter.(*OpenAIAdapter); !ok {
		t.Errorf("openrouter adapter = %T, want *OpenAIAdapter", or.Adapter)
	}
	if or.Policy.Retry.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", or.Policy.Retry.MaxRetries)
	}

	gem := providers[1]
	if gem.Available() {
		t.Error("gemini without key should be unavailable")
	}
	if !errors.Is(gem.LastError(), ErrProviderUnavailable) {
		t.Errorf("gemini LastError = %v, want ErrProviderUnavailable", gem.LastError())
	}
	if gem.DailyQuota != 1500 {
		t.Errorf("gemini DailyQuota = %d, want 1500", gem.DailyQuota)
	}

	if !providers[2].Available() {
		t.Error("ollama needs no key and should be available")
	}
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfgs []config.ProviderConfig
	}{
		{"unknown kind", []config.ProviderConfig{{Name: "x", Kind: "smoke-signal"}}},
		{"duplicate name", []config.ProviderConfig{{Name: "x", Kind: "ollama"}, {Name: "x", Kind: "ollama"}}},
		{"empty name", []config.ProviderConfig{{Kind: "ollama"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.cfgs, config.RetryConfig{}); err == nil {
				t.Error("Build should fail")
			}
		})
	}
}

func TestProbeAll(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	}))
	defer up.Close()

	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	reachable := New("local", KindOllama, 5, 0, "llama3.2", NewOllamaAdapter("local", up.URL, "llama3.2", time.Second))
	unreachable := New("remote", KindOllama, 6, 0, "llama3.2", NewOllamaAdapter("remote", downURL, "llama3.2", time.Second))

	ProbeAll(context.Background(), []*Provider{reachable, unreachable})

	if !reachable.Available() {
		t.Error("reachable provider should stay available")
	}
	if unreachable.Available() {
		t.Error("unreachable provider should be marked unavailable")
	}
	if !errors.Is(unreachable.LastError(), ErrProviderUnavailable) {
		t.Errorf("LastError = %v, want ErrProviderUnavailable", unreachable.LastError())
	}
}
