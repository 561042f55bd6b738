package config

import (
	"errors"
	"fmt"
	"time"
)

// Provider kinds understood by the adapter factory.
const (
	KindAnthropic = "anthropic"
	KindOpenAI    = "openai"
	KindGemini    = "gemini"
	KindOllama    = "ollama"
)

// knownKinds lists the valid values of ProviderConfig.Kind.
var knownKinds = map[string]bool{
	KindAnthropic: true,
	KindOpenAI:    true,
	KindGemini:    true,
	KindOllama:    true,
}

// DefaultProviders returns the built-in provider table.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Name:       "openrouter",
			Kind:       KindOpenAI,
			Priority:   0,
			Model:      "deepseek/deepseek-chat",
			BaseURL:    "https://openrouter.ai/api/v1",
			APIKeyEnv:  "OPENROUTER_API_KEY",
			Timeout:    30 * time.Second,
			MaxRetries: 2,
		},
		{
			Name:       "claude",
			Kind:       KindAnthropic,
			Priority:   1,
			Model:      "claude-3-5-haiku-20241022",
			APIKeyEnv:  "ANTHROPIC_API_KEY",
			Timeout:    30 * time.Second,
			MaxRetries: 2,
		},
		{
			Name:       "mistral",
			Kind:       KindOpenAI,
			Priority:   2,
			DailyQuota: 100000,
			Model:      "mistral-small-latest",
			BaseURL:    "https://api.mistral.ai/v1",
			APIKeyEnv:  "MISTRAL_API_KEY",
			Timeout:    30 * time.Second,
			MaxRetries: 2,
		},
		{
			Name:          "groq",
			Kind:          KindOpenAI,
			Priority:      3,
			DailyQuota:    14000,
			Model:         "llama-3.3-70b-versatile",
			BaseURL:       "https://api.groq.com/openai/v1",
			APIKeyEnv:     "GROQ_API_KEY",
			Timeout:       30 * time.Second,
			RatePerMinute: 30,
			MaxRetries:    2,
		},
		{
			Name:       "gemini",
			Kind:       KindGemini,
			Priority:   3,
			DailyQuota: 1500,
			Model:      "gemini-2.0-flash",
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			APIKeyEnv:  "GEMINI_API_KEY",
			Timeout:    30 * time.Second,
			MaxRetries: 2,
		},
		{
			Name:     "ollama",
			Kind:     KindOllama,
			Priority: 5,
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
			Timeout:  60 * time.Second,
		},
	}
}

// Provider returns the named provider entry.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// Validate checks the configuration for values that cannot be run.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		switch {
		case p.Name == "":
			errs = append(errs, fmt.Errorf("providers[%d]: name is required", i))
		case seen[p.Name]:
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true

		if !knownKinds[p.Kind] {
			errs = append(errs, fmt.Errorf("provider %q: unknown kind %q", p.Name, p.Kind))
		}
		if p.DailyQuota < 0 {
			errs = append(errs, fmt.Errorf("provider %q: daily_quota must not be negative", p.Name))
		}
		if p.RatePerMinute < 0 {
			errs = append(errs, fmt.Errorf("provider %q: rate_per_minute must not be negative", p.Name))
		}
		if p.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("provider %q: max_retries must not be negative", p.Name))
		}
	}

	if c.Retry.AttemptTimeout < 0 {
		errs = append(errs, errors.New("retry.attempt_timeout must not be negative"))
	}
	if c.Breaker.Threshold < 1 {
		errs = append(errs, errors.New("breaker.threshold must be at least 1"))
	}
	if c.Breaker.Cooldown <= 0 {
		errs = append(errs, errors.New("breaker.cooldown must be positive"))
	}

	pc := c.Pipeline
	for name, d := range map[string]time.Duration{
		"fast_timeout":   pc.FastTimeout,
		"medium_timeout": pc.MediumTimeout,
		"slow_timeout":   pc.SlowTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("pipeline.%s must be positive", name))
		}
	}
	if pc.Concurrency < 1 {
		errs = append(errs, errors.New("pipeline.concurrency must be at least 1"))
	}
	if pc.RerankConcurrency < 1 {
		errs = append(errs, errors.New("pipeline.rerank_concurrency must be at least 1"))
	}
	if pc.TopK < 1 {
		errs = append(errs, errors.New("pipeline.top_k must be at least 1"))
	}
	if pc.SufficiencyThreshold < 0 {
		errs = append(errs, errors.New("pipeline.sufficiency_threshold must not be negative"))
	}

	return errors.Join(errs...)
}
