package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/misterprompt/brain-ai/internal/config"
)

// Build creates providers from the configured table. Unknown kinds and
// duplicate names are errors. A provider whose API key is missing is returned
// unavailable with ErrProviderUnavailable as its last error. Disabled entries
// are skipped.
func Build(cfgs []config.ProviderConfig, retry config.RetryConfig) ([]*Provider, error) {
	seen := make(map[string]bool, len(cfgs))
	providers := make([]*Provider, 0, len(cfgs))

	for _, pc := range cfgs {
		if pc.Disabled {
			continue
		}
		if pc.Name == "" {
			return nil, errors.New("provider name is required")
		}
		if seen[pc.Name] {
			return nil, fmt.Errorf("duplicate provider name %q", pc.Name)
		}
		seen[pc.Name] = true

		kind := Kind(pc.Kind)
		if !kind.Valid() {
			return nil, fmt.Errorf("provider %q: unknown kind %q", pc.Name, pc.Kind)
		}

		var adapter Adapter
		key, err := config.ResolveAPIKey(pc)
		if err != nil {
			log.Printf("[provider] %s disabled: %v", pc.Name, err)
		} else {
			adapter = newAdapter(kind, pc, key)
		}

		p := New(pc.Name, kind, pc.Priority, pc.DailyQuota, pc.Model, adapter)
		p.Policy = Policy{
			RatePerMinute: pc.RatePerMinute,
			Retry: RetryPolicy{
				MaxRetries:      pc.MaxRetries,
				InitialInterval: retry.InitialInterval,
				MaxInterval:     retry.MaxInterval,
			},
		}
		if adapter == nil {
			p.SetLastError(ErrProviderUnavailable)
		}
		providers = append(providers, p)
	}

	return providers, nil
}

func newAdapter(kind Kind, pc config.ProviderConfig, key string) Adapter {
	switch kind {
	case KindAnthropic:
		return NewAnthropicAdapter(AnthropicConfig{
			Name:       pc.Name,
			Model:      pc.Model,
			APIKey:     key,
			BaseURL:    pc.BaseURL,
			Timeout:    pc.Timeout,
			UseBedrock: pc.UseBedrock,
			AWSRegion:  pc.AWSRegion,
			AWSProfile: pc.AWSProfile,
		})
	case KindOpenAI:
		return NewOpenAIAdapter(pc.Name, pc.BaseURL, pc.Model, key, pc.Headers, pc.Timeout)
	case KindGemini:
		return NewGeminiAdapter(pc.Name, pc.BaseURL, pc.Model, key, pc.Timeout)
	case KindOllama:
		return NewOllamaAdapter(pc.Name, pc.BaseURL, pc.Model, pc.Timeout)
	default:
		return nil
	}
}

// ProbeAll checks every provider whose adapter implements Prober and marks
// unreachable ones unavailable. Probes run concurrently.
func ProbeAll(ctx context.Context, providers []*Provider) {
	var wg sync.WaitGroup
	for _, p := range providers {
		prober, ok := p.Adapter.(Prober)
		if !ok || !p.Available() {
			continue
		}
		wg.Add(1)
		go func(p *Provider, prober Prober) {
			defer wg.Done()
			if err := prober.Probe(ctx); err != nil {
				log.Printf("[provider] %s unreachable: %v", p.Name, err)
				p.SetAvailable(false)
				p.SetLastError(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
				return
			}
			p.SetAvailable(true)
		}(p, prober)
	}
	wg.Wait()
}
