package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/misterprompt/brain-ai/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Brain configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Provider settings use providers.<name>.<field>, for example
providers.groq.daily_quota.

Configuration is stored at ~/.config/brain/config.yaml
Project-specific overrides can be placed in .brain.yaml`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// scalarKeys lists the non-provider keys in display order.
var scalarKeys = []string{
	"retry.initial_interval",
	"retry.max_interval",
	"retry.attempt_timeout",
	"breaker.threshold",
	"breaker.cooldown",
	"store.path",
	"store.op_timeout",
	"store.disabled",
	"cache.capacity",
	"cache.search_ttl",
	"cache.api_ttl",
	"cache.ai_ttl",
	"cache.expert_ttl",
	"pipeline.fast_timeout",
	"pipeline.medium_timeout",
	"pipeline.slow_timeout",
	"pipeline.concurrency",
	"pipeline.sufficiency_threshold",
	"pipeline.rerank_concurrency",
	"pipeline.rerank_window",
	"pipeline.top_k",
	"pipeline.context_size",
	"pipeline.snippet_chars",
	"pipeline.classify_timeout",
	"catalog.path",
	"catalog.watch",
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	for _, p := range cfg.Providers {
		key, _ := config.ResolveAPIKey(p)
		keyDisplay := "(not set)"
		switch {
		case !config.NeedsAPIKey(p):
			keyDisplay = "(not needed)"
		case key != "":
			keyDisplay = config.MaskAPIKey(key) + " from " + string(config.APIKeySource(p))
		}

		state := ""
		if p.Disabled {
			state = " (disabled)"
		}
		fmt.Printf("providers.%s: %s %s priority=%d quota=%d%s\n", p.Name, p.Kind, p.Model, p.Priority, p.DailyQuota, state)
		fmt.Printf("providers.%s.api_key: %s\n", p.Name, keyDisplay)
	}
	for _, key := range scalarKeys {
		value, _ := getConfigValue(cfg, key)
		fmt.Printf("%s: %s\n", key, value)
	}
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	key = strings.ToLower(key)
	if name, field, ok := providerKey(key); ok {
		return getProviderValue(cfg, name, field)
	}

	switch key {
	case "retry.initial_interval":
		return cfg.Retry.InitialInterval.String(), nil
	case "retry.max_interval":
		return cfg.Retry.MaxInterval.String(), nil
	case "retry.attempt_timeout":
		return cfg.Retry.AttemptTimeout.String(), nil
	case "breaker.threshold":
		return strconv.Itoa(cfg.Breaker.Threshold), nil
	case "breaker.cooldown":
		return cfg.Breaker.Cooldown.String(), nil
	case "store.path":
		return cfg.Store.Path, nil
	case "store.op_timeout":
		return cfg.Store.OpTimeout.String(), nil
	case "store.disabled":
		return strconv.FormatBool(cfg.Store.Disabled), nil
	case "cache.capacity":
		return strconv.Itoa(cfg.Cache.Capacity), nil
	case "cache.search_ttl":
		return cfg.Cache.SearchTTL.String(), nil
	case "cache.api_ttl":
		return cfg.Cache.APITTL.String(), nil
	case "cache.ai_ttl":
		return cfg.Cache.AITTL.String(), nil
	case "cache.expert_ttl":
		return cfg.Cache.ExpertTTL.String(), nil
	case "pipeline.fast_timeout":
		return cfg.Pipeline.FastTimeout.String(), nil
	case "pipeline.medium_timeout":
		return cfg.Pipeline.MediumTimeout.String(), nil
	case "pipeline.slow_timeout":
		return cfg.Pipeline.SlowTimeout.String(), nil
	case "pipeline.concurrency":
		return strconv.Itoa(cfg.Pipeline.Concurrency), nil
	case "pipeline.sufficiency_threshold":
		return strconv.Itoa(cfg.Pipeline.SufficiencyThreshold), nil
	case "pipeline.rerank_concurrency":
		return strconv.Itoa(cfg.Pipeline.RerankConcurrency), nil
	case "pipeline.rerank_window":
		return strconv.Itoa(cfg.Pipeline.RerankWindow), nil
	case "pipeline.top_k":
		return strconv.Itoa(cfg.Pipeline.TopK), nil
	case "pipeline.context_size":
		return strconv.Itoa(cfg.Pipeline.ContextSize), nil
	case "pipeline.snippet_chars":
		return strconv.Itoa(cfg.Pipeline.SnippetChars), nil
	case "pipeline.classify_timeout":
		return cfg.Pipeline.ClassifyTimeout.String(), nil
	case "catalog.path":
		return cfg.Catalog.Path, nil
	case "catalog.watch":
		return strconv.FormatBool(cfg.Catalog.Watch), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	key = strings.ToLower(key)
	if name, field, ok := providerKey(key); ok {
		return setProviderValue(cfg, name, field, value)
	}

	switch key {
	case "retry.initial_interval":
		return setDuration(&cfg.Retry.InitialInterval, key, value)
	case "retry.max_interval":
		return setDuration(&cfg.Retry.MaxInterval, key, value)
	case "retry.attempt_timeout":
		return setDuration(&cfg.Retry.AttemptTimeout, key, value)
	case "breaker.threshold":
		return setInt(&cfg.Breaker.Threshold, key, value)
	case "breaker.cooldown":
		return setDuration(&cfg.Breaker.Cooldown, key, value)
	case "store.path":
		cfg.Store.Path = value
	case "store.op_timeout":
		return setDuration(&cfg.Store.OpTimeout, key, value)
	case "store.disabled":
		return setBool(&cfg.Store.Disabled, key, value)
	case "cache.capacity":
		return setInt(&cfg.Cache.Capacity, key, value)
	case "cache.search_ttl":
		return setDuration(&cfg.Cache.SearchTTL, key, value)
	case "cache.api_ttl":
		return setDuration(&cfg.Cache.APITTL, key, value)
	case "cache.ai_ttl":
		return setDuration(&cfg.Cache.AITTL, key, value)
	case "cache.expert_ttl":
		return setDuration(&cfg.Cache.ExpertTTL, key, value)
	case "pipeline.fast_timeout":
		return setDuration(&cfg.Pipeline.FastTimeout, key, value)
	case "pipeline.medium_timeout":
		return setDuration(&cfg.Pipeline.MediumTimeout, key, value)
	case "pipeline.slow_timeout":
		return setDuration(&cfg.Pipeline.SlowTimeout, key, value)
	case "pipeline.concurrency":
		return setInt(&cfg.Pipeline.Concurrency, key, value)
	case "pipeline.sufficiency_threshold":
		return setInt(&cfg.Pipeline.SufficiencyThreshold, key, value)
	case "pipeline.rerank_concurrency":
		return setInt(&cfg.Pipeline.RerankConcurrency, key, value)
	case "pipeline.rerank_window":
		return setInt(&cfg.Pipeline.RerankWindow, key, value)
	case "pipeline.top_k":
		return setInt(&cfg.Pipeline.TopK, key, value)
	case "pipeline.context_size":
		return setInt(&cfg.Pipeline.ContextSize, key, value)
	case "pipeline.snippet_chars":
		return setInt(&cfg.Pipeline.SnippetChars, key, value)
	case "pipeline.classify_timeout":
		return setDuration(&cfg.Pipeline.ClassifyTimeout, key, value)
	case "catalog.path":
		cfg.Catalog.Path = value
	case "catalog.watch":
		return setBool(&cfg.Catalog.Watch, key, value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// providerKey splits providers.<name>.<field>.
func providerKey(key string) (name, field string, ok bool) {
	rest, found := strings.CutPrefix(key, "providers.")
	if !found {
		return "", "", false
	}
	name, field, ok = strings.Cut(rest, ".")
	return name, field, ok && name != "" && field != ""
}

func findProvider(cfg *config.Config, name string) (*config.ProviderConfig, error) {
	for i := range cfg.Providers {
		if strings.EqualFold(cfg.Providers[i].Name, name) {
			return &cfg.Providers[i], nil
		}
	}
	return nil, fmt.Errorf("unknown provider: %s", name)
}

func getProviderValue(cfg *config.Config, name, field string) (string, error) {
	p, err := findProvider(cfg, name)
	if err != nil {
		return "", err
	}
	switch field {
	case "kind":
		return p.Kind, nil
	case "priority":
		return strconv.Itoa(p.Priority), nil
	case "daily_quota":
		return strconv.FormatInt(p.DailyQuota, 10), nil
	case "model":
		return p.Model, nil
	case "base_url":
		return p.BaseURL, nil
	case "timeout":
		return p.Timeout.String(), nil
	case "rate_per_minute":
		return strconv.Itoa(p.RatePerMinute), nil
	case "max_retries":
		return strconv.Itoa(p.MaxRetries), nil
	case "disabled":
		return strconv.FormatBool(p.Disabled), nil
	case "api_key":
		key, err := config.ResolveAPIKey(*p)
		if err != nil || key == "" {
			return "(not set)", nil
		}
		return config.MaskAPIKey(key), nil
	default:
		return "", fmt.Errorf("unknown provider field: %s", field)
	}
}

func setProviderValue(cfg *config.Config, name, field, value string) error {
	p, err := findProvider(cfg, name)
	if err != nil {
		return err
	}
	key := "providers." + name + "." + field
	switch field {
	case "priority":
		return setInt(&p.Priority, key, value)
	case "daily_quota":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		p.DailyQuota = n
	case "model":
		p.Model = value
	case "base_url":
		p.BaseURL = value
	case "timeout":
		return setDuration(&p.Timeout, key, value)
	case "rate_per_minute":
		return setInt(&p.RatePerMinute, key, value)
	case "max_retries":
		return setInt(&p.MaxRetries, key, value)
	case "disabled":
		return setBool(&p.Disabled, key, value)
	case "api_key":
		if err := config.ValidateAPIKey(p.Kind, value); err != nil {
			return err
		}
		return fmt.Errorf("API keys are not written to config; export %s instead", apiKeyEnvName(*p))
	default:
		return fmt.Errorf("unknown provider field: %s", field)
	}
	return nil
}

func apiKeyEnvName(p config.ProviderConfig) string {
	if p.APIKeyEnv != "" {
		return p.APIKeyEnv
	}
	return strings.ToUpper(p.Name) + "_API_KEY"
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	*dst = b
	return nil
}
