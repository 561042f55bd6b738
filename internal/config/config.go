// Package config handles configuration loading and management for brain.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for brain.
type Config struct {
	Providers []ProviderConfig `mapstructure:"providers"`
	Retry     RetryConfig      `mapstructure:"retry"`
	Breaker   BreakerConfig    `mapstructure:"breaker"`
	Store     StoreConfig      `mapstructure:"store"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Pipeline  PipelineConfig   `mapstructure:"pipeline"`
	Catalog   CatalogConfig    `mapstructure:"catalog"`
}

// ProviderConfig describes one completion provider.
type ProviderConfig struct {
	Name     string `mapstructure:"name"`
	Kind     string `mapstructure:"kind"`
	Priority int    `mapstructure:"priority"`
	// DailyQuota is the number of calls allowed per UTC day. 0 means unlimited.
	DailyQuota int64  `mapstructure:"daily_quota"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string `mapstructure:"api_key_env"`
	// APIKey may contain ${VAR} references.
	APIKey        string            `mapstructure:"api_key"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	RatePerMinute int               `mapstructure:"rate_per_minute"`
	MaxRetries    int               `mapstructure:"max_retries"`
	Headers       map[string]string `mapstructure:"headers"`
	Disabled      bool              `mapstructure:"disabled"`

	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// RetryConfig holds the backoff shared by all providers.
type RetryConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	// AttemptTimeout bounds a single attempt inside the retry loop. 0 leaves
	// each adapter's own timeout in charge.
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Threshold int           `mapstructure:"threshold"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
}

// StoreConfig holds the shared store settings.
type StoreConfig struct {
	Path      string        `mapstructure:"path"`
	OpTimeout time.Duration `mapstructure:"op_timeout"`
	Disabled  bool          `mapstructure:"disabled"`
}

// CacheConfig holds cache capacity and per-namespace TTLs.
type CacheConfig struct {
	Capacity  int           `mapstructure:"capacity"`
	SearchTTL time.Duration `mapstructure:"search_ttl"`
	APITTL    time.Duration `mapstructure:"api_ttl"`
	AITTL     time.Duration `mapstructure:"ai_ttl"`
	ExpertTTL time.Duration `mapstructure:"expert_ttl"`
}

// PipelineConfig holds the tiered fetch and synthesis settings.
type PipelineConfig struct {
	FastTimeout          time.Duration `mapstructure:"fast_timeout"`
	MediumTimeout        time.Duration `mapstructure:"medium_timeout"`
	SlowTimeout          time.Duration `mapstructure:"slow_timeout"`
	Concurrency          int           `mapstructure:"concurrency"`
	SufficiencyThreshold int           `mapstructure:"sufficiency_threshold"`
	RerankConcurrency    int           `mapstructure:"rerank_concurrency"`
	RerankWindow         int           `mapstructure:"rerank_window"`
	TopK                 int           `mapstructure:"top_k"`
	ContextSize          int           `mapstructure:"context_size"`
	SnippetChars         int           `mapstructure:"snippet_chars"`
	ClassifyTimeout      time.Duration `mapstructure:"classify_timeout"`
}

// CatalogConfig locates the source catalog.
type CatalogConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (provider keys, OLLAMA_URL)
// 2. Project config (.brain.yaml in current directory or parent)
// 3. User config (~/.config/brain/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.BindEnv("store.path", "BRAIN_STORE_PATH")
	v.BindEnv("catalog.path", "BRAIN_CATALOG")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	applyEnv(cfg)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	applyEnv(cfg)

	return cfg, nil
}

// applyEnv applies environment overrides that viper cannot bind to list
// entries.
func applyEnv(cfg *Config) {
	ollamaURL := os.Getenv("OLLAMA_URL")
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		p.APIKey = expandEnv(p.APIKey)
		if p.Kind == KindOllama && ollamaURL != "" {
			p.BaseURL = ollamaURL
		}
	}
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	providers := make([]map[string]any, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		entry := map[string]any{
			"name":        p.Name,
			"kind":        p.Kind,
			"priority":    p.Priority,
			"daily_quota": p.DailyQuota,
			"model":       p.Model,
			"base_url":    p.BaseURL,
			"api_key_env": p.APIKeyEnv,
			"timeout":     p.Timeout.String(),
		}
		if p.RatePerMinute > 0 {
			entry["rate_per_minute"] = p.RatePerMinute
		}
		if p.MaxRetries > 0 {
			entry["max_retries"] = p.MaxRetries
		}
		if p.Disabled {
			entry["disabled"] = true
		}
		if p.UseBedrock {
			entry["use_bedrock"] = true
			entry["aws_region"] = p.AWSRegion
			entry["aws_profile"] = p.AWSProfile
		}
		providers = append(providers, entry)
	}
	v.Set("providers", providers)

	v.Set("retry.initial_interval", cfg.Retry.InitialInterval.String())
	v.Set("retry.max_interval", cfg.Retry.MaxInterval.String())
	v.Set("retry.attempt_timeout", cfg.Retry.AttemptTimeout.String())
	v.Set("breaker.threshold", cfg.Breaker.Threshold)
	v.Set("breaker.cooldown", cfg.Breaker.Cooldown.String())
	v.Set("store.path", cfg.Store.Path)
	v.Set("store.op_timeout", cfg.Store.OpTimeout.String())
	v.Set("store.disabled", cfg.Store.Disabled)
	v.Set("cache.capacity", cfg.Cache.Capacity)
	v.Set("cache.search_ttl", cfg.Cache.SearchTTL.String())
	v.Set("cache.api_ttl", cfg.Cache.APITTL.String())
	v.Set("cache.ai_ttl", cfg.Cache.AITTL.String())
	v.Set("cache.expert_ttl", cfg.Cache.ExpertTTL.String())
	v.Set("pipeline.fast_timeout", cfg.Pipeline.FastTimeout.String())
	v.Set("pipeline.medium_timeout", cfg.Pipeline.MediumTimeout.String())
	v.Set("pipeline.slow_timeout", cfg.Pipeline.SlowTimeout.String())
	v.Set("pipeline.concurrency", cfg.Pipeline.Concurrency)
	v.Set("pipeline.sufficiency_threshold", cfg.Pipeline.SufficiencyThreshold)
	v.Set("pipeline.rerank_concurrency", cfg.Pipeline.RerankConcurrency)
	v.Set("pipeline.rerank_window", cfg.Pipeline.RerankWindow)
	v.Set("pipeline.top_k", cfg.Pipeline.TopK)
	v.Set("pipeline.context_size", cfg.Pipeline.ContextSize)
	v.Set("pipeline.snippet_chars", cfg.Pipeline.SnippetChars)
	v.Set("pipeline.classify_timeout", cfg.Pipeline.ClassifyTimeout.String())
	v.Set("catalog.path", cfg.Catalog.Path)
	v.Set("catalog.watch", cfg.Catalog.Watch)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	providers := make([]map[string]any, 0, len(d.Providers))
	for _, p := range d.Providers {
		entry := map[string]any{
			"name":        p.Name,
			"kind":        p.Kind,
			"priority":    p.Priority,
			"daily_quota": p.DailyQuota,
			"model":       p.Model,
			"base_url":    p.BaseURL,
			"api_key_env": p.APIKeyEnv,
			"timeout":     p.Timeout.String(),
		}
		if p.RatePerMinute > 0 {
			entry["rate_per_minute"] = p.RatePerMinute
		}
		if p.MaxRetries > 0 {
			entry["max_retries"] = p.MaxRetries
		}
		providers = append(providers, entry)
	}
	v.SetDefault("providers", providers)

	v.SetDefault("retry.initial_interval", "200ms")
	v.SetDefault("retry.max_interval", "2s")
	v.SetDefault("retry.attempt_timeout", "0s")

	v.SetDefault("breaker.threshold", 5)
	v.SetDefault("breaker.cooldown", "60s")

	v.SetDefault("store.path", "")
	v.SetDefault("store.op_timeout", "250ms")
	v.SetDefault("store.disabled", false)

	v.SetDefault("cache.capacity", 2000)
	v.SetDefault("cache.search_ttl", "1h")
	v.SetDefault("cache.api_ttl", "30m")
	v.SetDefault("cache.ai_ttl", "24h")
	v.SetDefault("cache.expert_ttl", "120s")

	v.SetDefault("pipeline.fast_timeout", "2s")
	v.SetDefault("pipeline.medium_timeout", "4s")
	v.SetDefault("pipeline.slow_timeout", "8s")
	v.SetDefault("pipeline.concurrency", 16)
	v.SetDefault("pipeline.sufficiency_threshold", 20)
	v.SetDefault("pipeline.rerank_concurrency", 10)
	v.SetDefault("pipeline.rerank_window", 30)
	v.SetDefault("pipeline.top_k", 20)
	v.SetDefault("pipeline.context_size", 15)
	v.SetDefault("pipeline.snippet_chars", 200)
	v.SetDefault("pipeline.classify_timeout", "5s")

	v.SetDefault("catalog.path", "configs/sources.yaml")
	v.SetDefault("catalog.watch", false)
}

// getUserConfigDir returns the XDG config directory for brain.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "brain")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "brain")
	}
	return filepath.Join(home, ".config", "brain")
}

// findProjectConfig searches for .brain.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".brain.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Providers: DefaultProviders(),
		Retry: RetryConfig{
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		},
		Breaker: BreakerConfig{
			Threshold: 5,
			Cooldown:  60 * time.Second,
		},
		Store: StoreConfig{
			OpTimeout: 250 * time.Millisecond,
		},
		Cache: CacheConfig{
			Capacity:  2000,
			SearchTTL: time.Hour,
			APITTL:    30 * time.Minute,
			AITTL:     24 * time.Hour,
			ExpertTTL: 120 * time.Second,
		},
		Pipeline: DefaultPipeline(),
		Catalog: CatalogConfig{
			Path: "configs/sources.yaml",
		},
	}
}

// DefaultPipeline returns the default pipeline settings.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		FastTimeout:          2 * time.Second,
		MediumTimeout:        4 * time.Second,
		SlowTimeout:          8 * time.Second,
		Concurrency:          16,
		SufficiencyThreshold: 20,
		RerankConcurrency:    10,
		RerankWindow:         30,
		TopK:                 20,
		ContextSize:          15,
		SnippetChars:         200,
		ClassifyTimeout:      5 * time.Second,
	}
}
