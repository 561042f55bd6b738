package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/misterprompt/brain-ai/internal/breaker"
	"github.com/misterprompt/brain-ai/internal/cache"
	"github.com/misterprompt/brain-ai/internal/config"
	"github.com/misterprompt/brain-ai/internal/fetch"
	"github.com/misterprompt/brain-ai/internal/pipeline"
	"github.com/misterprompt/brain-ai/internal/provider"
	"github.com/misterprompt/brain-ai/internal/quota"
	"github.com/misterprompt/brain-ai/internal/router"
	"github.com/misterprompt/brain-ai/internal/store"
)

// app holds the components built once at startup.
type app struct {
	cfg      *config.Config
	db       *store.DB
	cache    *cache.Cache
	router   *router.Router
	registry *fetch.Registry
	builder  fetch.Builder
	pipeline *pipeline.Orchestrator
}

// loadConfig reads the --config file when given, otherwise the user and
// project config, and validates the result.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp wires the store, cache, quota counter, breakers, providers, router,
// source registry and pipeline from cfg. probe checks local providers before
// the first request.
func newApp(ctx context.Context, cfg *config.Config, probe bool) (*app, error) {
	a := &app{cfg: cfg}

	// The shared store is optional; without it quota and cache fall back to
	// process memory.
	var counters store.Counter = store.NewMemory()
	var shared store.KV
	if !cfg.Store.Disabled {
		path := cfg.Store.Path
		if path == "" {
			path = store.DefaultPath()
		}
		db, err := store.OpenMigrated(path)
		if err != nil {
			log.Printf("[store] %v, using in-process store", err)
		} else {
			a.db = db
			counters = db
			shared = db
		}
	}

	a.cache = cache.New(ctx, shared, cache.Config{
		Capacity:  cfg.Cache.Capacity,
		OpTimeout: cfg.Store.OpTimeout,
	})
	ttls := cache.TTLs{
		Search: cfg.Cache.SearchTTL,
		API:    cfg.Cache.APITTL,
		AI:     cfg.Cache.AITTL,
		Expert: cfg.Cache.ExpertTTL,
	}

	providers, err := provider.Build(cfg.Providers, cfg.Retry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build providers: %w", err)
	}
	if probe {
		provider.ProbeAll(ctx, providers)
	}

	breakers := breaker.NewRegistry(breaker.Config{
		Threshold: cfg.Breaker.Threshold,
		Cooldown:  cfg.Breaker.Cooldown,
	})

	a.router, err = router.New(providers, quota.NewCounter(counters, cfg.Store.OpTimeout), breakers,
		router.WithSystemPromptHook(router.GroundingHook),
		router.WithCache(a.cache, ttls),
		router.WithMiddleware(provider.WithTimeout(cfg.Retry.AttemptTimeout)),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create router: %w", err)
	}

	a.registry = fetch.NewRegistry()
	a.builder = fetch.Builder{Client: &http.Client{}, Cache: a.cache}
	if cfg.Catalog.Path != "" {
		n, err := fetch.Reload(cfg.Catalog.Path, a.registry, a.builder.Build)
		if err != nil {
			log.Printf("[fetch] %v, starting with no sources", err)
		} else {
			log.Printf("[fetch] loaded %d sources from %s", n, cfg.Catalog.Path)
		}
	}

	a.pipeline = pipeline.New(a.registry, fetch.NewExecutor(cfg.Pipeline.Concurrency),
		pipeline.WithGenerator(a.router),
		pipeline.WithConfig(cfg.Pipeline),
	)
	return a, nil
}

// watchCatalog reloads the registry whenever the catalog file changes. It
// blocks until ctx is done.
func (a *app) watchCatalog(ctx context.Context) error {
	if a.cfg.Catalog.Path == "" {
		return nil
	}
	return fetch.WatchCatalog(ctx, a.cfg.Catalog.Path, a.registry, a.builder.Build)
}

// Close releases the store.
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// setup loads config and builds the app for a command.
func setup(ctx context.Context, probe bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, probe)
}
