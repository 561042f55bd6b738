package pipeline

import (
	"time"

	"github.com/misterprompt/brain-ai/internal/config"
)

// Option configures an Orchestrator.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	gen        Generator
	classifier Classifier
	cfg        config.PipelineConfig
	now        func() time.Time
}

// WithGenerator sets the completion source for classification, synthesis
// and rerank. Without one the run still fetches and emits every event, with
// fallback text and an unscored ranking.
func WithGenerator(g Generator) Option {
	return func(o *orchestratorOptions) {
		o.gen = g
	}
}

// WithClassifier overrides the intent classifier.
func WithClassifier(c Classifier) Option {
	return func(o *orchestratorOptions) {
		o.classifier = c
	}
}

// WithConfig sets tier timeouts and stage limits. Zero fields keep their
// defaults.
func WithConfig(cfg config.PipelineConfig) Option {
	return func(o *orchestratorOptions) {
		o.cfg = cfg
	}
}

// WithClock sets the time source used for event timestamps and timings.
func WithClock(now func() time.Time) Option {
	return func(o *orchestratorOptions) {
		o.now = now
	}
}

// withDefaults fills zero fields of cfg from config.DefaultPipeline.
func withDefaults(cfg config.PipelineConfig) config.PipelineConfig {
	def := config.DefaultPipeline()
	if cfg.FastTimeout <= 0 {
		cfg.FastTimeout = def.FastTimeout
	}
	if cfg.MediumTimeout <= 0 {
		cfg.MediumTimeout = def.MediumTimeout
	}
	if cfg.SlowTimeout <= 0 {
		cfg.SlowTimeout = def.SlowTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.SufficiencyThreshold <= 0 {
		cfg.SufficiencyThreshold = def.SufficiencyThreshold
	}
	if cfg.RerankConcurrency <= 0 {
		cfg.RerankConcurrency = def.RerankConcurrency
	}
	if cfg.RerankWindow <= 0 {
		cfg.RerankWindow = def.RerankWindow
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.ContextSize <= 0 {
		cfg.ContextSize = def.ContextSize
	}
	if cfg.SnippetChars <= 0 {
		cfg.SnippetChars = def.SnippetChars
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = def.ClassifyTimeout
	}
	return cfg
}
