// Package pipeline runs a query through intent classification, three fetch
// tiers, rerank and synthesis, streaming one event per stage.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/misterprompt/brain-ai/internal/config"
	"github.com/misterprompt/brain-ai/internal/fetch"
	"github.com/misterprompt/brain-ai/internal/router"
	"github.com/misterprompt/brain-ai/pkg/models"
)

// maxTopResults bounds the reranked event payload.
const maxTopResults = 10

// Orchestrator runs queries against a source registry. It holds no per-run
// state and is safe for concurrent use.
type Orchestrator struct {
	registry   *fetch.Registry
	executor   *fetch.Executor
	gen        Generator
	classifier Classifier
	cfg        config.PipelineConfig
	now        func() time.Time
	synth      synthesizer
	rerank     reranker
}

// New creates an Orchestrator. A nil executor uses the configured
// concurrency. Without WithClassifier, the classifier is an LLMClassifier
// when a generator is set and a KeywordClassifier otherwise.
func New(registry *fetch.Registry, executor *fetch.Executor, opts ...Option) *Orchestrator {
	var o orchestratorOptions
	for _, opt := range opts {
		opt(&o)
	}
	cfg := withDefaults(o.cfg)

	if executor == nil {
		executor = fetch.NewExecutor(cfg.Concurrency)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.classifier == nil {
		if o.gen != nil {
			o.classifier = NewLLMClassifier(o.gen, cfg.ClassifyTimeout)
		} else {
			o.classifier = KeywordClassifier{}
		}
	}

	return &Orchestrator{
		registry:   registry,
		executor:   executor,
		gen:        o.gen,
		classifier: o.classifier,
		cfg:        cfg,
		now:        o.now,
		synth: synthesizer{
			gen:          o.gen,
			contextSize:  cfg.ContextSize,
			snippetChars: cfg.SnippetChars,
		},
		rerank: reranker{
			gen:         o.gen,
			concurrency: cfg.RerankConcurrency,
			window:      cfg.RerankWindow,
			topK:        cfg.TopK,
		},
	}
}

// run is the state of a single Run call.
type run struct {
	id     string
	seq    int
	sink   Sink
	stages []string
}

// Run streams the stages for query to sink. It returns ctx.Err() when the
// context ends mid-run, in which case no further events are emitted. Stage
// failures degrade that stage's payload; the stream then ends with exactly
// one complete or error event.
func (o *Orchestrator) Run(ctx context.Context, query string, sink Sink) (err error) {
	r := &run{id: uuid.New().String(), sink: sink}
	start := o.now()

	defer func() {
		if rec := recover(); rec != nil {
			err = o.abort(ctx, r, rec)
		}
	}()

	log.Printf("[pipeline] run %s started", r.id)

	intentStart := o.now()
	intent, err := o.classifier.Classify(ctx, query)
	if err != nil {
		return err
	}
	if err := o.emit(ctx, r, EventIntent, IntentData{Intent: intent, ElapsedMs: o.since(intentStart)}); err != nil {
		return err
	}

	fastItems, fastData := o.fetchTier(ctx, models.TierFast, query, intent, 0)
	if err := o.emit(ctx, r, EventFastResults, fastData); err != nil {
		return err
	}
	items := fastItems

	// The intro is written while the medium tier is fetched.
	introDone := make(chan introResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				introDone <- introResult{panicked: rec}
			}
		}()
		introDone <- introResult{data: o.synthesis(ctx, query, fastItems, len(fastItems), PhaseIntro)}
	}()

	mediumItems, mediumData := o.fetchTier(ctx, models.TierMedium, query, intent, len(items))
	intro := <-introDone
	if intro.panicked != nil {
		return o.abort(ctx, r, intro.panicked)
	}

	if err := o.emit(ctx, r, EventPartialSynthesis, intro.data); err != nil {
		return err
	}
	if err := o.emit(ctx, r, EventMediumResults, mediumData); err != nil {
		return err
	}
	items = append(items, mediumItems...)

	develop := o.synthesis(ctx, query, items, len(mediumItems), PhaseDevelop)
	if err := o.emit(ctx, r, EventUpdatedSynthesis, develop); err != nil {
		return err
	}

	var slowData TierData
	if len(items) >= o.cfg.SufficiencyThreshold {
		slowData = TierData{Tier: models.TierSlow, Total: len(items), Skipped: true, Reason: ReasonSufficient}
		log.Printf("[pipeline] run %s skipping slow tier: %d results", r.id, len(items))
	} else {
		var slowItems []Item
		slowItems, slowData = o.fetchTier(ctx, models.TierSlow, query, intent, len(items))
		items = append(items, slowItems...)
	}
	if err := o.emit(ctx, r, EventSlowResults, slowData); err != nil {
		return err
	}

	ranked, skipReason := o.rerank.rerank(ctx, query, items)
	rerankData := RerankData{
		TopResults: topResults(ranked, maxTopResults),
		Skipped:    skipReason != "",
		Reason:     skipReason,
	}
	if err := o.emit(ctx, r, EventReranked, rerankData); err != nil {
		return err
	}

	text, degraded := o.synth.synthesize(ctx, query, ranked, PhaseConclude)
	validation := router.ValidateResponse(text, len(ranked) > 0 && !degraded)
	final := FinalSynthesisData{
		Text:         text,
		SourcesUsed:  len(ranked),
		TotalSources: len(items),
		Degraded:     degraded,
		Confidence:   validation.Confidence,
		Warnings:     validation.Warnings,
	}
	if err := o.emit(ctx, r, EventFinalSynthesis, final); err != nil {
		return err
	}

	complete := CompleteData{
		TotalTimeMs:  o.since(start),
		TotalSources: len(items),
		Stages:       r.stages,
	}
	if err := o.emit(ctx, r, EventComplete, complete); err != nil {
		return err
	}

	log.Printf("[pipeline] run %s complete: %d sources in %dms", r.id, len(items), complete.TotalTimeMs)
	return nil
}

type introResult struct {
	data     SynthesisData
	panicked any
}

// abort ends r after a recovered panic with a single error event.
func (o *Orchestrator) abort(ctx context.Context, r *run, rec any) error {
	log.Printf("[pipeline] run %s panicked: %v", r.id, rec)
	err := fmt.Errorf("pipeline panic: %v", rec)
	if ctx.Err() == nil {
		_ = o.emit(ctx, r, EventError, ErrorData{Message: err.Error()})
	}
	return err
}

// fetchTier selects the tier's sources for intent and runs them. prior is
// the number of items collected by earlier tiers.
func (o *Orchestrator) fetchTier(ctx context.Context, tier models.Tier, query string, intent Intent, prior int) ([]Item, TierData) {
	data := TierData{Tier: tier, Total: prior, Providers: []string{}}

	entries := o.registry.Select(tier, intent.Categories, intent.Exclude)
	if len(entries) == 0 {
		data.Skipped = true
		data.Reason = ReasonNoSources
		return nil, data
	}

	start := o.now()
	results := o.executor.RunTier(ctx, fetch.Sources(entries), query, o.timeout(tier))
	items := normalize(query, entries, results)

	data.Count = len(items)
	data.Total = prior + len(items)
	data.Failed = len(results) - len(items)
	data.ElapsedMs = o.since(start)
	data.Providers = providerNames(items)
	return items, data
}

// synthesis writes a phase over items. fresh is the number of items new to
// this phase; with none, or without a generator, the phase is skipped.
func (o *Orchestrator) synthesis(ctx context.Context, query string, items []Item, fresh int, phase Phase) SynthesisData {
	switch {
	case o.gen == nil:
		return SynthesisData{Phase: phase, Skipped: true, Reason: ReasonNoGenerator}
	case fresh == 0:
		return SynthesisData{Phase: phase, Skipped: true, Reason: ReasonNoResults}
	}
	text, degraded := o.synth.synthesize(ctx, query, items, phase)
	return SynthesisData{Phase: phase, Text: text, Degraded: degraded}
}

func (o *Orchestrator) timeout(tier models.Tier) time.Duration {
	switch tier {
	case models.TierFast:
		return o.cfg.FastTimeout
	case models.TierMedium:
		return o.cfg.MediumTimeout
	case models.TierSlow:
		return o.cfg.SlowTimeout
	default:
		return tier.DefaultTimeout()
	}
}

func (o *Orchestrator) since(t time.Time) int64 {
	return o.now().Sub(t).Milliseconds()
}

// emit stamps and delivers one event. Nothing is emitted once ctx is done.
func (o *Orchestrator) emit(ctx context.Context, r *run, typ EventType, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.seq++
	ev := Event{
		RunID:     r.id,
		Type:      typ,
		Sequence:  r.seq,
		Timestamp: o.now(),
		Data:      data,
	}
	if err := r.sink.Emit(ctx, ev); err != nil {
		return fmt.Errorf("emit %s: %w", typ, err)
	}
	r.stages = append(r.stages, string(typ))
	return nil
}

// providerNames returns the sorted distinct provider names of items.
func providerNames(items []Item) []string {
	seen := make(map[string]bool, len(items))
	names := []string{}
	for _, it := range items {
		if !seen[it.Provider] {
			seen[it.Provider] = true
			names = append(names, it.Provider)
		}
	}
	sort.Strings(names)
	return names
}
