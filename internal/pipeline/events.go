package pipeline

import (
	"time"

	"github.com/misterprompt/brain-ai/pkg/models"
)

// EventType represents the type of pipeline event.
type EventType string

const (
	// EventIntent carries the classified query plan.
	EventIntent EventType = "intent"
	// EventFastResults reports the fast tier.
	EventFastResults EventType = "fast_results"
	// EventPartialSynthesis carries the intro written from fast results.
	EventPartialSynthesis EventType = "partial_synthesis"
	// EventMediumResults reports the medium tier.
	EventMediumResults EventType = "medium_results"
	// EventUpdatedSynthesis carries the synthesis extended with medium results.
	EventUpdatedSynthesis EventType = "updated_synthesis"
	// EventSlowResults reports the slow tier.
	EventSlowResults EventType = "slow_results"
	// EventReranked carries the top results after semantic scoring.
	EventReranked EventType = "reranked"
	// EventFinalSynthesis carries the concluding synthesis.
	EventFinalSynthesis EventType = "final_synthesis"
	// EventComplete ends a successful run.
	EventComplete EventType = "complete"
	// EventError ends a run that hit an unexpected failure.
	EventError EventType = "error"
)

// Terminal reports whether t ends a run.
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// Event is one entry in a run's stream. Events are never mutated after
// emission.
type Event struct {
	RunID     string    `json:"run_id"`
	Type      EventType `json:"type"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// IntentData is the payload of EventIntent.
type IntentData struct {
	Intent
	ElapsedMs int64 `json:"elapsed_ms"`
}

// Skip reasons reported in TierData and RerankData.
const (
	ReasonNoSources   = "no_sources"
	ReasonSufficient  = "sufficient"
	ReasonNoGenerator = "no_generator"
	ReasonNoResults   = "no_results"
)

// TierData is the payload of the tier result events.
type TierData struct {
	Tier      models.Tier `json:"tier"`
	Count     int         `json:"count"`
	Total     int         `json:"total"`
	ElapsedMs int64       `json:"elapsed_ms"`
	Providers []string    `json:"providers"`
	Failed    int         `json:"failed"`
	Skipped   bool        `json:"skipped,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// SynthesisData is the payload of the partial and updated synthesis events.
// Skipped is set when there was no generator or no new results to write
// about.
type SynthesisData struct {
	Phase    Phase  `json:"phase"`
	Text     string `json:"text"`
	Degraded bool   `json:"degraded,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// RankedResult is one entry of RerankData.
type RankedResult struct {
	Title    string `json:"title"`
	Score    int    `json:"score"`
	Provider string `json:"provider"`
}

// RerankData is the payload of EventReranked.
type RerankData struct {
	TopResults []RankedResult `json:"top_results"`
	Skipped    bool           `json:"skipped,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// FinalSynthesisData is the payload of EventFinalSynthesis.
type FinalSynthesisData struct {
	Text         string   `json:"text"`
	SourcesUsed  int      `json:"sources_used"`
	TotalSources int      `json:"total_sources"`
	Degraded     bool     `json:"degraded,omitempty"`
	Confidence   float64  `json:"confidence"`
	Warnings     []string `json:"warnings,omitempty"`
}

// CompleteData is the payload of EventComplete.
type CompleteData struct {
	TotalTimeMs  int64    `json:"total_time_ms"`
	TotalSources int      `json:"total_sources"`
	Stages       []string `json:"stages"`
}

// ErrorData is the payload of EventError.
type ErrorData struct {
	Message string `json:"message"`
}
