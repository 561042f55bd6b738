package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/misterprompt/brain-ai/internal/router"
)

// Phase is a synthesis stage.
type Phase string

const (
	PhaseIntro    Phase = "intro"
	PhaseDevelop  Phase = "develop"
	PhaseConclude Phase = "conclude"
)

var phaseInstructions = map[Phase]string{
	PhaseIntro:    "Write a 2-3 sentence introduction presenting the topic and what the first sources show.",
	PhaseDevelop:  "Develop the analysis with the new information. Add factual details.",
	PhaseConclude: "Provide a complete synthesis and a conclusion based on all the sources.",
}

const synthesisPrompt = `You are an academic research assistant.

CURRENT CONTEXT (sources received so far):
%s

QUERY: %q

INSTRUCTION:
%s

Answer directly, concisely and factually.`

const synthesisSystemPrompt = "You summarise research sources for a user. Stay factual."

// maxTokens returns the completion budget for the phase.
func (p Phase) maxTokens() int {
	if p == PhaseIntro {
		return 500
	}
	return 1000
}

// fallbackSynthesis is the text used when no synthesis could be produced.
func fallbackSynthesis(n int) string {
	return fmt.Sprintf("[Synthesis pending - %d sources analysed]", n)
}

type synthesizer struct {
	gen          Generator
	contextSize  int
	snippetChars int
}

// buildContext formats the first contextSize items, one per line.
func (s synthesizer) buildContext(items []Item) string {
	if len(items) > s.contextSize {
		items = items[:s.contextSize]
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d] %s: %s", i+1, it.Provider, truncate(it.Snippet, s.snippetChars))
	}
	return b.String()
}

// synthesize writes the phase's text from items. It reports degraded when
// the generator failed and the fallback text was used instead.
func (s synthesizer) synthesize(ctx context.Context, query string, items []Item, phase Phase) (text string, degraded bool) {
	if s.gen == nil || len(items) == 0 {
		return fallbackSynthesis(len(items)), true
	}

	instruction, ok := phaseInstructions[phase]
	if !ok {
		instruction = phaseInstructions[PhaseDevelop]
	}

	shown := items
	if len(shown) > s.contextSize {
		shown = shown[:s.contextSize]
	}

	res, err := s.gen.Route(ctx, router.Request{
		Prompt:       fmt.Sprintf(synthesisPrompt, s.buildContext(items), query, instruction),
		SystemPrompt: synthesisSystemPrompt,
		MaxTokens:    phase.maxTokens(),
		Temperature:  temperature(0.3),
		Sources:      titles(shown),
	})
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[pipeline] %s synthesis failed: %v", phase, err)
		}
		return fallbackSynthesis(len(items)), true
	}
	return strings.TrimSpace(res.Response), false
}
