package router

import (
	"fmt"
	"strings"
)

// SystemPromptHook shapes the system prompt sent to one provider. sources
// are the titles of the material the answer should be grounded in.
type SystemPromptHook func(provider, systemPrompt string, sources []string) string

const maxGroundingSources = 5

const guardrails = `STRICT RULES:

1. GROUNDING
   - Every factual claim must be tied to the provided sources.
   - If something is not in the sources, say it comes from general knowledge.
   - Never invent figures, dates or facts.

2. UNCERTAINTY
   - When unsure, say so ("it appears that", "according to the sources", "probably").
   - If sources contradict each other, point it out.

3. CITATIONS
   - Mention a source when you use it ("According to [source], ...").

4. LIMITS
   - Do not invent statistics or quotations.
   - Do not attribute statements to people without a source.
`

// GroundingHook prepends the anti-hallucination guardrails and up to five
// source titles to the system prompt.
func GroundingHook(_ string, systemPrompt string, sources []string) string {
	var sb strings.Builder
	sb.WriteString(guardrails)

	if len(sources) > 0 {
		sb.WriteString("\nAVAILABLE SOURCES:\n")
		for i, title := range sources {
			if i == maxGroundingSources {
				break
			}
			if title == "" {
				title = "Source"
			}
			fmt.Fprintf(&sb, "%d. %s\n", i+1, title)
		}
	}

	if systemPrompt != "" {
		sb.WriteString("\n\n")
		sb.WriteString(systemPrompt)
	}
	return sb.String()
}

// Confidence levels reported by ValidateResponse.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Validation is a heuristic judgement of a generated answer.
type Validation struct {
	Confidence     float64
	Level          string
	Warnings       []string
	RequiresReview bool
}

var suspectPatterns = []struct {
	pattern string
	warning string
}{
	{"selon une étude de 2024", "suspicious study date"},
	{"100% des", "suspicious absolute statistic"},
	{"100% of", "suspicious absolute statistic"},
	{"tous les experts", "suspicious generalisation"},
	{"all experts", "suspicious generalisation"},
	{"il est prouvé que", "categorical claim without source"},
	{"it is proven that", "categorical claim without source"},
	{"scientifiquement prouvé", "scientific claim without citation"},
	{"scientifically proven", "scientific claim without citation"},
}

var citationKeywords = []string{"selon", "d'après", "according to", "source", "found", "indique", "indicates"}

const longResponseChars = 3000

// ValidateResponse flags suspect absolute claims in text. hasSources turns
// on the missing-citation check.
func ValidateResponse(text string, hasSources bool) Validation {
	confidence := 1.0
	var warnings []string

	lower := strings.ToLower(text)
	for _, sp := range suspectPatterns {
		if strings.Contains(lower, sp.pattern) {
			warnings = append(warnings, sp.warning)
			confidence -= 0.1
		}
	}

	if len(text) > longResponseChars {
		warnings = append(warnings, "very long response, review recommended")
		confidence -= 0.1
	}

	if hasSources {
		cited := false
		for _, kw := range citationKeywords {
			if strings.Contains(lower, kw) {
				cited = true
				break
			}
		}
		if !cited {
			warnings = append(warnings, "no citations although sources were provided")
			confidence -= 0.15
		}
	}

	level := ConfidenceLow
	switch {
	case confidence > 0.8:
		level = ConfidenceHigh
	case confidence > 0.6:
		level = ConfidenceMedium
	}

	return Validation{
		Confidence:     min(1.0, max(0.3, confidence)),
		Level:          level,
		Warnings:       warnings,
		RequiresReview: confidence < 0.6,
	}
}
