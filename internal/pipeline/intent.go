package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/misterprompt/brain-ai/internal/cache"
	"github.com/misterprompt/brain-ai/internal/router"
	"github.com/misterprompt/brain-ai/pkg/models"
)

// Intent is the query plan produced by classification.
type Intent struct {
	Domain           models.Domain     `json:"domain"`
	Categories       []models.Category `json:"categories"`
	PriorityKeywords []string          `json:"priority_keywords"`
	Exclude          []models.Category `json:"exclude,omitempty"`
	// Source is "llm" or "keywords".
	Source string `json:"source"`
}

// Intent sources.
const (
	IntentFromLLM      = "llm"
	IntentFromKeywords = "keywords"
)

// Classifier turns a query into an Intent. Implementations must always
// return a usable intent; errors are reserved for cancellation.
type Classifier interface {
	Classify(ctx context.Context, query string) (Intent, error)
}

// Generator produces completions. *router.Router implements it.
type Generator interface {
	Route(ctx context.Context, req router.Request) (*router.Result, error)
}

var _ Generator = (*router.Router)(nil)

type keywordRule struct {
	domain     models.Domain
	keywords   []string
	categories []models.Category
}

// keywordRules are checked in order; the first match wins.
var keywordRules = []keywordRule{
	{
		domain:     models.DomainHealth,
		keywords:   []string{"cancer", "diabète", "diabetes", "maladie", "disease", "traitement", "treatment", "symptome", "symptom", "medical", "santé", "health"},
		categories: []models.Category{models.CategoryAcademic, models.CategoryOfficialHealth},
	},
	{
		domain:     models.DomainFinance,
		keywords:   []string{"bitcoin", "crypto", "bourse", "stock", "investir", "invest", "action", "finance", "économie", "economy"},
		categories: []models.Category{models.CategoryStatistics, models.CategoryWeb, models.CategoryAcademic},
	},
	{
		domain:     models.DomainTech,
		keywords:   []string{"python", "javascript", "code", "algorithm", "machine learning", "ai", "api"},
		categories: []models.Category{models.CategoryAcademic, models.CategoryWeb},
	},
}

var generalCategories = []models.Category{models.CategoryAcademic, models.CategoryWeb, models.CategoryBooks}

// KeywordClassifier matches queries against fixed keyword lists. Single
// words match whole tokens; phrases match as substrings.
type KeywordClassifier struct{}

// Classify never fails.
func (KeywordClassifier) Classify(_ context.Context, query string) (Intent, error) {
	return classifyKeywords(query), nil
}

func classifyKeywords(query string) Intent {
	lower := strings.ToLower(query)
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(lower, isSeparator) {
		tokens[tok] = true
	}

	intent := Intent{
		Domain:           models.DomainGeneral,
		Categories:       append([]models.Category(nil), generalCategories...),
		PriorityKeywords: priorityKeywords(query),
		Source:           IntentFromKeywords,
	}

	for _, rule := range keywordRules {
		if matchesAny(lower, tokens, rule.keywords) {
			intent.Domain = rule.domain
			intent.Categories = append([]models.Category(nil), rule.categories...)
			break
		}
	}
	return intent
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\n', ',', '.', ';', ':', '?', '!', '"', '\'', '(', ')':
		return true
	}
	return false
}

func matchesAny(lower string, tokens map[string]bool, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(lower, kw) {
				return true
			}
			continue
		}
		if tokens[kw] {
			return true
		}
	}
	return false
}

// priorityKeywords returns the first three words of the query.
func priorityKeywords(query string) []string {
	words := strings.Fields(query)
	if len(words) > 3 {
		words = words[:3]
	}
	return words
}

const intentPrompt = `You are a fast query classifier.

TASK: Analyse the user query and return JSON with:
1. "domain": the main domain (health, finance, tech, entertainment, science, general)
2. "categories": source categories to activate (academic, official_health, statistics, books, web)
3. "priority_keywords": 3-5 essential keywords for scoring results
4. "exclude": categories NOT to call

RULES:
- Medical query: activate "official_health" and "academic"
- Finance or crypto query: activate "statistics" and "web"
- Tech or code query: activate "academic" and "web"
- NEVER activate more than 3 categories

QUERY: %q

Reply ONLY with valid JSON, nothing else:`

// LLMClassifier asks a generator for the intent and falls back to keyword
// matching when the call fails or the reply is unusable.
type LLMClassifier struct {
	gen      Generator
	timeout  time.Duration
	fallback KeywordClassifier
}

// NewLLMClassifier creates an LLMClassifier. A zero timeout means 5s.
func NewLLMClassifier(gen Generator, timeout time.Duration) *LLMClassifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LLMClassifier{gen: gen, timeout: timeout}
}

// Classify returns the generator's intent, or the keyword intent on any
// failure other than cancellation of ctx.
func (c *LLMClassifier) Classify(ctx context.Context, query string) (Intent, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.gen.Route(callCtx, router.Request{
		Prompt:         fmt.Sprintf(intentPrompt, query),
		MaxTokens:      200,
		Temperature:    temperature(0.1),
		CacheNamespace: cache.NamespaceAI,
	})
	if err == nil {
		var intent Intent
		intent, err = parseIntent(res.Response, query)
		if err == nil {
			return intent, nil
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Intent{}, ctxErr
	}
	log.Printf("[pipeline] intent classification fell back to keywords: %v", err)
	return c.fallback.Classify(ctx, query)
}

var errNoJSON = errors.New("no JSON object in reply")

type rawIntent struct {
	Domain           string   `json:"domain"`
	Categories       []string `json:"categories"`
	PriorityKeywords []string `json:"priority_keywords"`
	Exclude          []string `json:"exclude"`
}

// parseIntent extracts the first JSON object from reply, tolerating code
// fences and surrounding prose.
func parseIntent(reply, query string) (Intent, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Intent{}, errNoJSON
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return Intent{}, fmt.Errorf("decode intent: %w", err)
	}

	domain := models.Domain(strings.ToLower(strings.TrimSpace(raw.Domain)))
	if !domain.Valid() {
		return Intent{}, fmt.Errorf("unknown domain %q", raw.Domain)
	}

	intent := Intent{
		Domain:           domain,
		Categories:       models.ParseCategories(raw.Categories),
		PriorityKeywords: raw.PriorityKeywords,
		Exclude:          models.ParseCategories(raw.Exclude),
		Source:           IntentFromLLM,
	}
	if len(intent.Categories) == 0 {
		intent.Categories = models.CategoriesFor(domain)
	}
	if len(intent.PriorityKeywords) == 0 {
		intent.PriorityKeywords = priorityKeywords(query)
	}
	return intent, nil
}

func temperature(v float64) *float64 { return &v }
