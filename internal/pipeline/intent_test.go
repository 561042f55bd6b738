package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/misterprompt/brain-ai/internal/router"
	"github.com/misterprompt/brain-ai/pkg/models"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		query      string
		domain     models.Domain
		categories []models.Category
	}{
		{"traitement du diabète", models.DomainHealth, []models.Category{models.CategoryAcademic, models.CategoryOfficialHealth}},
		{"Bitcoin price today", models.DomainFinance, []models.Category{models.CategoryStatistics, models.CategoryWeb, models.CategoryAcademic}},
		{"Machine Learning basics", models.DomainTech, []models.Category{models.CategoryAcademic, models.CategoryWeb}},
		{"is AI safe?", models.DomainTech, []models.Category{models.CategoryAcademic, models.CategoryWeb}},
		{"the maintenance of trains", models.DomainGeneral, []models.Category{models.CategoryAcademic, models.CategoryWeb, models.CategoryBooks}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := KeywordClassifier{}.Classify(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got.Domain != tt.domain {
				t.Errorf("Domain = %q, want %q", got.Domain, tt.domain)
			}
			if !reflect.DeepEqual(got.Categories, tt.categories) {
				t.Errorf("Categories = %v, want %v", got.Categories, tt.categories)
			}
			if got.Source != IntentFromKeywords {
				t.Errorf("Source = %q, want keywords", got.Source)
			}
		})
	}
}

func TestPriorityKeywords(t *testing.T) {
	got := priorityKeywords("what is the bitcoin price")
	want := []string{"what", "is", "the"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("priorityKeywords() = %v, want %v", got, want)
	}
	if got := priorityKeywords("bitcoin"); len(got) != 1 {
		t.Errorf("priorityKeywords(bitcoin) = %v, want one word", got)
	}
}

func replying(text string, err error) genFunc {
	return func(ctx context.Context, req router.Request) (*router.Result, error) {
		if err != nil {
			return nil, err
		}
		return &router.Result{Response: text}, nil
	}
}

func TestLLMClassifier(t *testing.T) {
	tests := []struct {
		name       string
		gen        Generator
		domain     models.Domain
		categories []models.Category
		source     string
	}{
		{
			name:       "plain json",
			gen:        replying(`{"domain":"health","categories":["official_health","academic"],"priority_keywords":["insulin"]}`, nil),
			domain:     models.DomainHealth,
			categories: []models.Category{models.CategoryOfficialHealth, models.CategoryAcademic},
			source:     IntentFromLLM,
		},
		{
			name:       "code fence",
			gen:        replying("```json\n{\"domain\":\"tech\",\"categories\":[\"web\"]}\n```", nil),
			domain:     models.DomainTech,
			categories: []models.Category{models.CategoryWeb},
			source:     IntentFromLLM,
		},
		{
			name:       "missing categories use domain mapping",
			gen:        replying(`{"domain":"finance"}`, nil),
			domain:     models.DomainFinance,
			categories: models.CategoriesFor(models.DomainFinance),
			source:     IntentFromLLM,
		},
		{
			name:       "unknown categories dropped",
			gen:        replying(`{"domain":"science","categories":["sports","books"]}`, nil),
			domain:     models.DomainScience,
			categories: []models.Category{models.CategoryBooks},
			source:     IntentFromLLM,
		},
		{
			name:       "unknown domain falls back",
			gen:        replying(`{"domain":"sports"}`, nil),
			domain:     models.DomainFinance,
			categories: []models.Category{models.CategoryStatistics, models.CategoryWeb, models.CategoryAcademic},
			source:     IntentFromKeywords,
		},
		{
			name:       "prose falls back",
			gen:        replying("I think this is about money.", nil),
			domain:     models.DomainFinance,
			categories: []models.Category{models.CategoryStatistics, models.CategoryWeb, models.CategoryAcademic},
			source:     IntentFromKeywords,
		},
		{
			name:       "router error falls back",
			gen:        replying("", router.ErrAllProvidersFailed),
			domain:     models.DomainFinance,
			categories: []models.Category{models.CategoryStatistics, models.CategoryWeb, models.CategoryAcademic},
			source:     IntentFromKeywords,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLLMClassifier(tt.gen, time.Second)
			got, err := c.Classify(context.Background(), "bitcoin price")
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got.Domain != tt.domain {
				t.Errorf("Domain = %q, want %q", got.Domain, tt.domain)
			}
			if !reflect.DeepEqual(got.Categories, tt.categories) {
				t.Errorf("Categories = %v, want %v", got.Categories, tt.categories)
			}
			if got.Source != tt.source {
				t.Errorf("Source = %q, want %q", got.Source, tt.source)
			}
			if len(got.PriorityKeywords) == 0 {
				t.Error("PriorityKeywords empty")
			}
		})
	}
}

func TestLLMClassifier_RequestShape(t *testing.T) {
	var got router.Request
	gen := genFunc(func(ctx context.Context, req router.Request) (*router.Result, error) {
		got = req
		return &router.Result{Response: `{"domain":"general"}`}, nil
	})

	if _, err := NewLLMClassifier(gen, 0).Classify(context.Background(), "hello"); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.MaxTokens != 200 {
		t.Errorf("MaxTokens = %d, want 200", got.MaxTokens)
	}
	if got.Temperature == nil || *got.Temperature != 0.1 {
		t.Errorf("Temperature = %v, want 0.1", got.Temperature)
	}
}

func TestLLMClassifier_Timeout(t *testing.T) {
	gen := genFunc(func(ctx context.Context, req router.Request) (*router.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	got, err := NewLLMClassifier(gen, 20*time.Millisecond).Classify(context.Background(), "bitcoin price")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Source != IntentFromKeywords {
		t.Errorf("Source = %q, want keywords after timeout", got.Source)
	}
}

func TestLLMClassifier_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := genFunc(func(ctx context.Context, req router.Request) (*router.Result, error) {
		return nil, ctx.Err()
	})
	_, err := NewLLMClassifier(gen, time.Second).Classify(ctx, "bitcoin price")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Classify() error = %v, want context.Canceled", err)
	}
}
