package pipeline

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/misterprompt/brain-ai/internal/router"
)

const defaultRerankScore = 50

const rerankPrompt = `Rate how relevant this source is to the query.

QUERY: %q
SOURCE: %q

Score from 0 to 100:
- 0-20: Off topic
- 21-50: Tangentially related
- 51-80: Relevant
- 81-100: Highly relevant

Reply ONLY with a number between 0 and 100:`

var scorePattern = regexp.MustCompile(`-?\d+`)

// parseScore reads the first integer in reply, clamped to 0..100. Replies
// without a number score the default.
func parseScore(reply string) int {
	m := scorePattern.FindString(reply)
	if m == "" {
		return defaultRerankScore
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return defaultRerankScore
	}
	return min(max(n, 0), 100)
}

type reranker struct {
	gen         Generator
	concurrency int
	window      int
	topK        int
}

// rerank scores the first window items concurrently and returns the topK
// highest, ties keeping their original order. skipReason is non-empty when
// no scoring took place.
func (r reranker) rerank(ctx context.Context, query string, items []Item) (ranked []Item, skipReason string) {
	switch {
	case len(items) == 0:
		return nil, ReasonNoResults
	case r.gen == nil:
		ranked = append([]Item(nil), items...)
		if len(ranked) > r.topK {
			ranked = ranked[:r.topK]
		}
		return ranked, ReasonNoGenerator
	}

	window := items
	if len(window) > r.window {
		window = window[:r.window]
	}
	scored := append([]Item(nil), window...)
	for i := range scored {
		scored[i].Score = defaultRerankScore
	}

	sem := semaphore.NewWeighted(int64(r.concurrency))
	var wg sync.WaitGroup
	for i := range scored {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("[pipeline] scoring %s panicked: %v", scored[i].ID, rec)
				}
			}()
			scored[i].Score = r.score(ctx, query, scored[i])
		}()
	}
	wg.Wait()

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}
	return scored, ""
}

func (r reranker) score(ctx context.Context, query string, it Item) int {
	res, err := r.gen.Route(ctx, router.Request{
		Prompt:      fmt.Sprintf(rerankPrompt, query, truncate(it.Snippet, 300)),
		MaxTokens:   10,
		Temperature: temperature(0),
	})
	if err != nil {
		return defaultRerankScore
	}
	return parseScore(res.Response)
}

// topResults summarises up to n ranked items for the reranked event.
func topResults(items []Item, n int) []RankedResult {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]RankedResult, len(items))
	for i, it := range items {
		out[i] = RankedResult{Title: it.Title, Score: it.Score, Provider: it.Provider}
	}
	return out
}
