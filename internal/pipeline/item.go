package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/misterprompt/brain-ai/internal/fetch"
	"github.com/misterprompt/brain-ai/pkg/models"
)

const maxSnippetChars = 500

// Item is a normalized fetch result.
type Item struct {
	ID       string          `json:"id"`
	SourceID string          `json:"source_id"`
	Provider string          `json:"provider"`
	Title    string          `json:"title"`
	Snippet  string          `json:"snippet"`
	Category models.Category `json:"category"`
	Tier     models.Tier     `json:"tier"`
	Score    int             `json:"score"`
}

// itemID is stable for a given source and query.
func itemID(sourceID, query string) string {
	sum := md5.Sum([]byte(sourceID + "|" + query))
	return hex.EncodeToString(sum[:])[:12]
}

// normalize turns the successful results of a tier into items, in the order
// of entries.
func normalize(query string, entries []fetch.Entry, results []fetch.Result) []Item {
	byID := make(map[string]fetch.Entry, len(entries))
	for _, e := range entries {
		byID[e.Source.ID()] = e
	}

	var items []Item
	for _, r := range results {
		if !r.Succeeded {
			continue
		}
		e := byID[r.SourceID]
		name := e.Name
		if name == "" {
			name = r.SourceID
		}
		items = append(items, Item{
			ID:       itemID(r.SourceID, query),
			SourceID: r.SourceID,
			Provider: name,
			Title:    "Result from " + name,
			Snippet:  truncate(strings.TrimSpace(string(r.Payload)), maxSnippetChars),
			Category: e.Category,
			Tier:     e.Tier,
		})
	}
	return items
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func titles(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}
