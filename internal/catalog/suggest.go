package catalog

import (
	"context"
	"strings"

	"github.com/sahilm/fuzzy"
)

const (
	DefaultSuggestLimit = 8
	MaxSuggestLimit     = 25
)

type Suggestion struct {
	CardID string `json:"card_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

// nameSource implements fuzzy.Source over distinct card names.
type nameSource []CardName

func (s nameSource) String(i int) string { return strings.ToLower(s[i].Name) }
func (s nameSource) Len() int            { return len(s) }

// Suggest ranks card names against a partial query for the search bar.
// Cards that share a name (pitch variants) appear once, under the first id.
func (r *Repo) Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []Suggestion{}, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	if limit > MaxSuggestLimit {
		limit = MaxSuggestLimit
	}

	names, err := r.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	return rankNames(query, dedupeNames(names), limit), nil
}

func dedupeNames(names []CardName) nameSource {
	seen := make(map[string]struct{}, len(names))
	out := make(nameSource, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n.Name]; ok {
			continue
		}
		seen[n.Name] = struct{}{}
		out = append(out, n)
	}
	return out
}

func rankNames(query string, src nameSource, limit int) []Suggestion {
	matches := fuzzy.FindFrom(query, src)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Suggestion, 0, len(matches))
	for _, m := range matches {
		n := src[m.Index]
		out = append(out, Suggestion{CardID: n.CardID, Name: n.Name, Score: m.Score})
	}
	return out
}
