package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ParseSearchQuery turns raw URL query parameters into a SearchQuery.
// Malformed numbers are dropped, unknown sort values fall back to the
// defaults; it never fails.
func ParseSearchQuery(v url.Values) SearchQuery {
	q := SearchQuery{
		NameContains:    v.Get("q"),
		ClassEquals:     v.Get("cardClass"),
		TypeEquals:      v.Get("cardType"),
		KeywordContains: v.Get("keyword"),
		PitchEquals:     strings.TrimSpace(v.Get("pitch")),
		RarityEquals:    v.Get("rarity"),

		MinCost: parseOptInt(v.Get("minCost")),
		MaxCost: parseOptInt(v.Get("maxCost")),

		MinPrice: parseOptFloat(v.Get("minPrice")),
		MaxPrice: parseOptFloat(v.Get("maxPrice")),

		BlitzLegal:    parseFlag(v.Get("blitz_legal")),
		CCLegal:       parseFlag(v.Get("cc_legal")),
		CommonerLegal: parseFlag(v.Get("commoner_legal")),

		SortField: SortField(strings.ToLower(strings.TrimSpace(v.Get("sortField")))),
		SortDir:   SortDir(strings.ToLower(strings.TrimSpace(v.Get("sortDir")))),

		Page:  parseInt(v.Get("page"), 1),
		Limit: parseInt(v.Get("limit"), DefaultLimit),
	}
	return q.Normalize()
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseOptInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func parseOptFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseFlag(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// splitAggregate splits a GROUP_CONCAT value back into its names, dropping
// blanks and repeats. An empty input gives an empty, non-nil slice.
func splitAggregate(s string) []string {
	out := []string{}
	if s == "" {
		return out
	}
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
