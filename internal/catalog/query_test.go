package catalog

import (
	"math"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   SearchQuery
		want SearchQuery
	}{
		{
			name: "zero value gets defaults",
			in:   SearchQuery{},
			want: SearchQuery{SortField: SortByName, SortDir: SortAsc, Page: 1, Limit: DefaultLimit},
		},
		{
			name: "unknown sort falls back",
			in:   SearchQuery{SortField: "power", SortDir: "sideways", Page: 3, Limit: 10},
			want: SearchQuery{SortField: SortByName, SortDir: SortAsc, Page: 3, Limit: 10},
		},
		{
			name: "limit clamped",
			in:   SearchQuery{SortField: SortByCost, SortDir: SortDesc, Page: -2, Limit: 500},
			want: SearchQuery{SortField: SortByCost, SortDir: SortDesc, Page: 1, Limit: MaxLimit},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, got.Normalize(), "idempotent")
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, SearchQuery{}.Offset())
	assert.Equal(t, 40, SearchQuery{Page: 3, Limit: 20}.Offset())
	assert.Equal(t, 5, SearchQuery{Page: 2, Limit: 5}.Offset())

	huge := SearchQuery{Page: math.MaxInt, Limit: 2}
	assert.Positive(t, huge.Offset(), "no wraparound")
	assert.Equal(t, huge.Normalize(), huge.Normalize().Normalize())
}

func TestTotalPages(t *testing.T) {
	tests := []struct{ total, limit, want int }{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{3, 2, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.limit), "total=%d limit=%d", tt.total, tt.limit)
	}
}

func TestBuildSearchSQL_Count(t *testing.T) {
	q := SearchQuery{
		NameContains: "Snatch",
		PitchEquals:  "1",
		MinPrice:     floatPtr(1),
		Page:         2,
		Limit:        5,
	}
	sqlStr, args := buildSearchSQL(q, "p.price", true)

	assert.True(t, strings.HasPrefix(sqlStr, "SELECT COUNT(DISTINCT c.card_id)"))
	assert.NotContains(t, sqlStr, "GROUP BY")
	assert.NotContains(t, sqlStr, "HAVING")
	assert.NotContains(t, sqlStr, "LIMIT")
	assert.Equal(t, []any{"%snatch%", "1"}, args)
}

func TestBuildSearchSQL_List(t *testing.T) {
	q := SearchQuery{
		ClassEquals:     "Ninja",
		TypeEquals:      "Action",
		KeywordContains: "go",
		RarityEquals:    "R",
		MinCost:         intPtr(1),
		MaxCost:         intPtr(3),
		BlitzLegal:      true,
		SortField:       SortByCost,
		SortDir:         SortDesc,
		Page:            3,
		Limit:           10,
	}
	sqlStr, args := buildSearchSQL(q, "", false)

	assert.Contains(t, sqlStr, "GROUP_CONCAT(DISTINCT t.type_name)")
	assert.Contains(t, sqlStr, "GROUP_CONCAT(DISTINCT k.keyword)")
	assert.Contains(t, sqlStr, "GROUP BY c.card_id")
	assert.Contains(t, sqlStr, "c.blitz_legal = 1")
	assert.NotContains(t, sqlStr, "cc_legal = 1")
	assert.NotContains(t, sqlStr, "HAVING")
	assert.True(t, strings.HasSuffix(sqlStr, "ORDER BY CAST(c.cost AS INTEGER) DESC, c.card_id ASC LIMIT ? OFFSET ?"))

	assert.Equal(t, []any{"ninja", "action", "%go%", "r", 1, 3, 10, 20}, args)
}

func TestBuildSearchSQL_PriceHaving(t *testing.T) {
	q := SearchQuery{MinPrice: floatPtr(0.5), MaxPrice: floatPtr(10)}

	sqlStr, args := buildSearchSQL(q, "p.price", false)
	assert.Contains(t, sqlStr, "HAVING MIN(p.price) >= ? AND MAX(p.price) <= ?")
	assert.Equal(t, []any{0.5, 10.0, DefaultLimit, 0}, args)

	sqlStr, args = buildSearchSQL(q, "", false)
	assert.NotContains(t, sqlStr, "HAVING")
	assert.Equal(t, []any{DefaultLimit, 0}, args)
}

func TestBuildSearchSQL_NoFilters(t *testing.T) {
	sqlStr, args := buildSearchSQL(SearchQuery{}, "", false)
	assert.NotContains(t, sqlStr, "WHERE")
	assert.Contains(t, sqlStr, "ORDER BY c.name ASC, c.card_id ASC")
	assert.Equal(t, []any{DefaultLimit, 0}, args)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%snatch%", likePattern("SNATCH"))
	assert.Equal(t, `%50\%%`, likePattern("50%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\x%`, likePattern(`C:\x`))
}

func TestParseSearchQuery(t *testing.T) {
	v := url.Values{}
	v.Set("q", "snatch")
	v.Set("cardClass", "Ninja")
	v.Set("cardType", "Action")
	v.Set("keyword", "go again")
	v.Set("pitch", " 2 ")
	v.Set("rarity", "C")
	v.Set("minCost", "1")
	v.Set("maxCost", "abc")
	v.Set("minPrice", "0.25")
	v.Set("maxPrice", "NaN")
	v.Set("blitz_legal", "true")
	v.Set("cc_legal", "1")
	v.Set("commoner_legal", "nope")
	v.Set("sortField", "COST")
	v.Set("sortDir", "Desc")
	v.Set("page", "2")
	v.Set("limit", "1000")

	q := ParseSearchQuery(v)

	assert.Equal(t, "snatch", q.NameContains)
	assert.Equal(t, "Ninja", q.ClassEquals)
	assert.Equal(t, "Action", q.TypeEquals)
	assert.Equal(t, "go again", q.KeywordContains)
	assert.Equal(t, "2", q.PitchEquals)
	assert.Equal(t, "C", q.RarityEquals)
	require.NotNil(t, q.MinCost)
	assert.Equal(t, 1, *q.MinCost)
	assert.Nil(t, q.MaxCost, "malformed numbers are dropped")
	require.NotNil(t, q.MinPrice)
	assert.Equal(t, 0.25, *q.MinPrice)
	assert.Nil(t, q.MaxPrice)
	assert.True(t, q.BlitzLegal)
	assert.True(t, q.CCLegal)
	assert.False(t, q.CommonerLegal)
	assert.Equal(t, SortByCost, q.SortField)
	assert.Equal(t, SortDesc, q.SortDir)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, MaxLimit, q.Limit)
}

func TestParseSearchQuery_Defaults(t *testing.T) {
	q := ParseSearchQuery(url.Values{"page": {"zero"}, "limit": {"-3"}})
	assert.Equal(t, SearchQuery{SortField: SortByName, SortDir: SortAsc, Page: 1, Limit: DefaultLimit}, q)
}

func TestSplitAggregate(t *testing.T) {
	assert.Equal(t, []string{}, splitAggregate(""))
	assert.Equal(t, []string{"Action", "Attack"}, splitAggregate("Action,Attack,Action, ,Attack"))
}
