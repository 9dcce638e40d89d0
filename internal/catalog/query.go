package catalog

import (
	"math"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type SortField string

const (
	SortByName  SortField = "name"
	SortByCost  SortField = "cost"
	SortByPitch SortField = "pitch"
)

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// SearchQuery is the typed filter set for a catalog search. Zero values mean
// "no constraint"; nil bounds are absent.
type SearchQuery struct {
	NameContains    string
	ClassEquals     string
	TypeEquals      string
	KeywordContains string
	PitchEquals     string
	RarityEquals    string

	MinCost *int
	MaxCost *int

	// Carried for the storefront, but only applied when the repo has a
	// price column configured. See Repo.PriceColumn.
	MinPrice *float64
	MaxPrice *float64

	BlitzLegal    bool
	CCLegal       bool
	CommonerLegal bool

	SortField SortField
	SortDir   SortDir

	Page  int
	Limit int
}

// Normalize fills defaults and clamps paging. It is idempotent.
func (q SearchQuery) Normalize() SearchQuery {
	switch q.SortField {
	case SortByName, SortByCost, SortByPitch:
	default:
		q.SortField = SortByName
	}
	if q.SortDir != SortDesc {
		q.SortDir = SortAsc
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	// keeps (Page-1)*Limit from overflowing into a negative OFFSET
	if maxPage := math.MaxInt / q.Limit; q.Page > maxPage {
		q.Page = maxPage
	}
	return q
}

func (q SearchQuery) Offset() int {
	q = q.Normalize()
	return (q.Page - 1) * q.Limit
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

const searchJoins = `
	FROM Cards c
	LEFT JOIN CardTypes t ON c.card_id = t.card_id
	LEFT JOIN CardKeywords k ON c.card_id = k.card_id
	LEFT JOIN Printings p ON c.card_id = p.card_id
`

// MIN(p.printing_id) makes SQLite take the bare p.image_url/p.rarity columns
// from that same printing row.
const searchSelect = `
	SELECT c.card_id, c.name, c.pitch, c.cost, c.type_text, c.defense, c.power,
	       GROUP_CONCAT(DISTINCT t.type_name) AS types,
	       GROUP_CONCAT(DISTINCT k.keyword) AS keywords,
	       MIN(p.printing_id) AS printing_id,
	       p.image_url, p.rarity
`

// buildSearchSQL builds either the paged aggregate select or the distinct
// card count. Both share the joins and WHERE predicates; only the select
// gets the price HAVING clause, ordering and paging.
func buildSearchSQL(q SearchQuery, priceColumn string, countOnly bool) (string, []any) {
	q = q.Normalize()

	where, args := searchPredicates(q)

	var sb strings.Builder
	if countOnly {
		sb.WriteString(`SELECT COUNT(DISTINCT c.card_id)`)
	} else {
		sb.WriteString(searchSelect)
	}
	sb.WriteString(searchJoins)

	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	if countOnly {
		// no HAVING here: the total counts WHERE matches only
		return sb.String(), args
	}

	sb.WriteString(" GROUP BY c.card_id")

	if having, hargs := priceHaving(q, priceColumn); len(having) > 0 {
		sb.WriteString(" HAVING ")
		sb.WriteString(strings.Join(having, " AND "))
		args = append(args, hargs...)
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderExpr(q.SortField))
	if q.SortDir == SortDesc {
		sb.WriteString(" DESC")
	} else {
		sb.WriteString(" ASC")
	}
	// card_id keeps pages disjoint when the sort key ties
	sb.WriteString(", c.card_id ASC")

	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, q.Limit, q.Offset())

	return sb.String(), args
}

func searchPredicates(q SearchQuery) ([]string, []any) {
	var where []string
	var args []any

	if s := strings.TrimSpace(q.NameContains); s != "" {
		where = append(where, `LOWER(c.name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(s))
	}

	// class and type each get their own semijoin, so both can match
	// different type rows of the same card
	if s := strings.TrimSpace(q.ClassEquals); s != "" {
		where = append(where, `EXISTS (SELECT 1 FROM CardTypes tc WHERE tc.card_id = c.card_id AND LOWER(tc.type_name) = ?)`)
		args = append(args, strings.ToLower(s))
	}
	if s := strings.TrimSpace(q.TypeEquals); s != "" {
		where = append(where, `EXISTS (SELECT 1 FROM CardTypes tt WHERE tt.card_id = c.card_id AND LOWER(tt.type_name) = ?)`)
		args = append(args, strings.ToLower(s))
	}

	if s := strings.TrimSpace(q.KeywordContains); s != "" {
		where = append(where, `EXISTS (SELECT 1 FROM CardKeywords kk WHERE kk.card_id = c.card_id AND LOWER(kk.keyword) LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(s))
	}

	if s := strings.TrimSpace(q.PitchEquals); s != "" {
		where = append(where, "c.pitch = ?")
		args = append(args, s)
	}

	// on the joined printing so the representative printing is a matching one
	if s := strings.TrimSpace(q.RarityEquals); s != "" {
		where = append(where, "LOWER(p.rarity) = ?")
		args = append(args, strings.ToLower(s))
	}

	if q.MinCost != nil {
		where = append(where, "CAST(c.cost AS INTEGER) >= ?")
		args = append(args, *q.MinCost)
	}
	if q.MaxCost != nil {
		where = append(where, "CAST(c.cost AS INTEGER) <= ?")
		args = append(args, *q.MaxCost)
	}

	if q.BlitzLegal {
		where = append(where, "c.blitz_legal = 1")
	}
	if q.CCLegal {
		where = append(where, "c.cc_legal = 1")
	}
	if q.CommonerLegal {
		where = append(where, "c.commoner_legal = 1")
	}

	return where, args
}

func priceHaving(q SearchQuery, priceColumn string) ([]string, []any) {
	if priceColumn == "" {
		return nil, nil
	}
	var having []string
	var args []any
	if q.MinPrice != nil {
		having = append(having, "MIN("+priceColumn+") >= ?")
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		having = append(having, "MAX("+priceColumn+") <= ?")
		args = append(args, *q.MaxPrice)
	}
	return having, args
}

func orderExpr(f SortField) string {
	switch f {
	case SortByCost:
		return "CAST(c.cost AS INTEGER)"
	case SortByPitch:
		return "CAST(c.pitch AS INTEGER)"
	default:
		return "c.name"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern lowercases s, escapes LIKE wildcards and wraps it in %...%.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
