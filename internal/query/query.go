// Package query translates a Filter into a store-neutral query description.
//
// Build and Count are pure: the same Filter always yields a structurally
// equal Spec. Renderers for each backend live next to the backend
// (Values for PostgREST here, SQL in internal/store).
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/abelbrown/ideadeck/internal/model"
)

// Column names of the business_ideas table.
const (
	ColID          = "id"
	ColTitle       = "title"
	ColDescription = "description"
	ColCategory    = "category"
	ColSubreddit   = "subreddit_name"
	ColUpvotes     = "upvotes"
	ColCreatedAt   = "created_at"
)

// Eq is an exact-match condition.
type Eq struct {
	Field string
	Value string
}

// Match is a case-insensitive substring condition satisfied when any of
// Fields contains Term.
type Match struct {
	Fields []string
	Term   string
}

// Order is a sort field. Listings only sort descending.
type Order struct {
	Field      string
	Descending bool
}

// Spec describes one query. Limit 0 means no row limit (count queries).
type Spec struct {
	Equals []Eq
	Match  *Match
	IDs    []int64 // nil = no id filter
	Order  Order
	Offset int
	Limit  int
}

// Build returns the range query for one page of f.
func Build(f model.Filter, offset, limit int) Spec {
	s := Count(f)
	s.Order = orderFor(f.Sort)
	s.Offset = offset
	s.Limit = limit
	return s
}

// Count returns the query whose row count is the total for f.
// Ordering and range do not affect a count, so they are left zero.
func Count(f model.Filter) Spec {
	var s Spec
	if f.Category != "" {
		s.Equals = append(s.Equals, Eq{Field: ColCategory, Value: f.Category})
	}
	if f.Subreddit != "" {
		s.Equals = append(s.Equals, Eq{Field: ColSubreddit, Value: f.Subreddit})
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		s.Match = &Match{Fields: []string{ColTitle, ColDescription}, Term: term}
	}
	return s
}

// ByIDs selects the given records, newest first. An empty ids matches
// nothing, unlike a nil Spec.IDs which does not filter at all.
func ByIDs(ids []int64) Spec {
	cp := make([]int64, len(ids))
	copy(cp, ids)
	return Spec{
		IDs:   cp,
		Order: Order{Field: ColCreatedAt, Descending: true},
	}
}

func orderFor(k model.SortKey) Order {
	if k == model.SortUpvotes {
		return Order{Field: ColUpvotes, Descending: true}
	}
	return Order{Field: ColCreatedAt, Descending: true}
}

// Values renders s as PostgREST query parameters.
func (s Spec) Values() url.Values {
	v := url.Values{}
	v.Set("select", "*")
	for _, eq := range s.Equals {
		v.Add(eq.Field, "eq."+eq.Value)
	}
	if s.Match != nil {
		conds := make([]string, len(s.Match.Fields))
		pattern := "*" + escapeLike(s.Match.Term) + "*"
		for i, field := range s.Match.Fields {
			conds[i] = field + ".ilike." + quoteOr(pattern)
		}
		v.Set("or", "("+strings.Join(conds, ",")+")")
	}
	if s.IDs != nil {
		ids := make([]string, len(s.IDs))
		for i, id := range s.IDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		v.Set(ColID, "in.("+strings.Join(ids, ",")+")")
	}
	if s.Order.Field != "" {
		dir := "asc"
		if s.Order.Descending {
			dir = "desc.nullslast"
		}
		v.Set("order", s.Order.Field+"."+dir)
	}
	if s.Offset > 0 {
		v.Set("offset", strconv.Itoa(s.Offset))
	}
	if s.Limit > 0 {
		v.Set("limit", strconv.Itoa(s.Limit))
	}
	return v
}

// likeEscaper backslash-escapes Postgres LIKE metacharacters.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user text match literally under ilike. PostgREST's own
// wildcard has no escape, so it is dropped.
func escapeLike(term string) string {
	return likeEscaper.Replace(strings.ReplaceAll(term, "*", ""))
}

// quoteOr double-quotes a value inside an or=() list when it contains
// characters PostgREST treats as separators.
func quoteOr(s string) string {
	if !strings.ContainsAny(s, `,()"\ .:`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
