package store

import (
	"database/sql/driver"
	"fmt"
	"strings"

	sqlite "modernc.org/sqlite"

	"github.com/abelbrown/ideadeck/internal/query"
)

// foldFunc lowercases text with Unicode rules. SQLite's own lower() and
// LIKE only fold ASCII.
const foldFunc = "ideadeck_fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, fold)
}

func fold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// filterable lists the columns a query.Spec may reference. Identifiers are
// interpolated into SQL, so anything else is rejected.
var filterable = map[string]bool{
	query.ColID:          true,
	query.ColTitle:       true,
	query.ColDescription: true,
	query.ColCategory:    true,
	query.ColSubreddit:   true,
	query.ColUpvotes:     true,
	query.ColCreatedAt:   true,
}

func countSQL(q query.Spec) (string, []any, error) {
	where, args, err := whereSQL(q)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM business_ideas" + where, args, nil
}

func selectSQL(q query.Spec) (string, []any, error) {
	where, args, err := whereSQL(q)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(ideaColumns)
	b.WriteString(" FROM business_ideas")
	b.WriteString(where)

	if q.Order.Field != "" {
		if !filterable[q.Order.Field] {
			return "", nil, fmt.Errorf("unknown order column %q", q.Order.Field)
		}
		dir := "ASC"
		if q.Order.Descending {
			dir = "DESC"
		}
		// id breaks ties so equal sort keys page deterministically.
		fmt.Fprintf(&b, " ORDER BY %s %s NULLS LAST, id %s", q.Order.Field, dir, dir)
	}

	switch {
	case q.Limit > 0:
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Limit, q.Offset)
	case q.Offset > 0:
		b.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, q.Offset)
	}
	return b.String(), args, nil
}

func whereSQL(q query.Spec) (string, []any, error) {
	var conds []string
	var args []any

	for _, eq := range q.Equals {
		if !filterable[eq.Field] {
			return "", nil, fmt.Errorf("unknown filter column %q", eq.Field)
		}
		conds = append(conds, eq.Field+" = ?")
		args = append(args, eq.Value)
	}

	if q.Match != nil && len(q.Match.Fields) > 0 {
		pattern := "%" + escapeLike(strings.ToLower(q.Match.Term)) + "%"
		ors := make([]string, len(q.Match.Fields))
		for i, field := range q.Match.Fields {
			if !filterable[field] {
				return "", nil, fmt.Errorf("unknown match column %q", field)
			}
			ors[i] = foldFunc + "(" + field + `) LIKE ? ESCAPE '\'`
			args = append(args, pattern)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	if q.IDs != nil {
		if len(q.IDs) == 0 {
			conds = append(conds, "0")
		} else {
			conds = append(conds, "id IN (?"+strings.Repeat(", ?", len(q.IDs)-1)+")")
			for _, id := range q.IDs {
				args = append(args, id)
			}
		}
	}

	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// escapeLike makes % and _ in user text match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
