package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/open-gsa/gsa/internal/gmp"
)

// columnKeywords map filter keywords onto real columns. Anything else is
// looked up in the fields document, where a missing key reads as "".
var columnKeywords = map[string]string{
	"uuid":    "uuid",
	"id":      "uuid",
	"name":    "name",
	"comment": "comment",
	"owner":   "owner",
}

var sortColumns = map[string]string{
	"name":     "lower(name)",
	"comment":  "lower(comment)",
	"owner":    "lower(owner)",
	"severity": "severity",
	"created":  "creation_time",
	"modified": "modification_time",
	"date":     "creation_time",
}

const numericPattern = `'^-?[0-9]+(\.[0-9]+)?$'`

// sqlArgs collects positional parameters.
type sqlArgs []any

func (a *sqlArgs) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

// compileWhere renders the WHERE clause for entityType and the filter
// criteria. Groups are OR'ed, terms inside a group are AND'ed.
func compileWhere(entityType string, filter *gmp.Filter, args *sqlArgs) (string, error) {
	where := "entity_type = " + args.add(entityType)

	groups := filter.Groups()
	if len(groups) == 0 {
		return where, nil
	}

	ors := make([]string, 0, len(groups))
	for _, g := range groups {
		ands := make([]string, 0, len(g))
		for _, t := range g {
			clause, err := compileTerm(t, args)
			if err != nil {
				return "", err
			}
			ands = append(ands, clause)
		}
		ors = append(ors, "("+strings.Join(ands, " AND ")+")")
	}
	return where + " AND (" + strings.Join(ors, " OR ") + ")", nil
}

func compileTerm(t gmp.Term, args *sqlArgs) (string, error) {
	clause, err := compilePositiveTerm(t, args)
	if err != nil {
		return "", err
	}
	if t.Negated {
		return "NOT COALESCE(" + clause + ", false)", nil
	}
	return clause, nil
}

func compilePositiveTerm(t gmp.Term, args *sqlArgs) (string, error) {
	if t.Relation == gmp.RelationText || t.Keyword == "" {
		p := args.add(likePattern(t.Value))
		return "(name ILIKE " + p + " OR comment ILIKE " + p + ")", nil
	}

	if t.Keyword == "severity" {
		return compileSeverity(t, args)
	}

	expr, ok := columnKeywords[t.Keyword]
	if !ok {
		expr = "COALESCE(fields->>" + args.add(t.Keyword) + ", '')"
	}

	switch t.Relation {
	case gmp.RelationContains:
		return expr + " ILIKE " + args.add(likePattern(t.Value)), nil
	case gmp.RelationEqual:
		if expr == "uuid" {
			return "uuid = " + args.add(t.Value), nil
		}
		return "lower(" + expr + ") = lower(" + args.add(t.Value) + ")", nil
	case gmp.RelationLess, gmp.RelationGreater:
		n, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %s needs a number", gmp.ErrInvalidFilter, t.String())
		}
		numeric := "(CASE WHEN " + expr + " ~ " + numericPattern + " THEN " + expr + "::double precision END)"
		return numeric + " " + string(t.Relation) + " " + args.add(n), nil
	default:
		return "", fmt.Errorf("%w: unsupported relation in %s", gmp.ErrInvalidFilter, t.String())
	}
}

func compileSeverity(t gmp.Term, args *sqlArgs) (string, error) {
	if t.Relation == gmp.RelationContains {
		return "severity::text ILIKE " + args.add(likePattern(t.Value)), nil
	}
	n, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %s needs a number", gmp.ErrInvalidFilter, t.String())
	}
	return "severity " + string(t.Relation) + " " + args.add(n), nil
}

// compileOrder renders ORDER BY. Unknown keys sort on the fields document;
// name and uuid break ties so paging is stable.
func compileOrder(filter *gmp.Filter, args *sqlArgs) string {
	dir := "ASC"
	if filter.SortOrder() == gmp.SortDesc {
		dir = "DESC"
	}

	key := filter.SortBy()
	if key == "" {
		return "ORDER BY lower(name) ASC, uuid ASC"
	}
	expr, ok := sortColumns[key]
	if !ok {
		expr = "(fields->>" + args.add(key) + ")"
	}
	return "ORDER BY " + expr + " " + dir + " NULLS LAST, lower(name) ASC, uuid ASC"
}

// compilePage renders LIMIT/OFFSET for the filter's page window.
func compilePage(filter *gmp.Filter, args *sqlArgs) string {
	var b strings.Builder
	if rows := filter.Rows(); rows > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(args.add(rows))
	}
	if offset := filter.First() - 1; offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(args.add(offset))
	}
	return b.String()
}

func likePattern(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(v) + "%"
}
