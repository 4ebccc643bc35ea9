package gmp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"
)

// Relation is the comparison operator of a filter term.
type Relation string

const (
	RelationText     Relation = ""
	RelationEqual    Relation = "="
	RelationContains Relation = "~"
	RelationLess     Relation = "<"
	RelationGreater  Relation = ">"
)

// Sort directions returned by Filter.SortOrder.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// RowsAll is the rows value that disables pagination.
const RowsAll = -1

const (
	keywordFirst       = "first"
	keywordRows        = "rows"
	keywordSort        = "sort"
	keywordSortReverse = "sort-reverse"
)

// Term is one criterion of a filter. A term with RelationText and no keyword
// is free text matched against the name and comment of an entity.
type Term struct {
	Keyword  string
	Relation Relation
	Value    string
	Negated  bool
}

func (t Term) String() string {
	value := quoteFilterValue(t.Value)
	s := value
	if t.Relation != RelationText {
		s = t.Keyword + string(t.Relation) + value
	}
	if t.Negated {
		return "not " + s
	}
	return s
}

// Filter is an immutable filter in the GMP keyword syntax, e.g.
//
//	name~web severity>6.9 or tag="critical asset" first=1 rows=25 sort-reverse=severity
//
// Criteria are held in disjunctive normal form: terms inside a group are
// AND-ed, groups are OR-ed. A nil *Filter is valid and behaves as the empty
// filter.
type Filter struct {
	groups   [][]Term
	first    int
	rows     int
	sortBy   string
	sortDesc bool
}

// ParseFilter parses raw. The empty string yields an empty filter.
func ParseFilter(raw string) (*Filter, error) {
	tokens, err := tokenizeFilter(raw)
	if err != nil {
		return nil, err
	}

	f := &Filter{}
	var current []Term
	negateNext := false
	for _, tok := range tokens {
		switch strings.ToLower(tok) {
		case "and":
			continue
		case "or":
			if negateNext {
				return nil, fmt.Errorf("%w: \"not\" before \"or\"", ErrInvalidFilter)
			}
			if len(current) > 0 {
				f.groups = append(f.groups, current)
				current = nil
			}
			continue
		case "not":
			negateNext = !negateNext
			continue
		}

		term, err := parseTerm(tok)
		if err != nil {
			return nil, err
		}

		switch term.Keyword {
		case keywordFirst:
			n, err := strconv.Atoi(term.Value)
			if err != nil || n < 1 || term.Relation != RelationEqual {
				return nil, fmt.Errorf("%w: first must be a positive integer", ErrInvalidFilter)
			}
			f.first = n
			continue
		case keywordRows:
			n, err := strconv.Atoi(term.Value)
			if err != nil || term.Relation != RelationEqual || (n < 1 && n != RowsAll) {
				return nil, fmt.Errorf("%w: rows must be a positive integer or -1", ErrInvalidFilter)
			}
			f.rows = n
			continue
		case keywordSort, keywordSortReverse:
			if term.Relation != RelationEqual || strings.TrimSpace(term.Value) == "" {
				return nil, fmt.Errorf("%w: %s needs a field name", ErrInvalidFilter, term.Keyword)
			}
			f.sortBy = strings.TrimSpace(term.Value)
			f.sortDesc = term.Keyword == keywordSortReverse
			continue
		}

		term.Negated = negateNext
		negateNext = false
		current = append(current, term)
	}
	if negateNext {
		return nil, fmt.Errorf("%w: dangling \"not\"", ErrInvalidFilter)
	}
	if len(current) > 0 {
		f.groups = append(f.groups, current)
	}
	return f, nil
}

// MustParseFilter is ParseFilter for literals known to be valid.
func MustParseFilter(raw string) *Filter {
	f, err := ParseFilter(raw)
	if err != nil {
		panic(err)
	}
	return f
}

func tokenizeFilter(raw string) ([]string, error) {
	var (
		tokens  []string
		b       strings.Builder
		inQuote bool
		pending bool
	)
	flush := func() {
		if pending {
			tokens = append(tokens, b.String())
			b.Reset()
			pending = false
		}
	}
	for _, r := range raw {
		switch {
		case r == '"':
			inQuote = !inQuote
			b.WriteRune(r)
			pending = true
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			b.WriteRune(r)
			pending = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote", ErrInvalidFilter)
	}
	flush()
	return tokens, nil
}

func parseTerm(tok string) (Term, error) {
	if strings.HasPrefix(tok, `"`) {
		return Term{Value: unquoteFilterValue(tok)}, nil
	}
	idx := strings.IndexAny(tok, "=~<>")
	if idx < 0 {
		return Term{Value: tok}, nil
	}
	if idx == 0 {
		return Term{}, fmt.Errorf("%w: missing keyword in %q", ErrInvalidFilter, tok)
	}
	keyword := strings.ToLower(tok[:idx])
	if !validKeyword(keyword) {
		return Term{Value: unquoteFilterValue(tok)}, nil
	}
	return Term{
		Keyword:  keyword,
		Relation: Relation(tok[idx : idx+1]),
		Value:    unquoteFilterValue(tok[idx+1:]),
	}, nil
}

func validKeyword(keyword string) bool {
	for _, r := range keyword {
		if !(r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return keyword != ""
}

// unquoteFilterValue drops the quote characters of a token. The grammar
// has no escape for '"', so a value never contains one.
func unquoteFilterValue(v string) string {
	return strings.ReplaceAll(v, `"`, "")
}

// quoteFilterValue quotes v when it needs quoting to stay one token. Quote
// characters inside v cannot be represented and are dropped.
func quoteFilterValue(v string) string {
	v = strings.ReplaceAll(v, `"`, "")
	if v == "" || strings.ContainsFunc(v, unicode.IsSpace) {
		return `"` + v + `"`
	}
	return v
}

func (f *Filter) clone() *Filter {
	if f == nil {
		return &Filter{}
	}
	out := *f
	out.groups = f.Groups()
	return &out
}

// Groups returns a copy of the criteria in disjunctive normal form.
func (f *Filter) Groups() [][]Term {
	if f == nil || len(f.groups) == 0 {
		return nil
	}
	out := make([][]Term, len(f.groups))
	for i, g := range f.groups {
		out[i] = append([]Term(nil), g...)
	}
	return out
}

// IsZero reports whether the filter has no criteria, paging, or sorting.
func (f *Filter) IsZero() bool {
	return f == nil || (len(f.groups) == 0 && f.first == 0 && f.rows == 0 && f.sortBy == "")
}

// Criteria renders only the criteria terms.
func (f *Filter) Criteria() string {
	if f == nil {
		return ""
	}
	groups := make([]string, 0, len(f.groups))
	for _, g := range f.groups {
		terms := make([]string, 0, len(g))
		for _, t := range g {
			terms = append(terms, t.String())
		}
		groups = append(groups, strings.Join(terms, " "))
	}
	return strings.Join(groups, " or ")
}

// String renders the filter in canonical form: criteria first, then paging
// and sorting keywords.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, 0, 4)
	if c := f.Criteria(); c != "" {
		parts = append(parts, c)
	}
	if f.first > 0 {
		parts = append(parts, keywordFirst+"="+strconv.Itoa(f.first))
	}
	if f.rows != 0 {
		parts = append(parts, keywordRows+"="+strconv.Itoa(f.rows))
	}
	if f.sortBy != "" {
		keyword := keywordSort
		if f.sortDesc {
			keyword = keywordSortReverse
		}
		parts = append(parts, keyword+"="+f.sortBy)
	}
	return strings.Join(parts, " ")
}

// ToFilterString is the display string shown as the applied filter.
func (f *Filter) ToFilterString() string {
	return f.String()
}

func (f *Filter) SortBy() string {
	if f == nil {
		return ""
	}
	return f.sortBy
}

// SortOrder is SortAsc or SortDesc, or empty when the filter does not sort.
func (f *Filter) SortOrder() string {
	if f == nil || f.sortBy == "" {
		return ""
	}
	if f.sortDesc {
		return SortDesc
	}
	return SortAsc
}

// First is the 1-based index of the first requested entity.
func (f *Filter) First() int {
	if f == nil || f.first < 1 {
		return 1
	}
	return f.first
}

// Rows is the requested page size; 0 means the backend default and RowsAll
// means no paging.
func (f *Filter) Rows() int {
	if f == nil {
		return 0
	}
	return f.rows
}

// WithSortChange applies a click on the column with sortKey: the direction
// toggles when sortKey is already the sort field, otherwise the filter sorts
// ascending by sortKey.
func (f *Filter) WithSortChange(sortKey string) *Filter {
	out := f.clone()
	sortKey = strings.TrimSpace(sortKey)
	if sortKey == "" {
		return out
	}
	if out.sortBy == sortKey {
		out.sortDesc = !out.sortDesc
	} else {
		out.sortBy = sortKey
		out.sortDesc = false
	}
	return out
}

func (f *Filter) WithSort(sortKey string, desc bool) *Filter {
	out := f.clone()
	out.sortBy = strings.TrimSpace(sortKey)
	out.sortDesc = desc && out.sortBy != ""
	return out
}

func (f *Filter) WithFirst(first int) *Filter {
	out := f.clone()
	if first < 1 {
		first = 1
	}
	out.first = first
	return out
}

func (f *Filter) WithRows(rows int) *Filter {
	out := f.clone()
	if rows < 1 && rows != RowsAll {
		rows = 0
	}
	out.rows = rows
	return out
}

// And returns a filter whose criteria additionally require term in every group.
func (f *Filter) And(term Term) *Filter {
	out := f.clone()
	if len(out.groups) == 0 {
		out.groups = [][]Term{{term}}
		return out
	}
	for i := range out.groups {
		out.groups[i] = append(out.groups[i], term)
	}
	return out
}

// Or returns a filter with group added as an alternative set of criteria.
func (f *Filter) Or(group ...Term) *Filter {
	out := f.clone()
	if len(group) == 0 {
		return out
	}
	out.groups = append(out.groups, append([]Term(nil), group...))
	return out
}

func pageRows(f *Filter, c Counts) int {
	if c.Rows > 0 {
		return c.Rows
	}
	if rows := f.Rows(); rows > 0 {
		return rows
	}
	return 0
}

func (f *Filter) FirstPage() *Filter {
	return f.WithFirst(1)
}

func (f *Filter) NextPage(c Counts) *Filter {
	if c.Length > 0 {
		return f.WithFirst(c.Last() + 1)
	}
	return f.WithFirst(c.First + pageRows(f, c))
}

func (f *Filter) PreviousPage(c Counts) *Filter {
	return f.WithFirst(c.First - pageRows(f, c))
}

func (f *Filter) LastPage(c Counts) *Filter {
	rows := pageRows(f, c)
	if rows <= 0 || c.Filtered <= 0 {
		return f.WithFirst(1)
	}
	return f.WithFirst(((c.Filtered-1)/rows)*rows + 1)
}

// QueryValues encodes the filter as the "filter" query parameter.
func (f *Filter) QueryValues() url.Values {
	values := url.Values{}
	if s := f.String(); s != "" {
		values.Set("filter", s)
	}
	return values
}
