package listview

import "github.com/open-gsa/gsa/internal/gmp"

// Column is one header cell. An empty SortKey makes the column unsortable.
type Column struct {
	Title   string
	SortKey string
	Width   string
	Align   string
	// Colspan and Rowspan are used by two-row headers.
	Colspan int
	Rowspan int
}

// SortURL is the list URL after a click on the column with sortKey: the
// direction toggles when sortKey is the current sort field, otherwise the
// list sorts ascending by it.
func (h HeaderProps) SortURL(sortKey string) string {
	return ListURL(h.BaseURL, h.Filter.WithSortChange(sortKey))
}

// sorted reports whether col is the current sort field.
func (h HeaderProps) sorted(col Column) bool {
	return col.SortKey != "" && h.CurrentSortBy == col.SortKey
}

func (h HeaderProps) ariaSort() string {
	if h.CurrentSortDir == gmp.SortDesc {
		return "descending"
	}
	return "ascending"
}

func (h HeaderProps) sortArrow() string {
	if h.CurrentSortDir == gmp.SortDesc {
		return "▼"
	}
	return "▲"
}
