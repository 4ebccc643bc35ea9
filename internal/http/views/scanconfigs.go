package views

import (
	"github.com/a-h/templ"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/listview"
)

// Family and NVTs each span a count and a trend column.
var (
	scanConfigGroupColumns = []listview.Column{
		{Title: "Name", SortKey: "name", Rowspan: 2},
		{Title: "Family", Colspan: 2},
		{Title: "NVTs", Colspan: 2},
		{Title: "Actions", Rowspan: 2, Width: "10em", Align: "center"},
	}
	scanConfigCountColumns = []listview.Column{
		{Title: "Total", SortKey: "families_total", Width: "2em"},
		{Title: "Trend", SortKey: "families_trend", Width: "2em"},
		{Title: "Total", SortKey: "nvts_total", Width: "2em"},
		{Title: "Trend", SortKey: "nvts_trend", Width: "2em"},
	}
)

const scanConfigSpan = 6

// ScanConfigsTable has a two-row header.
func ScanConfigsTable(data viewmodels.ListViewData) templ.Component {
	caps := data.Layout.Capabilities
	cfg := listview.Config[gmp.ScanConfig]{
		ID:         data.List,
		EmptyTitle: "No scan configs available",
		Header: func(h listview.HeaderProps) templ.Component {
			return templ.Join(
				listview.HeaderRow(h, scanConfigGroupColumns...),
				listview.HeaderRow(h, scanConfigCountColumns...),
			)
		},
		Footer: countsFooter(scanConfigSpan),
		Row: func(p listview.RowProps[gmp.ScanConfig]) templ.Component {
			return scanConfigRow(listview.DetailsToggle(p, p.Entity.Name), data.List, p.Entity, p.Links, caps)
		},
		RowDetails: func(p listview.RowProps[gmp.ScanConfig]) templ.Component {
			return detailsRow(scanConfigSpan, p.Entity.Entity)
		},
	}
	return listview.Render(cfg, listProps(data, parseAll(data.Collection.Entities, gmp.ParseScanConfig)))
}

func trendTitle(t gmp.Trend, noun string) string {
	if t == gmp.TrendDynamic {
		return "The " + noun + " selection is DYNAMIC. New " + noun + "s will automatically be added and considered."
	}
	return "The " + noun + " selection is STATIC. New " + noun + "s will NOT automatically be added and considered."
}
