package views

import (
	"github.com/a-h/templ"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/listview"
)

var vulnColumns = []listview.Column{
	{Title: "Name", SortKey: "name", Width: "40%"},
	{Title: "Oldest Result", SortKey: "oldest", Width: "15%"},
	{Title: "Newest Result", SortKey: "newest", Width: "15%"},
	{Title: "Severity", SortKey: "severity", Width: "10%"},
	{Title: "Results", SortKey: "results", Width: "10%"},
	{Title: "Hosts", SortKey: "hosts", Width: "10%"},
}

func VulnsTable(data viewmodels.ListViewData) templ.Component {
	cfg := listview.Config[gmp.Vuln]{
		ID:         data.List,
		EmptyTitle: "No vulnerabilities available",
		Header: func(h listview.HeaderProps) templ.Component {
			return listview.HeaderRow(h, vulnColumns...)
		},
		Footer: countsFooter(len(vulnColumns)),
		Row: func(p listview.RowProps[gmp.Vuln]) templ.Component {
			return vulnRow(listview.DetailsToggle(p, p.Entity.Name), data.List, p.Entity, p.Links)
		},
		RowDetails: func(p listview.RowProps[gmp.Vuln]) templ.Component {
			return detailsRow(len(vulnColumns), p.Entity.Entity)
		},
	}
	return listview.Render(cfg, listProps(data, parseAll(data.Collection.Entities, gmp.ParseVuln)))
}
