package views

import (
	"github.com/a-h/templ"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/listview"
)

var ovalDefColumns = []listview.Column{
	{Title: "Name", SortKey: "name"},
	{Title: "Version", SortKey: "version"},
	{Title: "Status", SortKey: "status"},
	{Title: "Class", SortKey: "class"},
	{Title: "Created", SortKey: "created"},
	{Title: "Modified", SortKey: "modified"},
	{Title: "CVEs", SortKey: "cves"},
	{Title: "Severity", SortKey: "severity"},
}

// OvalDefsTable renders every definition as its own <tbody> of two rows:
// the attributes and the shortened title.
func OvalDefsTable(data viewmodels.ListViewData) templ.Component {
	cfg := listview.Config[gmp.OvalDef]{
		ID:         data.List,
		EmptyTitle: "No OVAL definitions available",
		Body:       listview.BareBody,
		Header: func(h listview.HeaderProps) templ.Component {
			return listview.HeaderRow(h, ovalDefColumns...)
		},
		Row: func(p listview.RowProps[gmp.OvalDef]) templ.Component {
			return ovalDefRow(listview.DetailsToggle(p, p.Entity.Name), p.Entity)
		},
		RowDetails: func(p listview.RowProps[gmp.OvalDef]) templ.Component {
			return ovalDefDetails(len(ovalDefColumns), p.Entity.Entity)
		},
	}
	return listview.Render(cfg, listProps(data, parseAll(data.Collection.Entities, gmp.ParseOvalDef)))
}
