package views

import (
	"github.com/a-h/templ"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/listview"
)

var tagColumns = []listview.Column{
	{Title: "Name", SortKey: "name", Width: "30%"},
	{Title: "Value", SortKey: "value", Width: "20%"},
	{Title: "Active", SortKey: "active", Width: "8%"},
	{Title: "Resource Type", SortKey: "resource_type", Width: "14%"},
	{Title: "Resources", SortKey: "resource_count", Width: "8%"},
	{Title: "Modified", SortKey: "modified", Width: "12%"},
	{Title: "Actions", Width: "8%", Align: "center"},
}

func TagsTable(data viewmodels.ListViewData) templ.Component {
	caps := data.Layout.Capabilities
	cfg := listview.Config[gmp.Tag]{
		ID:         data.List,
		EmptyTitle: "No tags available",
		Header: func(h listview.HeaderProps) templ.Component {
			return listview.HeaderRow(h, tagColumns...)
		},
		Footer: countsFooter(len(tagColumns)),
		Row: func(p listview.RowProps[gmp.Tag]) templ.Component {
			return tagRow(listview.DetailsToggle(p, p.Entity.Name), data.List, p.Entity, p.Links, caps)
		},
		RowDetails: func(p listview.RowProps[gmp.Tag]) templ.Component {
			return detailsRow(len(tagColumns), p.Entity.Entity)
		},
	}
	return listview.Render(cfg, listProps(data, parseAll(data.Collection.Entities, gmp.ParseTag)))
}
