package views

import (
	"github.com/a-h/templ"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/listview"
)

var reportColumns = []listview.Column{
	{Title: "Date", SortKey: "date", Width: "25%"},
	{Title: "Status", SortKey: "status", Width: "8%"},
	{Title: "Task", SortKey: "task", Width: "39%"},
	{Title: "Severity", SortKey: "severity", Width: "8%"},
	{Title: gmp.SeverityHigh, SortKey: "high", Width: "3%"},
	{Title: gmp.SeverityMedium, SortKey: "medium", Width: "3%"},
	{Title: gmp.SeverityLow, SortKey: "low", Width: "3%"},
	{Title: gmp.SeverityLog, SortKey: "log", Width: "3%"},
	{Title: gmp.SeverityFalsePositive, SortKey: "false_positive", Width: "3%"},
	{Title: "Actions", Width: "8%", Align: "center"},
}

// ReportsTable lists scan reports. Reports have no row details, so the
// toggle-all control is hidden.
func ReportsTable(data viewmodels.ListViewData) templ.Component {
	caps := data.Layout.Capabilities
	cfg := listview.Config[gmp.Report]{
		ID:                data.List,
		EmptyTitle:        "No reports available",
		HideToggleDetails: true,
		Header: func(h listview.HeaderProps) templ.Component {
			return listview.HeaderRow(h, reportColumns...)
		},
		Footer: countsFooter(len(reportColumns)),
		Row: func(p listview.RowProps[gmp.Report]) templ.Component {
			return reportRow(data.List, p.Entity, caps)
		},
	}
	return listview.Render(cfg, listProps(data, parseAll(data.Collection.Entities, gmp.ParseReport)))
}

func resultCounts(r gmp.Report) []int {
	return []int{r.Results.High, r.Results.Medium, r.Results.Low, r.Results.Log, r.Results.FalsePositive}
}
