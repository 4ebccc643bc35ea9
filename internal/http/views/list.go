package views

import (
	"slices"

	"github.com/a-h/templ"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/listview"
)

// listProps fills the listview props shared by every entity table.
func listProps[E listview.Item](data viewmodels.ListViewData, entities []E) listview.Props[E] {
	return listview.Props[E]{
		Entities: entities,
		Counts:   data.Collection.Counts,
		Filter:   data.Collection.Filter,
		Updating: data.Updating,
		State:    data.State,
		BaseURL:  data.BaseURL,
		Target:   "#" + data.ResultsID(),
		Links:    true,
	}
}

// parseAll maps the collection onto typed models. A collection that was
// never loaded stays nil so the table renders nothing.
func parseAll[E any](entities []gmp.Entity, parse func(gmp.Entity) E) []E {
	if entities == nil {
		return nil
	}
	out := make([]E, 0, len(entities))
	for _, e := range entities {
		out = append(out, parse(e))
	}
	return out
}

// countsFooter is the footer of tables that summarize the page contents.
func countsFooter(span int) func(listview.FooterProps) templ.Component {
	return func(f listview.FooterProps) templ.Component {
		return countsRow(span, f.Counts)
	}
}

func entitySummary(e gmp.Entity) [][2]string {
	out := [][2]string{
		{"Owner", NA(e.Owner)},
		{"Created", FormatTime(e.CreationTime)},
		{"Modified", FormatTime(e.ModificationTime)},
	}
	if e.Comment != "" {
		out = append(out, [2]string{"Comment", e.Comment})
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		out = append(out, [2]string{HumanizeKey(k), NA(e.Text(k))})
	}
	return out
}
