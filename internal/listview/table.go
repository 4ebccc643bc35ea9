// Package listview renders entity tables: one row per entity, optional
// per-row details, a toggle-all control, sort-aware headers, and
// pagination. Interaction goes through htmx requests back to the list's
// base URL.
package listview

import (
	"net/url"

	"github.com/a-h/templ"
	"github.com/open-gsa/gsa/internal/gmp"
)

// Item is anything with a stable id. gmp.Entity and the typed models that
// embed it qualify.
type Item interface {
	EntityID() string
}

// RowProps is handed to the row and details renderers.
type RowProps[E Item] struct {
	Entity   E
	Expanded bool
	// ToggleURL flips this row's details when POSTed.
	ToggleURL string
	// Target is the hx-target that toggle and sort requests swap.
	Target string
	Links  bool
}

type HeaderProps struct {
	CurrentSortBy  string
	CurrentSortDir string
	Filter         *gmp.Filter
	BaseURL        string
	Target         string
	Links          bool
}

type FooterProps struct {
	Counts  gmp.Counts
	Filter  *gmp.Filter
	BaseURL string
	Target  string
}

type PaginationProps struct {
	Counts  gmp.Counts
	Filter  *gmp.Filter
	BaseURL string
	Target  string
}

// Config describes how a list renders its entities. Row is required; every
// other renderer is optional and omitted when nil.
type Config[E Item] struct {
	// ID names the list. It prefixes DOM ids.
	ID         string
	EmptyTitle string

	Row        func(RowProps[E]) templ.Component
	RowDetails func(RowProps[E]) templ.Component
	Header     func(HeaderProps) templ.Component
	Footer     func(FooterProps) templ.Component
	// Pagination defaults to Pagination when nil.
	Pagination func(PaginationProps) templ.Component
	// Body wraps the rows; the default is a single <tbody>.
	Body func(rows templ.Component) templ.Component

	NoPagination      bool
	HideToggleDetails bool
	HideFootnote      bool
}

// Props is the data of one render.
type Props[E Item] struct {
	// Entities is nil while the list has not been loaded. That renders
	// nothing, unlike an empty slice which renders EmptyTitle.
	Entities []E
	Counts   gmp.Counts
	Filter   *gmp.Filter
	Updating bool
	State    *State
	BaseURL  string
	// Target overrides the default "#<ID>-table" swap target.
	Target string
	Links  bool
}

// TableID is the DOM id of the rendered table container.
func TableID(listID string) string {
	return listID + "-table"
}

func (p Props[E]) target(cfg Config[E]) string {
	if p.Target != "" {
		return p.Target
	}
	return "#" + TableID(cfg.ID)
}

// ListURL is baseURL with the filter in the query string.
func ListURL(baseURL string, filter *gmp.Filter) string {
	q := filter.QueryValues()
	if len(q) == 0 {
		return baseURL
	}
	return baseURL + "?" + q.Encode()
}

// ToggleURL is the endpoint flipping one row's details.
func ToggleURL(baseURL, id string, filter *gmp.Filter) string {
	return ListURL(baseURL+"/details/"+url.PathEscape(id)+"/toggle", filter)
}

// ToggleAllURL is the endpoint behind the toggle-all control.
func ToggleAllURL(baseURL string, filter *gmp.Filter) string {
	return ListURL(baseURL+"/details/toggle-all", filter)
}

// tableView is the non-generic data of one table render.
type tableView struct {
	ID            string
	ShowToggleAll bool
	FoldState     string
	ToggleAllURL  string
	Target        string
	Updating      bool
	ShowFootnote  bool
	Filter        string

	Pagination templ.Component
	// Header and Footer are nil when the list has none.
	Header templ.Component
	Body   templ.Component
	Footer templ.Component
}

// Render builds the table component.
func Render[E Item](cfg Config[E], props Props[E]) templ.Component {
	if props.Entities == nil {
		return templ.NopComponent
	}
	if len(props.Entities) == 0 {
		return emptyTable(TableID(cfg.ID), cfg.EmptyTitle)
	}

	target := props.target(cfg)
	v := tableView{
		ID:            TableID(cfg.ID),
		ShowToggleAll: !cfg.HideToggleDetails,
		FoldState:     props.State.FoldState(),
		ToggleAllURL:  ToggleAllURL(props.BaseURL, props.Filter),
		Target:        target,
		Updating:      props.Updating,
		ShowFootnote:  !cfg.HideFootnote,
		Filter:        props.Filter.ToFilterString(),
		Pagination:    templ.NopComponent,
	}

	if !cfg.NoPagination {
		pp := PaginationProps{Counts: props.Counts, Filter: props.Filter, BaseURL: props.BaseURL, Target: target}
		if cfg.Pagination != nil {
			v.Pagination = cfg.Pagination(pp)
		} else {
			v.Pagination = Pagination(pp)
		}
	}
	if cfg.Header != nil {
		v.Header = cfg.Header(HeaderProps{
			CurrentSortBy:  props.Filter.SortBy(),
			CurrentSortDir: props.Filter.SortOrder(),
			Filter:         props.Filter,
			BaseURL:        props.BaseURL,
			Target:         target,
			Links:          props.Links,
		})
	}
	if cfg.Footer != nil {
		v.Footer = cfg.Footer(FooterProps{Counts: props.Counts, Filter: props.Filter, BaseURL: props.BaseURL, Target: target})
	}

	rows := renderRows(cfg, props, target)
	if cfg.Body != nil {
		v.Body = cfg.Body(rows)
	} else {
		v.Body = tbody(rows)
	}
	return table(v)
}

// renderRows emits each entity's row, followed by its details row when the
// details are expanded.
func renderRows[E Item](cfg Config[E], props Props[E], target string) templ.Component {
	if cfg.Row == nil {
		return templ.NopComponent
	}
	rows := make([]templ.Component, 0, len(props.Entities))
	for _, e := range props.Entities {
		id := e.EntityID()
		rp := RowProps[E]{
			Entity:    e,
			Expanded:  props.State.Expanded(id),
			ToggleURL: ToggleURL(props.BaseURL, id, props.Filter),
			Target:    target,
			Links:     props.Links,
		}
		rows = append(rows, cfg.Row(rp))
		if cfg.RowDetails != nil && rp.Expanded {
			rows = append(rows, cfg.RowDetails(rp))
		}
	}
	return templ.Join(rows...)
}

// BareBody renders rows without a wrapping <tbody>, for row renderers that
// emit their own.
func BareBody(rows templ.Component) templ.Component {
	return rows
}

// DetailsToggle renders a button labelled label that flips the details of
// the row described by p. Row renderers typically wrap the entity name in it.
func DetailsToggle[E Item](p RowProps[E], label string) templ.Component {
	return detailsToggle(p.Expanded, p.ToggleURL, p.Target, label)
}
