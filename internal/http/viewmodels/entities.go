package viewmodels

import (
	"time"

	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/listview"
)

// ListViewData is the data of one entity list page or results fragment.
type ListViewData struct {
	Layout LayoutData

	// List is the URL segment of the list, e.g. "reports".
	List       string
	EntityType string
	Title      string
	BaseURL    string

	// Collection.Entities is nil when the list could not be loaded.
	Collection gmp.Collection
	State      *listview.State
	// Updating is set when the collection came from a dirty cache entry and
	// a re-fetch is on its way.
	Updating        bool
	RefreshInterval time.Duration
	LoadError       string
}

// ResultsID is the DOM id of the swappable results section.
func (d ListViewData) ResultsID() string {
	return d.List + "-results"
}

// EntityViewData is the data of one entity detail page.
type EntityViewData struct {
	Layout LayoutData

	List       string
	EntityType string
	Title      string
	ID         string

	Entity      gmp.Entity
	Loaded      bool
	Permissions []gmp.Permission
	// Related holds auxiliary collections other than permissions, keyed by
	// loader name.
	Related map[string]gmp.Collection

	Stale    bool
	Errors   []string
	LoadedAt time.Time
	Live     bool
}

// DashboardViewData is the vulnerabilities dashboard: a title row and one
// data row per severity class.
type DashboardViewData struct {
	Layout LayoutData

	Filter    string
	TitleRow  []string
	DataRows  [][]string
	Total     int
	LoadError string
}
