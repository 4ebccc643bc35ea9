package handlers

import (
	"github.com/a-h/templ"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/http/views"
	"github.com/open-gsa/gsa/internal/refresh"
)

// EntityPage describes one entity list and the detail pages below it.
type EntityPage struct {
	// List is the URL segment, e.g. "reports".
	List       string
	EntityType string
	Title      string
	// Singular names one entity in flash messages.
	Singular string
	Table    func(viewmodels.ListViewData) templ.Component
	// Loaders returns the auxiliary loaders of the detail page.
	Loaders func(*gmp.Client) []refresh.Loader
}

func (p EntityPage) BaseURL() string {
	return "/" + p.List
}

// Pages returns the entity pages served by the console.
func Pages() []EntityPage {
	return []EntityPage{
		{
			List:       "reports",
			EntityType: gmp.TypeReport,
			Title:      "Reports",
			Singular:   "Report",
			Table:      views.ReportsTable,
			Loaders:    resourcePermissions,
		},
		{
			List:       "tags",
			EntityType: gmp.TypeTag,
			Title:      "Tags",
			Singular:   "Tag",
			Table:      views.TagsTable,
			Loaders:    resourcePermissions,
		},
		{
			List:       "scanconfigs",
			EntityType: gmp.TypeScanConfig,
			Title:      "Scan Configs",
			Singular:   "Scan Config",
			Table:      views.ScanConfigsTable,
			Loaders:    resourcePermissions,
		},
		{
			List:       "ovaldefs",
			EntityType: gmp.TypeOvalDef,
			Title:      "OVAL Definitions",
			Singular:   "OVAL Definition",
			Table:      views.OvalDefsTable,
		},
		{
			List:       "vulns",
			EntityType: gmp.TypeVuln,
			Title:      "Vulnerabilities",
			Singular:   "Vulnerability",
			Table:      views.VulnsTable,
		},
	}
}

func resourcePermissions(client *gmp.Client) []refresh.Loader {
	return []refresh.Loader{refresh.PermissionsResourceLoader(client.Permissions())}
}
