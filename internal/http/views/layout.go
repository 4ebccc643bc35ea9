package views

import "github.com/open-gsa/gsa/internal/http/viewmodels"

// DefaultNav is the navigation shown on every page.
var DefaultNav = []viewmodels.NavItem{
	{Label: "Reports", Href: "/reports"},
	{Label: "Vulnerabilities", Href: "/vulns"},
	{Label: "Dashboard", Href: "/vulns/dashboard"},
	{Label: "OVAL Definitions", Href: "/ovaldefs"},
	{Label: "Scan Configs", Href: "/scanconfigs"},
	{Label: "Tags", Href: "/tags"},
}
