package viewmodels

import "github.com/open-gsa/gsa/internal/gmp"

type LayoutData struct {
	Title        string
	CSRFToken    string
	ActivePath   string
	RequestID    string
	Toast        *ToastViewData
	Nav          []NavItem
	Capabilities gmp.Capabilities
}

type NavItem struct {
	Label string
	Href  string
}

type ToastViewData struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
