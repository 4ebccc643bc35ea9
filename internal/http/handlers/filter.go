package handlers

import (
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/open-gsa/gsa/internal/gmp"
)

// parseFilterParam reads the filter query parameter. An absent or blank
// parameter yields a nil filter, which lists use as "everything, default
// page size".
func parseFilterParam(c *echo.Context) (*gmp.Filter, error) {
	raw := strings.TrimSpace(c.QueryParam("filter"))
	if raw == "" {
		return nil, nil
	}
	return gmp.ParseFilter(raw)
}
