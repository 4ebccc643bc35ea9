package handlers

import (
	"errors"

	"github.com/labstack/echo/v5"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/http/views"
)

// HandleVulnsDashboard renders the vulnerabilities per severity class.
func (h *Handlers) HandleVulnsDashboard(c *echo.Context) error {
	ctx := c.Request().Context()
	layout, err := h.LayoutData(ctx, c, "Vulnerabilities Dashboard")
	if err != nil {
		return h.RenderError(c, err)
	}
	filter, err := parseFilterParam(c)
	if err != nil {
		return RenderBadRequest(c, err.Error())
	}

	layout.Toast = h.popToast(c)
	data := viewmodels.DashboardViewData{
		Layout:   layout,
		Filter:   filter.ToFilterString(),
		TitleRow: []string{"Severity Class", "# of Vulnerabilities"},
	}
	counts, err := h.Client.SeverityClassCounts(ctx, gmp.TypeVuln, filter)
	switch {
	case errors.Is(err, gmp.ErrInvalidFilter):
		return RenderBadRequest(c, err.Error())
	case err != nil:
		c.Logger().Warn("severity counts failed", "error", err)
		data.LoadError = "Could not load vulnerability counts."
	default:
		data.DataRows = severityRows(counts)
		for _, cc := range counts {
			data.Total += cc.Count
		}
	}
	return h.RenderComponent(c, views.VulnsDashboardPage(data))
}

func severityRows(counts []gmp.ClassCount) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, cc := range counts {
		rows = append(rows, []string{cc.Class, views.FormatInt(cc.Count)})
	}
	return rows
}
