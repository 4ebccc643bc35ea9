package handlers

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/http/views"
	"github.com/open-gsa/gsa/internal/listview"
	"github.com/open-gsa/gsa/internal/metrics"
)

// HandleList renders a list page, or only its results section when htmx
// targets it.
func (h *Handlers) HandleList(page EntityPage) echo.HandlerFunc {
	return func(c *echo.Context) error {
		addVary(c, headerHXRequest, headerHXTarget)

		filter, err := parseFilterParam(c)
		if err != nil {
			return RenderBadRequest(c, err.Error())
		}
		data, err := h.listData(c, page, filter)
		if err != nil {
			return h.listError(c, err)
		}
		return h.renderList(c, page, data, isHX(c) && isHXTarget(c, data.ResultsID()))
	}
}

// HandleToggleDetails flips the details of one row and re-renders the
// results.
func (h *Handlers) HandleToggleDetails(page EntityPage) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			return RenderNotFound(c)
		}
		filter, err := parseFilterParam(c)
		if err != nil {
			return RenderBadRequest(c, err.Error())
		}

		ctx := c.Request().Context()
		st, err := h.Lists.Update(ctx, page.List, func(st *listview.State) {
			st.ToggleDetails(id)
		})
		if err != nil {
			return h.RenderError(c, err)
		}
		if !isHX(c) {
			return redirect(c, listview.ListURL(page.BaseURL(), filter))
		}

		data, err := h.listData(c, page, filter)
		if err != nil {
			return h.listError(c, err)
		}
		data.State = st
		return h.renderList(c, page, data, true)
	}
}

// HandleToggleAll expands or collapses the details of every row on the
// current page.
func (h *Handlers) HandleToggleAll(page EntityPage) echo.HandlerFunc {
	return func(c *echo.Context) error {
		filter, err := parseFilterParam(c)
		if err != nil {
			return RenderBadRequest(c, err.Error())
		}
		data, err := h.listData(c, page, filter)
		if err != nil {
			return h.listError(c, err)
		}

		ctx := c.Request().Context()
		st, err := h.Lists.Update(ctx, page.List, func(st *listview.State) {
			st.ToggleAll(data.Collection.IDs())
		})
		if err != nil {
			return h.RenderError(c, err)
		}
		if !isHX(c) {
			return redirect(c, listview.ListURL(page.BaseURL(), data.Collection.Filter))
		}
		data.State = st
		return h.renderList(c, page, data, true)
	}
}

// listData loads the collection and the details state of page. A failed
// load is reported inside the page; only an invalid filter is an error.
func (h *Handlers) listData(c *echo.Context, page EntityPage, filter *gmp.Filter) (viewmodels.ListViewData, error) {
	ctx := c.Request().Context()
	layout, err := h.LayoutData(ctx, c, page.Title)
	if err != nil {
		return viewmodels.ListViewData{}, err
	}

	data := viewmodels.ListViewData{
		Layout:          layout,
		List:            page.List,
		EntityType:      page.EntityType,
		Title:           page.Title,
		BaseURL:         page.BaseURL(),
		Collection:      gmp.Collection{Filter: filter},
		State:           h.Lists.Load(ctx, page.List),
		RefreshInterval: h.Cfg.AutoRefreshInterval,
	}

	cmd, err := h.Client.Command(page.EntityType)
	if err != nil {
		return data, err
	}
	coll, err := cmd.GetAll(ctx, filter)
	switch {
	case errors.Is(err, gmp.ErrInvalidFilter):
		return data, err
	case err != nil:
		c.Logger().Warn("list load failed",
			"entity_type", page.EntityType,
			"filter", filter.String(),
			"error", err,
		)
		data.LoadError = "Could not load " + strings.ToLower(page.Title) + "."
	default:
		data.Collection = coll
		// A dirty cache entry is shown greyed out while the results section
		// re-fetches right away.
		data.Updating = coll.Meta.Stale()
	}
	return data, nil
}

func (h *Handlers) renderList(c *echo.Context, page EntityPage, data viewmodels.ListViewData, partial bool) error {
	table := page.Table(data)
	if partial {
		metrics.ListRendersTotal.WithLabelValues(page.EntityType, "partial").Inc()
		return h.RenderComponent(c, views.ListResults(data, table))
	}
	metrics.ListRendersTotal.WithLabelValues(page.EntityType, "page").Inc()
	data.Layout.Toast = h.popToast(c)
	return h.RenderComponent(c, views.ListPage(data, table))
}

func (h *Handlers) listError(c *echo.Context, err error) error {
	if errors.Is(err, gmp.ErrInvalidFilter) {
		return RenderBadRequest(c, err.Error())
	}
	return h.RenderError(c, err)
}
