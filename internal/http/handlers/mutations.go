package handlers

import (
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/http/views"
)

// HandleEntityDelete deletes one entity and returns to the list.
func (h *Handlers) HandleEntityDelete(page EntityPage) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			return RenderNotFound(c)
		}
		cmd, err := h.Client.Command(page.EntityType)
		if err != nil {
			return h.RenderError(c, err)
		}

		err = cmd.Delete(c.Request().Context(), id)
		switch {
		case gmp.IsNotFound(err):
			h.flash(c, viewmodels.ToastViewData{
				Category:    "error",
				Title:       page.Singular + " not found",
				Description: "It may already have been deleted.",
			})
		case err != nil:
			return h.RenderError(c, err)
		default:
			h.afterMutation(c, page, id, "delete")
			h.flash(c, viewmodels.ToastViewData{
				Category: "success",
				Title:    page.Singular + " deleted",
			})
		}
		return redirect(c, page.BaseURL())
	}
}

// HandleEntityClone clones one entity and shows the clone.
func (h *Handlers) HandleEntityClone(page EntityPage) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			return RenderNotFound(c)
		}
		cmd, err := h.Client.Command(page.EntityType)
		if err != nil {
			return h.RenderError(c, err)
		}

		clone, err := cmd.Clone(c.Request().Context(), id)
		if gmp.IsNotFound(err) {
			h.flash(c, viewmodels.ToastViewData{
				Category: "error",
				Title:    page.Singular + " not found",
			})
			return redirect(c, page.BaseURL())
		}
		if err != nil {
			return h.RenderError(c, err)
		}

		h.afterMutation(c, page, id, "clone")
		h.flash(c, viewmodels.ToastViewData{
			Category:    "success",
			Title:       page.Singular + " cloned",
			Description: clone.Name,
		})
		return redirect(c, views.EntityURL(page.List, clone.ID))
	}
}

// HandleTagActive enables or disables a tag.
func (h *Handlers) HandleTagActive(page EntityPage, active bool) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			return RenderNotFound(c)
		}
		cmd, err := h.Client.Command(gmp.TypeTag)
		if err != nil {
			return h.RenderError(c, err)
		}

		err = cmd.Patch(c.Request().Context(), id, map[string]any{"active": active})
		if gmp.IsNotFound(err) {
			h.flash(c, viewmodels.ToastViewData{Category: "error", Title: "Tag not found"})
			return redirect(c, page.BaseURL())
		}
		if err != nil {
			return h.RenderError(c, err)
		}

		action, title := "disable", "Tag disabled"
		if active {
			action, title = "enable", "Tag enabled"
		}
		h.afterMutation(c, page, id, action)
		h.flash(c, viewmodels.ToastViewData{Category: "success", Title: title})
		return redirect(c, views.EntityURL(page.List, id))
	}
}

// afterMutation starts a new cycle in the live views of the mutated type.
// The client already marked the cached reads dirty, so each view loads
// fresh data right after.
func (h *Handlers) afterMutation(c *echo.Context, page EntityPage, id, action string) {
	n := h.Hub.Reload(page.EntityType, "")
	c.Logger().Info("entity mutated",
		"entity_type", page.EntityType,
		"id", id,
		"action", action,
		"live_views", n,
	)
}
