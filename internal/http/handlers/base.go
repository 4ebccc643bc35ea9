// Package handlers contains HTTP handler logic split by domain.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/open-gsa/gsa/internal/config"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/http/views"
	"github.com/open-gsa/gsa/internal/listview"
	"github.com/open-gsa/gsa/internal/refresh"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"
)

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Cfg      config.Config
	Client   *gmp.Client
	Sessions *scs.SessionManager
	Lists    *listview.StateStore
	Hub      *refresh.Hub
	// Scheduler drives the refresh controllers of live views. Nil means
	// wall-clock timers.
	Scheduler refresh.Scheduler
	Logger    *slog.Logger
}

// LayoutData builds the common layout data for page rendering. The queued
// toast is left to the renderers of full pages.
func (h *Handlers) LayoutData(ctx context.Context, c *echo.Context, title string) (viewmodels.LayoutData, error) {
	caps, err := h.Client.Capabilities(ctx)
	if err != nil {
		return viewmodels.LayoutData{}, err
	}
	requestID, _ := c.Get(ContextKeyRequestID).(string)
	csrfToken, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return viewmodels.LayoutData{
		Title:        title,
		CSRFToken:    csrfToken,
		ActivePath:   c.Request().URL.Path,
		RequestID:    requestID,
		Nav:          views.DefaultNav,
		Capabilities: caps,
	}, nil
}

// RenderComponent renders a templ component as the response.
func (h *Handlers) RenderComponent(c *echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(c.Request().Context(), c.Response()); err != nil {
		return h.RenderError(c, err)
	}
	return nil
}

// RenderError returns a plain text error response.
func (h *Handlers) RenderError(c *echo.Context, err error) error {
	requestID, _ := c.Get(ContextKeyRequestID).(string)
	path := ""
	if req := c.Request(); req != nil && req.URL != nil {
		path = req.URL.Path
	}
	method := ""
	if req := c.Request(); req != nil {
		method = req.Method
	}
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", c.RealIP(),
		"error", err,
	)

	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	msg = fmt.Sprintf("%s Code: %s.", msg, InternalErrorCode)
	return c.String(http.StatusInternalServerError, msg)
}

// RenderNotFound returns a 404 response.
func RenderNotFound(c *echo.Context) error {
	return c.String(http.StatusNotFound, "404 page not found")
}

// RenderBadRequest returns a 400 response carrying msg, which must be safe
// to show to the user.
func RenderBadRequest(c *echo.Context, msg string) error {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = http.StatusText(http.StatusBadRequest)
	}
	return c.String(http.StatusBadRequest, msg)
}

// HandleHealthz returns a simple health check response.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// redirect answers a form post. htmx requests get HX-Redirect so the
// browser location follows.
func redirect(c *echo.Context, url string) error {
	if isHX(c) {
		setHXRedirect(c, url)
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, url)
}
