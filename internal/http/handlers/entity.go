package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
	"github.com/open-gsa/gsa/internal/http/views"
	"github.com/open-gsa/gsa/internal/refresh"
)

const (
	sseEventRefresh   = "refresh"
	sseHeartbeatEvery = 25 * time.Second
)

// HandleEntity renders a detail page. One load cycle runs before the response
// is written; later cycles, including the reload forced by stale data, reach
// the browser through HandleEntityLive.
func (h *Handlers) HandleEntity(page EntityPage) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			return RenderNotFound(c)
		}
		ctx := c.Request().Context()

		settled := make(chan refresh.Snapshot, 1)
		ctrl, err := h.newController(page, refresh.Options{
			Once: true,
			OnChange: func(s refresh.Snapshot) {
				if s.State != refresh.Ready && s.State != refresh.Failed {
					return
				}
				select {
				case settled <- s:
				default:
				}
			},
		})
		if err != nil {
			return h.RenderError(c, err)
		}
		defer ctrl.Unmount()
		if err := ctrl.Mount(id); err != nil {
			return h.RenderError(c, err)
		}

		var snap refresh.Snapshot
		select {
		case snap = <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
		if snap.State == refresh.Failed && gmp.IsNotFound(snap.Err()) {
			return RenderNotFound(c)
		}

		layout, err := h.LayoutData(ctx, c, page.Title)
		if err != nil {
			return h.RenderError(c, err)
		}
		layout.Toast = h.popToast(c)
		data := entityViewData(page, layout, snap)
		data.Live = true
		if e, ok := snap.Entity(); ok {
			data.Layout.Title = e.Name + " - " + page.Singular
		}
		return h.RenderComponent(c, views.EntityPage(data))
	}
}

// HandleEntityLive streams the detail body as Server-Sent Events. A refresh
// controller runs for as long as the connection stays open, so the page
// follows the auto-refresh interval and reloads forced by stale data or by
// mutations elsewhere.
func (h *Handlers) HandleEntityLive(page EntityPage) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			return RenderNotFound(c)
		}
		ctx := c.Request().Context()

		caps, err := h.Client.Capabilities(ctx)
		if err != nil {
			return h.RenderError(c, err)
		}
		layout := viewmodels.LayoutData{Title: page.Title, Capabilities: caps}

		updates := make(chan refresh.Snapshot, 1)
		ctrl, err := h.newController(page, refresh.Options{
			Interval: h.Cfg.AutoRefreshInterval,
			OnChange: func(s refresh.Snapshot) {
				if s.State == refresh.Ready || s.State == refresh.Failed {
					pushLatest(updates, s)
				}
			},
			OnError: func(err error) {
				c.Logger().Warn("live view load failed",
					"entity_type", page.EntityType,
					"id", id,
					"error", err,
				)
			},
		})
		if err != nil {
			return h.RenderError(c, err)
		}
		defer ctrl.Unmount()
		unregister := h.Hub.Register(page.EntityType, id, ctrl)
		defer unregister()

		header := c.Response().Header()
		header.Set(echo.HeaderContentType, "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		c.Response().WriteHeader(http.StatusOK)
		rc := http.NewResponseController(c.Response())
		if err := rc.Flush(); err != nil {
			return nil
		}

		if err := ctrl.Mount(id); err != nil {
			return nil
		}

		heartbeat := time.NewTicker(sseHeartbeatEvery)
		defer heartbeat.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-heartbeat.C:
				if _, err := io.WriteString(c.Response(), ": ping\n\n"); err != nil {
					return nil
				}
			case snap := <-updates:
				data := entityViewData(page, layout, snap)
				data.Live = true
				var buf bytes.Buffer
				if err := views.EntityBody(data).Render(ctx, &buf); err != nil {
					c.Logger().Error("render live body", "error", err)
					return nil
				}
				if err := writeSSE(c.Response(), sseEventRefresh, buf.String()); err != nil {
					return nil
				}
			}
			if err := rc.Flush(); err != nil {
				return nil
			}
		}
	}
}

// HandleEntityReload marks the cached data of the entity type dirty and
// starts a new cycle in every live view of the entity. The dirty read
// forces each view through an immediate second, uncached cycle.
func (h *Handlers) HandleEntityReload(page EntityPage) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			return RenderNotFound(c)
		}
		h.Client.Invalidate(page.EntityType)
		n := h.Hub.Reload(page.EntityType, id)
		c.Logger().Debug("manual reload", "entity_type", page.EntityType, "id", id, "views", n)
		if isHX(c) {
			return c.NoContent(http.StatusNoContent)
		}
		return redirect(c, views.EntityURL(page.List, id))
	}
}

// newController fills in the loaders of page and the shared scheduler and
// logger; opts carries the timing and the callbacks.
func (h *Handlers) newController(page EntityPage, opts refresh.Options) (*refresh.Controller, error) {
	cmd, err := h.Client.Command(page.EntityType)
	if err != nil {
		return nil, err
	}
	if page.Loaders != nil {
		opts.Loaders = page.Loaders(h.Client)
	}
	opts.Name = page.EntityType
	opts.Entity = refresh.EntityLoader(cmd)
	opts.Scheduler = h.Scheduler
	opts.Logger = h.Logger
	return refresh.New(opts)
}

func entityViewData(page EntityPage, layout viewmodels.LayoutData, snap refresh.Snapshot) viewmodels.EntityViewData {
	data := viewmodels.EntityViewData{
		Layout:     layout,
		List:       page.List,
		EntityType: page.EntityType,
		Title:      page.Title,
		ID:         snap.ID,
		Stale:      snap.Stale,
		LoadedAt:   snap.LoadedAt,
	}
	if e, ok := snap.Entity(); ok {
		data.Entity = e
		data.Loaded = true
	}
	for name, value := range snap.Data {
		coll, ok := value.(gmp.Collection)
		if !ok {
			continue
		}
		if name == refresh.PermissionsSlice {
			for _, e := range coll.Entities {
				data.Permissions = append(data.Permissions, gmp.ParsePermission(e))
			}
			continue
		}
		if data.Related == nil {
			data.Related = make(map[string]gmp.Collection)
		}
		data.Related[name] = coll
	}

	names := make([]string, 0, len(snap.Errors))
	for name := range snap.Errors {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		data.Errors = append(data.Errors, loadErrorMessage(page, name, snap.Errors[name]))
	}
	return data
}

func loadErrorMessage(page EntityPage, slice string, err error) string {
	if slice == refresh.EntitySlice {
		if gmp.IsNotFound(err) {
			return page.Singular + " not found."
		}
		return "Could not load " + strings.ToLower(page.Singular) + "."
	}
	return "Could not load " + strings.ToLower(views.HumanizeKey(slice)) + "."
}

// pushLatest replaces any unread snapshot in ch with s. It must only be
// called from one goroutine at a time.
func pushLatest(ch chan refresh.Snapshot, s refresh.Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func writeSSE(w io.Writer, event, payload string) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\n", event)
	for _, line := range strings.Split(payload, "\n") {
		fmt.Fprintf(&buf, "data: %s\n", line)
	}
	buf.WriteString("\n")
	_, err := w.Write(buf.Bytes())
	return err
}
