package handlers

import (
	"encoding/json"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
)

const sessionKeyToast = "toast"

var toastCategories = map[string]bool{
	"success": true,
	"error":   true,
	"warning": true,
	"info":    true,
}

// flash queues toast in the session. The next full page shows it; a newer
// toast replaces one that was never shown.
func (h *Handlers) flash(c *echo.Context, toast viewmodels.ToastViewData) {
	toast, ok := cleanToast(toast)
	if !ok || h.Sessions == nil {
		return
	}
	raw, err := json.Marshal(toast)
	if err != nil {
		return
	}
	h.Sessions.Put(c.Request().Context(), sessionKeyToast, string(raw))
}

// popToast takes the queued toast for a full page render. Fragment swaps
// have no toast region, so they leave it queued.
func (h *Handlers) popToast(c *echo.Context) *viewmodels.ToastViewData {
	if h.Sessions == nil || (isHX(c) && !isHXBoosted(c)) {
		return nil
	}
	raw := h.Sessions.PopString(c.Request().Context(), sessionKeyToast)
	if raw == "" {
		return nil
	}
	var toast viewmodels.ToastViewData
	if err := json.Unmarshal([]byte(raw), &toast); err != nil {
		return nil
	}
	toast, ok := cleanToast(toast)
	if !ok {
		return nil
	}
	return &toast
}

func cleanToast(toast viewmodels.ToastViewData) (viewmodels.ToastViewData, bool) {
	toast.Category = strings.ToLower(strings.TrimSpace(toast.Category))
	if !toastCategories[toast.Category] {
		toast.Category = "info"
	}
	toast.Title = strings.TrimSpace(toast.Title)
	toast.Description = strings.TrimSpace(toast.Description)
	return toast, toast.Title != "" || toast.Description != ""
}
