package views

import (
	"encoding/json"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/http/viewmodels"
)

const dateLayout = "Mon, Jan 2, 2006 3:04 PM"

func FormatInt(v int) string {
	return strconv.Itoa(v)
}

// FormatTime renders t in the console's date format, or N/A for the zero
// time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return gmp.SeverityNA
	}
	return t.UTC().Format(dateLayout)
}

// EntityURL is the detail page of one entity of list.
func EntityURL(list, id string) string {
	return "/" + list + "/" + url.PathEscape(id)
}

func EntityActionURL(list, id, action string) string {
	return EntityURL(list, id) + "/" + action
}

// ListURL is the list page filtered by filter. Unlike listview.ListURL it
// takes the raw filter text typed by the user.
func ListURL(list, filter string) string {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return "/" + list
	}
	values := url.Values{}
	values.Set("filter", filter)
	return "/" + list + "?" + values.Encode()
}

// SeverityClassName is the CSS modifier of a severity class label.
func SeverityClassName(class string) string {
	return "severity-" + strings.ReplaceAll(strings.ToLower(class), " ", "-")
}

// HumanizeKey turns a field key such as "resource_count" into "Resource
// Count".
func HumanizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return gmp.SeverityNA
	}

	parts := strings.FieldsFunc(strings.ToLower(key), func(r rune) bool {
		return r == '_' || r == ':' || r == '-'
	})
	for idx, part := range parts {
		if part == "" {
			continue
		}
		parts[idx] = strings.ToUpper(part[:1]) + part[1:]
	}
	if len(parts) == 0 {
		return key
	}
	return strings.Join(parts, " ")
}

// pollTrigger is the hx-trigger of a results section: an immediate re-fetch
// while the data is known to be stale, otherwise a poll on interval. No
// trigger means no automatic refresh.
func pollTrigger(updating bool, interval time.Duration) string {
	if updating {
		return "load"
	}
	if interval <= 0 {
		return ""
	}
	secs := int(interval.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return "every " + strconv.Itoa(secs) + "s"
}

// NA returns "N/A" for empty values, mirroring how absent fields are shown.
func NA(s string) string {
	if strings.TrimSpace(s) == "" {
		return gmp.SeverityNA
	}
	return s
}

// Shorten truncates s to max runes, appending "...".
func Shorten(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func pageTitle(title string) string {
	const app = "Greenbone Security Assistant"
	if t := strings.TrimSpace(title); t != "" {
		return t + " - " + app
	}
	return app
}

func navItems(nav []viewmodels.NavItem) []viewmodels.NavItem {
	if len(nav) == 0 {
		return DefaultNav
	}
	return nav
}

// csrfHeaders is the hx-headers value sending token with every htmx request.
func csrfHeaders(token string) string {
	raw, _ := json.Marshal(map[string]string{"X-CSRF-Token": token})
	return string(raw)
}

// severityPercent is the fill of a severity bar: the score scaled to 0-100.
func severityPercent(severity *float64) string {
	width := 0.0
	if severity != nil && *severity > 0 {
		width = min(*severity*10, 100)
	}
	return strconv.FormatFloat(width, 'f', 0, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
