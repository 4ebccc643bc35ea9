package handlers

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v5"
)

const (
	headerHXRequest  = "HX-Request"
	headerHXBoosted  = "HX-Boosted"
	headerHXTarget   = "HX-Target"
	headerHXRedirect = "HX-Redirect"
)

func hxHeader(c *echo.Context, name string) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return strings.TrimSpace(c.Request().Header.Get(name))
}

func isHX(c *echo.Context) bool {
	return strings.EqualFold(hxHeader(c, headerHXRequest), "true")
}

// isHXBoosted reports a boosted link or form: htmx asks for the whole page
// and swaps its body.
func isHXBoosted(c *echo.Context) bool {
	return strings.EqualFold(hxHeader(c, headerHXBoosted), "true")
}

// isHXTarget compares the HX-Target header with target. A leading "#" on
// either side is ignored, htmx sends the bare element id.
func isHXTarget(c *echo.Context, target string) bool {
	got := strings.TrimPrefix(hxHeader(c, headerHXTarget), "#")
	return strings.EqualFold(got, strings.TrimPrefix(strings.TrimSpace(target), "#"))
}

func setHXRedirect(c *echo.Context, url string) {
	c.Response().Header().Set(headerHXRedirect, url)
}

// addVary merges names into the Vary header, each once. A "*" already
// present wins.
func addVary(c *echo.Context, names ...string) {
	header := c.Response().Header()
	seen := make(map[string]bool)
	var merged []string
	for _, line := range slices.Concat(header.Values(echo.HeaderVary), names) {
		for _, name := range strings.Split(line, ",") {
			name = http.CanonicalHeaderKey(strings.TrimSpace(name))
			switch {
			case name == "*":
				header.Set(echo.HeaderVary, "*")
				return
			case name == "" || seen[name]:
				continue
			}
			seen[name] = true
			merged = append(merged, name)
		}
	}
	if len(merged) > 0 {
		header.Set(echo.HeaderVary, strings.Join(merged, ", "))
	}
}
