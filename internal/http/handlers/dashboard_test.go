package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/gmp/gmptest"
)

func TestHandleVulnsDashboard(t *testing.T) {
	hh := newHandlerHarness(t)

	c, rec := hh.context(http.MethodGet, "/vulns/dashboard")
	if err := hh.handlers.HandleVulnsDashboard(c); err != nil {
		t.Fatalf("HandleVulnsDashboard() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<th>Severity Class</th><th># of Vulnerabilities</th>",
		`<tr class="severity-high"><td>High</td><td>1</td></tr>`,
		`<tr class="severity-medium"><td>Medium</td><td>1</td></tr>`,
		`<tr class="severity-log"><td>Log</td><td>1</td></tr>`,
		"Total: 3",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q, got %q", want, body)
		}
	}
}

func TestHandleVulnsDashboardAppliesFilter(t *testing.T) {
	hh := newHandlerHarness(t)

	c, rec := hh.context(http.MethodGet, withFilter("/vulns/dashboard", "name~ssh"))
	if err := hh.handlers.HandleVulnsDashboard(c); err != nil {
		t.Fatalf("HandleVulnsDashboard() error = %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Total: 1 (Applied filter: name~ssh)") {
		t.Fatalf("expected the filtered total, got %q", body)
	}
}

func TestHandleVulnsDashboardBackendFailure(t *testing.T) {
	hh := newHandlerHarness(t)
	hh.backend.FailList(gmp.TypeVuln, gmptest.ErrBackendDown)

	c, rec := hh.context(http.MethodGet, "/vulns/dashboard")
	if err := hh.handlers.HandleVulnsDashboard(c); err != nil {
		t.Fatalf("HandleVulnsDashboard() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Could not load vulnerability counts.") {
		t.Fatalf("expected the load error message, got %q", body)
	}
	if strings.Contains(body, gmptest.ErrBackendDown.Error()) {
		t.Fatalf("expected the backend error not to leak into the page")
	}
}
