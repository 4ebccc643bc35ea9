package httpapp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/open-gsa/gsa/internal/config"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/gmp/gmptest"
	"github.com/open-gsa/gsa/internal/http/handlers"
	"github.com/open-gsa/gsa/internal/logging"
)

func newErrorContext(t *testing.T, target string) (*EchoServer, *echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Logger = logging.Discard()

	req := httptest.NewRequest(http.MethodGet, "http://example.com"+target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return &EchoServer{h: &handlers.Handlers{}, e: e}, c, rec
}

func TestHTTPErrorHandlerInternalErrorIsGeneric(t *testing.T) {
	es, c, rec := newErrorContext(t, "/test")
	c.Set(handlers.ContextKeyRequestID, "req-123")

	es.httpErrorHandler(c, errors.New("very sensitive error"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusInternalServerError)
	}
	body := rec.Body.String()
	if strings.Contains(body, "very sensitive") {
		t.Fatalf("response leaked error details: %q", body)
	}
	for _, want := range []string{"Internal server error", "Reference: req-123", "Code: " + handlers.InternalErrorCode} {
		if !strings.Contains(body, want) {
			t.Fatalf("response missing %q: %q", want, body)
		}
	}
}

func TestHTTPErrorHandlerNotFoundDoesNotLeakMessage(t *testing.T) {
	for name, err := range map[string]error{
		"echo http error": echo.NewHTTPError(http.StatusNotFound, "leaky not found"),
		"echo not found":  echo.ErrNotFound,
		"gmp not found":   errors.Join(gmp.ErrNotFound, errors.New("leaky report r1")),
	} {
		t.Run(name, func(t *testing.T) {
			es, c, rec := newErrorContext(t, "/missing")
			es.httpErrorHandler(c, err)

			if rec.Code != http.StatusNotFound {
				t.Fatalf("status=%d want %d", rec.Code, http.StatusNotFound)
			}
			body := rec.Body.String()
			if strings.Contains(body, "leaky") {
				t.Fatalf("response leaked error details: %q", body)
			}
			if !strings.Contains(body, "404 page not found") {
				t.Fatalf("response missing not found message: %q", body)
			}
		})
	}
}

func TestHTTPStatusFromErrorUsesStatusCoder(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{echo.ErrNotFound, http.StatusNotFound},
		{echo.ErrForbidden, http.StatusForbidden},
		{gmp.ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := httpStatusFromError(tc.err); got != tc.want {
			t.Fatalf("httpStatusFromError(%v)=%d want %d", tc.err, got, tc.want)
		}
	}
}

func TestHTTPErrorHandlerBadRequestUsesStatusText(t *testing.T) {
	es, c, rec := newErrorContext(t, "/bad")
	es.httpErrorHandler(c, echo.NewHTTPError(http.StatusBadRequest, "leaky bad request"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusBadRequest)
	}
	body := rec.Body.String()
	if strings.Contains(body, "leaky") {
		t.Fatalf("response leaked error details: %q", body)
	}
	if got := strings.TrimSpace(body); got != http.StatusText(http.StatusBadRequest) {
		t.Fatalf("body=%q want %q", got, http.StatusText(http.StatusBadRequest))
	}
}

func TestNewEchoServerRequiresDependencies(t *testing.T) {
	if _, err := NewEchoServer(Options{Sessions: scs.New()}); err == nil {
		t.Fatalf("expected an error without a gmp client")
	}
	client := gmp.NewClient(gmptest.NewBackend(), gmp.ClientOptions{})
	if _, err := NewEchoServer(Options{Client: client}); err == nil {
		t.Fatalf("expected an error without a session manager")
	}
}

func newTestServer(t *testing.T) (*EchoServer, *gmptest.Backend) {
	t.Helper()
	backend := gmptest.NewBackend(
		gmp.Entity{ID: "r1", EntityType: gmp.TypeReport, Name: "Weekly scan", Severity: gmptest.Severity(6.1)},
		gmp.Entity{ID: "t1", EntityType: gmp.TypeTag, Name: "production"},
	)
	backend.SetCapabilities("get_reports", "get_tags", "delete_report")
	logger := logging.Discard()
	es, err := NewEchoServer(Options{
		Config:   config.Config{AutoRefreshInterval: 10 * time.Second, PageRows: 10},
		Client:   gmp.NewClient(backend, gmp.ClientOptions{CacheTTL: time.Minute, DefaultRows: 10, Logger: logger}),
		Sessions: scs.New(),
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("NewEchoServer() error = %v", err)
	}
	return es, backend
}

func serve(es *EchoServer, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	es.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerRoutes(t *testing.T) {
	es, _ := newTestServer(t)

	tests := []struct {
		name     string
		target   string
		status   int
		contains string
	}{
		{name: "healthz", target: "/healthz", status: http.StatusOK, contains: "ok"},
		{name: "root", target: "/", status: http.StatusFound},
		{name: "reports", target: "/reports", status: http.StatusOK, contains: `id="reports-results"`},
		{name: "tags", target: "/tags", status: http.StatusOK, contains: "production"},
		{name: "report detail", target: "/reports/r1", status: http.StatusOK, contains: "Weekly scan"},
		{name: "unknown report", target: "/reports/missing", status: http.StatusNotFound, contains: "404 page not found"},
		{name: "unknown route", target: "/nope", status: http.StatusNotFound, contains: "404 page not found"},
		{name: "dashboard", target: "/vulns/dashboard", status: http.StatusOK, contains: "Vulnerabilities Dashboard"},
		{name: "invalid filter", target: "/reports?filter=first%3D0", status: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(es, httptest.NewRequest(http.MethodGet, tc.target, nil))
			if rec.Code != tc.status {
				t.Fatalf("status=%d want %d body=%q", rec.Code, tc.status, rec.Body.String())
			}
			if tc.contains != "" && !strings.Contains(rec.Body.String(), tc.contains) {
				t.Fatalf("expected body to contain %q", tc.contains)
			}
		})
	}
}

func TestServerRequestID(t *testing.T) {
	es, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-abc")
	if got := serve(es, req).Header().Get(echo.HeaderXRequestID); got != "req-abc" {
		t.Fatalf("X-Request-ID=%q want req-abc", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(echo.HeaderXRequestID, strings.Repeat("x", maxRequestIDLength+1))
	got := serve(es, req).Header().Get(echo.HeaderXRequestID)
	if got == "" || len(got) > maxRequestIDLength {
		t.Fatalf("expected a generated request id, got %q", got)
	}
}

func TestServerRejectsMutationWithoutCSRFToken(t *testing.T) {
	es, backend := newTestServer(t)

	rec := serve(es, httptest.NewRequest(http.MethodPost, "/reports/r1/delete", nil))
	if rec.Code < http.StatusBadRequest {
		t.Fatalf("status=%d, want the request to be rejected", rec.Code)
	}
	if _, err := backend.GetEntity(context.Background(), gmp.TypeReport, "r1"); err != nil {
		t.Fatalf("expected r1 to survive, got %v", err)
	}
}

func TestAccessLogKeepsFirstStatus(t *testing.T) {
	h := accessLog(logging.Discard(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short and stout" {
		t.Fatalf("body=%q", rec.Body.String())
	}
}
