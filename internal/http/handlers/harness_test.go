package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/open-gsa/gsa/internal/config"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/gmp/gmptest"
	"github.com/open-gsa/gsa/internal/listview"
	"github.com/open-gsa/gsa/internal/logging"
	"github.com/open-gsa/gsa/internal/refresh"
)

type handlerHarness struct {
	handlers *Handlers
	backend  *gmptest.Backend
	// session is shared by every request of the harness, like a browser
	// sending the same cookie.
	session context.Context
}

func newHandlerHarness(t *testing.T) *handlerHarness {
	t.Helper()

	backend := gmptest.NewBackend(
		gmp.Entity{
			ID:         "r1",
			EntityType: gmp.TypeReport,
			Name:       "Weekly scan",
			Severity:   gmptest.Severity(9.8),
			Fields: map[string]any{
				"status": "Done",
				"task":   "Weekly scan",
				"high":   3,
			},
			UserCapabilities: []string{"get_reports", "delete_report"},
		},
		gmp.Entity{
			ID:         "r2",
			EntityType: gmp.TypeReport,
			Name:       "DMZ audit",
			Severity:   gmptest.Severity(4.3),
			Fields:     map[string]any{"status": "Done", "task": "DMZ audit"},
		},
		gmp.Entity{
			ID:               "t1",
			EntityType:       gmp.TypeTag,
			Name:             "production",
			Fields:           map[string]any{"value": "prod", "active": true, "resource_type": "host"},
			UserCapabilities: []string{"modify_tag", "delete_tag"},
		},
		gmp.Entity{
			ID:         "t2",
			EntityType: gmp.TypeTag,
			Name:       "legacy",
			Fields:     map[string]any{"active": false},
		},
		gmp.Entity{
			ID:         "p1",
			EntityType: gmp.TypePermission,
			Name:       "get_reports",
			Fields: map[string]any{
				"resource_uuid": "r1",
				"resource_type": "report",
				"subject_uuid":  "u1",
				"subject_type":  "user",
			},
		},
		gmp.Entity{ID: "v1", EntityType: gmp.TypeVuln, Name: "OpenSSH", Severity: gmptest.Severity(7.5)},
		gmp.Entity{ID: "v2", EntityType: gmp.TypeVuln, Name: "TLS", Severity: gmptest.Severity(5.0)},
		gmp.Entity{ID: "v3", EntityType: gmp.TypeVuln, Name: "Banner", Severity: gmptest.Severity(0)},
	)
	backend.SetCapabilities(
		"get_reports", "delete_report",
		"get_tags", "create_tag", "modify_tag", "delete_tag",
		"get_vulns", "get_permissions",
	)

	logger := logging.Discard()
	client := gmp.NewClient(backend, gmp.ClientOptions{CacheTTL: time.Minute, DefaultRows: 10, Logger: logger})
	sessions := scs.New()
	session, err := sessions.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}

	return &handlerHarness{
		handlers: &Handlers{
			Cfg:      config.Config{AutoRefreshInterval: 30 * time.Second, PageRows: 10},
			Client:   client,
			Sessions: sessions,
			Lists:    listview.NewStateStore(sessions),
			Hub:      refresh.NewHub(logger),
			Logger:   logger,
		},
		backend: backend,
		session: session,
	}
}

func (hh *handlerHarness) context(method, target string, pathValues ...string) (*echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return hh.contextWith(hh.session, rec, method, target, pathValues...), rec
}

func (hh *handlerHarness) contextWith(ctx context.Context, w http.ResponseWriter, method, target string, pathValues ...string) *echo.Context {
	e := echo.New()
	e.Logger = logging.Discard()
	req := httptest.NewRequest(method, target, nil).WithContext(ctx)
	c := e.NewContext(req, w)
	if len(pathValues) > 0 {
		values := make(echo.PathValues, 0, len(pathValues)/2)
		for i := 0; i+1 < len(pathValues); i += 2 {
			values = append(values, echo.PathValue{Name: pathValues[i], Value: pathValues[i+1]})
		}
		c.SetPathValues(values)
	}
	return c
}

func pageFor(t *testing.T, list string) EntityPage {
	t.Helper()
	for _, p := range Pages() {
		if p.List == list {
			return p
		}
	}
	t.Fatalf("no page for list %q", list)
	return EntityPage{}
}

func withFilter(path, filter string) string {
	return path + "?filter=" + url.QueryEscape(filter)
}

func asHTMX(c *echo.Context, target string) {
	c.Request().Header.Set("HX-Request", "true")
	if target != "" {
		c.Request().Header.Set("HX-Target", target)
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// streamRecorder is a flushable ResponseWriter whose body can be read while
// a handler is still writing.
type streamRecorder struct {
	mu      sync.Mutex
	header  http.Header
	status  int
	body    bytes.Buffer
	flushes int
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: make(http.Header)}
}

func (r *streamRecorder) Header() http.Header { return r.header }

func (r *streamRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == 0 {
		r.status = code
	}
}

func (r *streamRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(b)
}

func (r *streamRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
}

func (r *streamRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

func (r *streamRecorder) Count(substr string) int {
	return strings.Count(r.String(), substr)
}
