package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/refresh"
)

func TestHandleEntityRendersDetailPage(t *testing.T) {
	hh := newHandlerHarness(t)
	page := pageFor(t, "reports")

	c, rec := hh.context(http.MethodGet, "/reports/r1", "id", "r1")
	if err := hh.handlers.HandleEntity(page)(c); err != nil {
		t.Fatalf("HandleEntity() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Weekly scan - Report - Greenbone Security Assistant</title>",
		`<h1 class="entity-title">Weekly scan</h1>`,
		`sse-connect="/reports/r1/live"`,
		`hx-post="/reports/r1/reload"`,
		`action="/reports/r1/delete"`,
		"Permissions (1)",
		`data-entity-id="p1"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q", want)
		}
	}
	if hh.handlers.Hub.Len() != 0 {
		t.Fatalf("expected the page render not to leave a live view behind")
	}
}

// countingScheduler never fires; it only counts what was scheduled.
type countingScheduler struct {
	scheduled atomic.Int32
}

func (s *countingScheduler) Schedule(time.Duration, func()) refresh.Token {
	return refresh.Token(s.scheduled.Add(1))
}

func (s *countingScheduler) Cancel(refresh.Token) {}

func TestHandleEntityStaleReadLoadsOnce(t *testing.T) {
	hh := newHandlerHarness(t)
	page := pageFor(t, "reports")
	sched := &countingScheduler{}
	hh.handlers.Scheduler = sched

	c, _ := hh.context(http.MethodGet, "/reports/r1", "id", "r1")
	if err := hh.handlers.HandleEntity(page)(c); err != nil {
		t.Fatalf("HandleEntity() error = %v", err)
	}
	hh.handlers.Client.Invalidate(gmp.TypeReport)
	gets, _ := hh.backend.Calls()

	c, rec := hh.context(http.MethodGet, "/reports/r1", "id", "r1")
	if err := hh.handlers.HandleEntity(page)(c); err != nil {
		t.Fatalf("HandleEntity() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if n := sched.scheduled.Load(); n != 0 {
		t.Fatalf("page render scheduled %d reloads, want none", n)
	}
	if after, _ := hh.backend.Calls(); after-gets > 1 {
		t.Fatalf("stale page render fetched the entity %d times, want at most one", after-gets)
	}
}

func TestHandleEntityUnknownIDIsNotFound(t *testing.T) {
	hh := newHandlerHarness(t)
	page := pageFor(t, "reports")

	c, rec := hh.context(http.MethodGet, "/reports/missing", "id", "missing")
	if err := hh.handlers.HandleEntity(page)(c); err != nil {
		t.Fatalf("HandleEntity() error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleEntityFailedPermissionsKeepEntity(t *testing.T) {
	hh := newHandlerHarness(t)
	hh.backend.FailList(gmp.TypePermission, errors.New("permission backend down"))
	page := pageFor(t, "reports")

	c, rec := hh.context(http.MethodGet, "/reports/r1", "id", "r1")
	if err := hh.handlers.HandleEntity(page)(c); err != nil {
		t.Fatalf("HandleEntity() error = %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<h1 class="entity-title">Weekly scan</h1>`) {
		t.Fatalf("expected the entity despite the failed permissions")
	}
	if !strings.Contains(body, "Could not load permissions.") {
		t.Fatalf("expected the permissions error message, got %q", body)
	}
	if strings.Contains(body, "permission backend down") {
		t.Fatalf("expected the backend error not to leak into the page")
	}
}

func TestHandleEntityBackendFailureShowsMessage(t *testing.T) {
	hh := newHandlerHarness(t)
	hh.backend.FailGet("r1", errors.New("timeout talking to the manager"))
	page := pageFor(t, "reports")

	c, rec := hh.context(http.MethodGet, "/reports/r1", "id", "r1")
	if err := hh.handlers.HandleEntity(page)(c); err != nil {
		t.Fatalf("HandleEntity() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Could not load report.") {
		t.Fatalf("expected the load error message, got %q", body)
	}
	if strings.Contains(body, "entity-title") {
		t.Fatalf("expected no entity body without data")
	}
}

func TestHandleEntityReload(t *testing.T) {
	hh := newHandlerHarness(t)
	page := pageFor(t, "reports")

	c, rec := hh.context(http.MethodPost, "/reports/r1/reload", "id", "r1")
	asHTMX(c, "")
	if err := hh.handlers.HandleEntityReload(page)(c); err != nil {
		t.Fatalf("HandleEntityReload() error = %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	c, rec = hh.context(http.MethodPost, "/reports/r1/reload", "id", "r1")
	if err := hh.handlers.HandleEntityReload(page)(c); err != nil {
		t.Fatalf("HandleEntityReload() error = %v", err)
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/reports/r1" {
		t.Fatalf("got %d %q, want a redirect to the detail page", rec.Code, rec.Header().Get("Location"))
	}
}

func TestHandleEntityLiveStreamsRefreshes(t *testing.T) {
	hh := newHandlerHarness(t)
	page := pageFor(t, "reports")

	ctx, cancel := context.WithCancel(hh.session)
	defer cancel()
	stream := newStreamRecorder()
	c := hh.contextWith(ctx, stream, http.MethodGet, "/reports/r1/live", "id", "r1")

	done := make(chan error, 1)
	go func() { done <- hh.handlers.HandleEntityLive(page)(c) }()

	waitUntil(t, "the first refresh event", func() bool {
		return stream.Count("event: refresh\n") >= 1
	})
	if got := stream.header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", got)
	}
	if hh.handlers.Hub.Len() != 1 {
		t.Fatalf("Hub.Len() = %d, want 1", hh.handlers.Hub.Len())
	}
	first := stream.String()
	if !strings.Contains(first, `data: <section id="entity-body"`) {
		t.Fatalf("expected the entity body as event data, got %q", first)
	}
	if !strings.Contains(first, "Weekly scan") {
		t.Fatalf("expected the entity in the first event")
	}

	// A mutation elsewhere reaches the open view.
	hh.backend.Put(gmp.Entity{
		ID:               "r1",
		EntityType:       gmp.TypeReport,
		Name:             "Weekly scan (rerun)",
		UserCapabilities: []string{"delete_report"},
	})
	rc, rec := hh.context(http.MethodPost, "/reports/r1/reload", "id", "r1")
	asHTMX(rc, "")
	if err := hh.handlers.HandleEntityReload(page)(rc); err != nil {
		t.Fatalf("HandleEntityReload() error = %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reload status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	waitUntil(t, "the reloaded entity", func() bool {
		return strings.Contains(stream.String(), "Weekly scan (rerun)")
	})

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("HandleEntityLive() error = %v", err)
	}
	if hh.handlers.Hub.Len() != 0 {
		t.Fatalf("expected the live view to unregister, Hub.Len() = %d", hh.handlers.Hub.Len())
	}
}

func TestWriteSSESplitsLines(t *testing.T) {
	var b strings.Builder
	if err := writeSSE(&b, "refresh", "<p>\na</p>"); err != nil {
		t.Fatalf("writeSSE() error = %v", err)
	}
	want := "event: refresh\ndata: <p>\ndata: a</p>\n\n"
	if b.String() != want {
		t.Fatalf("writeSSE() = %q, want %q", b.String(), want)
	}
}

func TestPushLatestKeepsNewestSnapshot(t *testing.T) {
	ch := make(chan refresh.Snapshot, 1)
	pushLatest(ch, refresh.Snapshot{Cycle: 1})
	pushLatest(ch, refresh.Snapshot{Cycle: 2})
	if got := (<-ch).Cycle; got != 2 {
		t.Fatalf("Cycle = %d, want 2", got)
	}
	select {
	case s := <-ch:
		t.Fatalf("unexpected extra snapshot %+v", s)
	default:
	}
}
