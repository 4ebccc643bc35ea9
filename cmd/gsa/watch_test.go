package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/gmp/gmptest"
	"github.com/open-gsa/gsa/internal/logging"
	"github.com/open-gsa/gsa/internal/refresh"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, out *lockedBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in output %q", want, out.String())
}

func newWatchClient(t *testing.T) (*gmp.Client, *gmptest.Backend) {
	t.Helper()
	backend := gmptest.NewBackend(
		gmp.Entity{ID: "r1", EntityType: gmp.TypeReport, Name: "Weekly scan", Severity: gmptest.Severity(9.8)},
		gmp.Entity{ID: "r2", EntityType: gmp.TypeReport, Name: "DMZ audit", Severity: gmptest.Severity(4.3)},
		gmp.Entity{
			ID:         "p1",
			EntityType: gmp.TypePermission,
			Name:       "get_reports",
			Fields: map[string]any{
				"resource_uuid": "r1",
				"subject_uuid":  "u1",
				"subject_type":  "user",
			},
		},
	)
	client := gmp.NewClient(backend, gmp.ClientOptions{CacheTTL: time.Minute, DefaultRows: 10, Logger: logging.Discard()})
	return client, backend
}

func TestRunWatchFollowsInput(t *testing.T) {
	client, backend := newWatchClient(t)
	in, stdin := io.Pipe()
	t.Cleanup(func() { _ = stdin.Close() })
	out := &lockedBuffer{}

	done := make(chan error, 1)
	go func() {
		done <- runWatch(context.Background(), watchOptions{
			Client:     client,
			EntityType: "report",
			ID:         "r1",
			In:         in,
			Out:        out,
			Width:      60,
			Logger:     logging.Discard(),
		})
	}()

	waitForOutput(t, out, "Name:     Weekly scan")
	waitForOutput(t, out, "Permissions: 1")
	waitForOutput(t, out, "get_reports -> user u1")

	if _, err := io.WriteString(stdin, "r2\n"); err != nil {
		t.Fatalf("write id: %v", err)
	}
	waitForOutput(t, out, "Name:     DMZ audit")

	backend.Put(gmp.Entity{ID: "r2", EntityType: gmp.TypeReport, Name: "DMZ audit (rerun)"})
	if _, err := io.WriteString(stdin, "r\n"); err != nil {
		t.Fatalf("write reload: %v", err)
	}
	waitForOutput(t, out, "Name:     DMZ audit (rerun)")

	if _, err := io.WriteString(stdin, "q\n"); err != nil {
		t.Fatalf("write quit: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runWatch() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("runWatch did not return after q")
	}
}

func TestRunWatchKeepsRunningAfterInputEnds(t *testing.T) {
	client, _ := newWatchClient(t)
	out := &lockedBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, watchOptions{
			Client:     client,
			EntityType: "report",
			ID:         "r1",
			In:         strings.NewReader(""),
			Out:        out,
			Width:      60,
			Logger:     logging.Discard(),
		})
	}()

	waitForOutput(t, out, "Name:     Weekly scan")
	select {
	case err := <-done:
		t.Fatalf("runWatch returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runWatch() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("runWatch did not return after cancel")
	}
}

func TestRunWatchRejectsBadArguments(t *testing.T) {
	client, _ := newWatchClient(t)

	err := runWatch(context.Background(), watchOptions{Client: client, EntityType: "spaceship", ID: "r1", Out: io.Discard})
	if !errors.Is(err, gmp.ErrUnknownEntityType) {
		t.Fatalf("err = %v, want ErrUnknownEntityType", err)
	}
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != exitCodeUsage {
		t.Fatalf("err = %v, want a usage exit code", err)
	}

	err = runWatch(context.Background(), watchOptions{Client: client, EntityType: "report", ID: "  ", Out: io.Discard})
	if !errors.As(err, &ee) || ee.code != exitCodeUsage {
		t.Fatalf("err = %v, want a usage exit code for an empty id", err)
	}
}

func TestWriteSnapshot(t *testing.T) {
	loadedAt := time.Date(2024, 3, 5, 14, 7, 0, 0, time.Local)
	snap := refresh.Snapshot{
		ID:    "r1",
		State: refresh.Ready,
		Cycle: 2,
		Data: map[string]any{
			refresh.EntitySlice: gmp.Entity{
				ID:       "r1",
				Name:     "Weekly scan",
				Severity: gmptest.Severity(9.8),
				Fields:   map[string]any{"task": "Nightly", "status": "Done"},
			},
		},
		Errors: map[string]error{
			refresh.PermissionsSlice: errors.New("permission list failed"),
		},
		Stale:    true,
		LoadedAt: loadedAt,
	}

	var out bytes.Buffer
	writeSnapshot(&out, gmp.TypeReport, snap, 40)
	got := out.String()

	lines := strings.Split(got, "\n")
	if len(lines[0]) != 40 || !strings.HasPrefix(lines[0], "-- report r1 | ready | cycle 2 ") {
		t.Fatalf("ruler = %q", lines[0])
	}
	for _, want := range []string{
		"Name:     Weekly scan\n",
		"Severity: 9.8 (High)\n",
		"  status: Done\n  task: Nightly\n",
		"error: permissions: permission list failed\n",
		"Updated 14:07:00 (stale, reloading)\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected output to contain %q, got %q", want, got)
		}
	}
	if strings.Contains(got, "Permissions:") {
		t.Fatalf("expected no permissions section without a collection")
	}
}

func TestRulerDoesNotTruncate(t *testing.T) {
	title := strings.Repeat("x", 30)
	if got := ruler(title, 10); got != "-- "+title+" " {
		t.Fatalf("ruler() = %q", got)
	}
}
