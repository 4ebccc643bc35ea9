package refresh

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/open-gsa/gsa/internal/logging"
)

func TestHubReloadsRegisteredViews(t *testing.T) {
	hub := NewHub(logging.Discard())

	var callsA, callsB atomic.Int32
	a := newHarness(t, Options{Name: "t-hub-a", Entity: entityLoader(&callsA, nil), Interval: time.Minute})
	b := newHarness(t, Options{Name: "t-hub-b", Entity: entityLoader(&callsB, nil), Interval: time.Minute})
	_ = a.ctrl.Mount("t1")
	_ = b.ctrl.Mount("t2")
	a.waitFor(Ready)
	b.waitFor(Ready)

	unregisterA := hub.Register("tag", "t1", a.ctrl)
	unregisterB := hub.Register("tag", "t2", b.ctrl)
	if hub.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", hub.Len())
	}

	if n := hub.Reload("tag", "t1"); n != 1 {
		t.Fatalf("Reload(tag, t1) = %d, want 1", n)
	}
	a.waitFor(Loading)
	a.waitFor(Ready)
	if callsA.Load() != 2 || callsB.Load() != 1 {
		t.Fatalf("calls a=%d b=%d", callsA.Load(), callsB.Load())
	}

	if n := hub.Reload("tag", ""); n != 2 {
		t.Fatalf("Reload(tag, \"\") = %d, want 2", n)
	}
	if n := hub.Reload("report", ""); n != 0 {
		t.Fatalf("Reload(report) = %d, want 0", n)
	}

	unregisterA()
	unregisterA()
	unregisterB()
	if hub.Len() != 0 {
		t.Fatalf("Len() after unregister = %d", hub.Len())
	}
}

func TestHubSkipsUnmountedControllers(t *testing.T) {
	hub := NewHub(logging.Discard())
	var calls atomic.Int32
	h := newHarness(t, Options{Name: "t-hub-unmounted", Entity: entityLoader(&calls, nil)})
	_ = h.ctrl.Mount("x")
	h.waitFor(Ready)

	defer hub.Register("vuln", "x", h.ctrl)()
	h.ctrl.Unmount()
	if n := hub.Reload("vuln", "x"); n != 0 {
		t.Fatalf("Reload() = %d, want 0 for an unmounted controller", n)
	}
}
