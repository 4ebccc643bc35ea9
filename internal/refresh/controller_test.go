package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/logging"
	"github.com/open-gsa/gsa/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const waitTimeout = 2 * time.Second

type harness struct {
	t         *testing.T
	ctrl      *Controller
	scheduler *fakeScheduler
	changes   chan Snapshot

	mu     sync.Mutex
	errors []error
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		scheduler: newFakeScheduler(),
		changes:   make(chan Snapshot, 256),
	}
	opts.Scheduler = h.scheduler
	opts.Logger = logging.Discard()
	opts.OnChange = func(s Snapshot) { h.changes <- s }
	opts.OnError = func(err error) {
		h.mu.Lock()
		h.errors = append(h.errors, err)
		h.mu.Unlock()
	}
	ctrl, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.ctrl = ctrl
	t.Cleanup(ctrl.Unmount)
	return h
}

// waitFor consumes change notifications until one is in state.
func (h *harness) waitFor(state State) Snapshot {
	h.t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case s := <-h.changes:
			if s.State == state {
				return s
			}
		case <-deadline:
			h.t.Fatalf("timed out waiting for state %s (now %s)", state, h.ctrl.Snapshot().State)
		}
	}
}

func (h *harness) errorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.errors)
}

// entityLoader returns entities named after the id; calls counts invocations
// and meta gives the provenance of each call (1-based), defaulting to fresh.
func entityLoader(calls *atomic.Int32, meta func(n int32) gmp.Meta) Loader {
	return Loader{
		Name: EntitySlice,
		Load: func(ctx context.Context, id string) (Result, error) {
			n := calls.Add(1)
			m := gmp.Meta{}
			if meta != nil {
				m = meta(n)
			}
			return Result{Value: gmp.Entity{ID: id, Name: "entity " + id}, Meta: m}, nil
		},
	}
}

func staleOnFirst(n int32) gmp.Meta {
	if n == 1 {
		return gmp.Meta{FromCache: true, Dirty: true}
	}
	return gmp.Meta{FromCache: true}
}

func TestReadySchedulesInterval(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, Options{Name: "t-interval", Entity: entityLoader(&calls, nil), Interval: 30 * time.Second})

	if err := h.ctrl.Mount("r1"); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if got := h.ctrl.Snapshot().State; got != Loading && got != Ready {
		t.Fatalf("state after Mount = %s", got)
	}
	snap := h.waitFor(Ready)

	e, ok := snap.Entity()
	if !ok || e.ID != "r1" {
		t.Fatalf("Entity() = %+v, %v", e, ok)
	}
	if snap.Stale {
		t.Fatal("fresh result must not be stale")
	}
	if pending := h.scheduler.Pending(); len(pending) != 1 || pending[0] != 30*time.Second {
		t.Fatalf("pending = %v, want [30s]", pending)
	}
}

func TestTimerStartsNextCycle(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, Options{Name: "t-timer", Entity: entityLoader(&calls, nil), Interval: time.Minute})
	_ = h.ctrl.Mount("r1")
	first := h.waitFor(Ready)

	h.scheduler.Fire(t)
	h.waitFor(Loading)
	second := h.waitFor(Ready)

	if calls.Load() != 2 {
		t.Fatalf("loader calls = %d, want 2", calls.Load())
	}
	if second.Cycle <= first.Cycle {
		t.Fatalf("cycle did not advance: %d -> %d", first.Cycle, second.Cycle)
	}
	if h.scheduler.MaxPending() != 1 {
		t.Fatalf("max pending timers = %d, want 1", h.scheduler.MaxPending())
	}
}

func TestStaleResultForcesOneImmediateReload(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, Options{Name: "t-stale", Entity: entityLoader(&calls, staleOnFirst), Interval: 30 * time.Second})
	_ = h.ctrl.Mount("r1")

	snap := h.waitFor(Ready)
	if !snap.Stale {
		t.Fatal("expected stale snapshot")
	}
	if pending := h.scheduler.Pending(); len(pending) != 1 || pending[0] != 0 {
		t.Fatalf("pending = %v, want [0s]", pending)
	}

	h.scheduler.Fire(t)
	h.waitFor(Loading)
	snap = h.waitFor(Ready)
	if snap.Stale {
		t.Fatal("follow-up result must not be stale")
	}

	history := h.scheduler.History()
	if len(history) != 2 || history[0] != 0 || history[1] != 30*time.Second {
		t.Fatalf("scheduled delays = %v, want [0s 30s]", history)
	}
	if h.scheduler.MaxPending() != 1 {
		t.Fatalf("max pending timers = %d, want 1", h.scheduler.MaxPending())
	}
	if calls.Load() != 2 {
		t.Fatalf("loader calls = %d, want 2", calls.Load())
	}
}

func TestStaleAuxiliaryReloadsEveryLoader(t *testing.T) {
	var entityCalls, auxCalls atomic.Int32
	aux := Loader{
		Name: PermissionsSlice,
		Load: func(ctx context.Context, id string) (Result, error) {
			n := auxCalls.Add(1)
			return Result{Value: gmp.Collection{Entities: []gmp.Entity{}}, Meta: staleOnFirst(n)}, nil
		},
	}
	h := newHarness(t, Options{Name: "t-aux-stale", Entity: entityLoader(&entityCalls, nil), Loaders: []Loader{aux}, Interval: time.Minute})
	_ = h.ctrl.Mount("r1")

	if !h.waitFor(Ready).Stale {
		t.Fatal("stale auxiliary result must mark the cycle stale")
	}
	h.scheduler.Fire(t)
	h.waitFor(Loading)
	h.waitFor(Ready)

	if entityCalls.Load() != 2 || auxCalls.Load() != 2 {
		t.Fatalf("calls entity=%d aux=%d, want 2 and 2", entityCalls.Load(), auxCalls.Load())
	}
}

func TestNonPositiveIntervalDisablesAutoRefresh(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		var calls atomic.Int32
		h := newHarness(t, Options{Name: "t-disabled", Entity: entityLoader(&calls, nil), Interval: interval})
		_ = h.ctrl.Mount("r1")
		h.waitFor(Ready)
		if pending := h.scheduler.Pending(); len(pending) != 0 {
			t.Fatalf("interval %s: pending = %v, want none", interval, pending)
		}
	}
}

func TestStaleReloadsEvenWithoutAutoRefresh(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, Options{Name: "t-stale-disabled", Entity: entityLoader(&calls, staleOnFirst)})
	_ = h.ctrl.Mount("r1")
	h.waitFor(Ready)

	h.scheduler.Fire(t)
	h.waitFor(Loading)
	h.waitFor(Ready)
	if pending := h.scheduler.Pending(); len(pending) != 0 {
		t.Fatalf("pending = %v, want none after the forced reload", pending)
	}
}

func TestOnceSkipsStaleReloadAndInterval(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, Options{Name: "t-once", Entity: entityLoader(&calls, staleOnFirst), Interval: time.Minute, Once: true})
	_ = h.ctrl.Mount("r1")

	if snap := h.waitFor(Ready); !snap.Stale {
		t.Fatal("expected the stale flag to survive without a reload")
	}
	if history := h.scheduler.History(); len(history) != 0 {
		t.Fatalf("scheduled delays = %v, want none", history)
	}

	_ = h.ctrl.Reload()
	h.waitFor(Loading)
	h.waitFor(Ready)
	if history := h.scheduler.History(); len(history) != 0 {
		t.Fatalf("scheduled delays after Reload = %v, want none", history)
	}
	if calls.Load() != 2 {
		t.Fatalf("loader calls = %d, want 2", calls.Load())
	}
}

func TestPrimaryFailureStopsScheduling(t *testing.T) {
	var calls atomic.Int32
	errDown := errors.New("backend down")
	loader := Loader{
		Name: EntitySlice,
		Load: func(ctx context.Context, id string) (Result, error) {
			if calls.Add(1) == 1 {
				return Result{}, errDown
			}
			return Result{Value: gmp.Entity{ID: id}}, nil
		},
	}
	h := newHarness(t, Options{Name: "t-failed", Entity: loader, Interval: time.Minute})
	_ = h.ctrl.Mount("r1")

	snap := h.waitFor(Failed)
	if _, ok := snap.Entity(); ok {
		t.Fatal("failed cycle must clear the entity")
	}
	if !errors.Is(snap.Err(), errDown) {
		t.Fatalf("Err() = %v", snap.Err())
	}
	var loadErr *LoadError
	if !errors.As(snap.Err(), &loadErr) || loadErr.Loader != EntitySlice || loadErr.ID != "r1" {
		t.Fatalf("Err() = %#v", snap.Err())
	}
	if pending := h.scheduler.Pending(); len(pending) != 0 {
		t.Fatalf("pending = %v, want none", pending)
	}
	if h.errorCount() != 1 {
		t.Fatalf("OnError calls = %d, want 1", h.errorCount())
	}

	if err := h.ctrl.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := h.ctrl.Snapshot().State; got != Loading && got != Ready {
		t.Fatalf("state after Reload = %s", got)
	}
	snap = h.waitFor(Ready)
	if snap.Err() != nil {
		t.Fatalf("Err() after successful reload = %v", snap.Err())
	}
	if len(h.scheduler.Pending()) != 1 {
		t.Fatal("successful reload must schedule the next cycle")
	}
}

func TestAuxiliaryFailureClearsOnlyItsSlice(t *testing.T) {
	var calls, auxCalls atomic.Int32
	aux := Loader{
		Name: PermissionsSlice,
		Load: func(ctx context.Context, id string) (Result, error) {
			if auxCalls.Add(1) == 2 {
				return Result{}, errors.New("permissions unavailable")
			}
			return Result{Value: gmp.Collection{Entities: []gmp.Entity{{ID: "p1"}}}}, nil
		},
	}
	h := newHarness(t, Options{Name: "t-aux-fail", Entity: entityLoader(&calls, nil), Loaders: []Loader{aux}, Interval: time.Minute})
	_ = h.ctrl.Mount("r1")

	snap := h.waitFor(Ready)
	if _, ok := snap.Collection(PermissionsSlice); !ok {
		t.Fatal("expected permissions slice")
	}

	_ = h.ctrl.Reload()
	h.waitFor(Loading)
	snap = h.waitFor(Ready)
	if _, ok := snap.Collection(PermissionsSlice); ok {
		t.Fatal("failed auxiliary loader must clear its slice")
	}
	if _, ok := snap.Entity(); !ok {
		t.Fatal("entity slice must survive an auxiliary failure")
	}
	if snap.Errors[PermissionsSlice] == nil {
		t.Fatal("expected auxiliary error in snapshot")
	}
	if h.errorCount() != 1 {
		t.Fatalf("OnError calls = %d, want 1", h.errorCount())
	}
	if len(h.scheduler.Pending()) != 1 {
		t.Fatal("auxiliary failure must not stop scheduling")
	}
}

func TestSetIDCancelsInFlightCycle(t *testing.T) {
	cancelled := make(chan struct{})
	loader := Loader{
		Name: EntitySlice,
		Load: func(ctx context.Context, id string) (Result, error) {
			if id == "slow" {
				<-ctx.Done()
				close(cancelled)
				return Result{}, ctx.Err()
			}
			return Result{Value: gmp.Entity{ID: id}}, nil
		},
	}
	h := newHarness(t, Options{Name: "t-setid", Entity: loader, Interval: time.Minute})
	_ = h.ctrl.Mount("slow")
	h.waitFor(Loading)

	if err := h.ctrl.SetID("fast"); err != nil {
		t.Fatalf("SetID() error = %v", err)
	}
	snap := h.waitFor(Ready)
	if e, _ := snap.Entity(); e.ID != "fast" || snap.ID != "fast" {
		t.Fatalf("snapshot = %+v", snap)
	}

	select {
	case <-cancelled:
	case <-time.After(waitTimeout):
		t.Fatal("superseded loader was not cancelled")
	}
	h.ctrl.Unmount()
	if h.errorCount() != 0 {
		t.Fatalf("superseded failure reported %d times", h.errorCount())
	}
}

func TestSupersededResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	loader := Loader{
		Name: EntitySlice,
		Load: func(ctx context.Context, id string) (Result, error) {
			if id == "old" {
				<-release
			}
			return Result{Value: gmp.Entity{ID: id}}, nil
		},
	}
	const view = "t-superseded"
	superseded := metrics.RefreshCyclesTotal.WithLabelValues(view, "superseded")
	before := testutil.ToFloat64(superseded)

	h := newHarness(t, Options{Name: view, Entity: loader, Interval: time.Minute})
	_ = h.ctrl.Mount("old")
	_ = h.ctrl.SetID("new")
	h.waitFor(Ready)
	close(release)

	deadline := time.Now().Add(waitTimeout)
	for testutil.ToFloat64(superseded) == before {
		if time.Now().After(deadline) {
			t.Fatal("old cycle never settled")
		}
		time.Sleep(time.Millisecond)
	}

	snap := h.ctrl.Snapshot()
	if e, _ := snap.Entity(); snap.ID != "new" || e.ID != "new" || snap.State != Ready {
		t.Fatalf("snapshot after superseded settle = %+v", snap)
	}
	if pending := h.scheduler.Pending(); len(pending) != 1 {
		t.Fatalf("pending = %v, want one timer", pending)
	}
}

func TestSupersededCycleCancelsSiblingLoaders(t *testing.T) {
	release := make(chan struct{})
	siblingDone := make(chan struct{})
	primary := Loader{
		Name: EntitySlice,
		Load: func(ctx context.Context, id string) (Result, error) {
			if id == "old" {
				<-release
			}
			return Result{Value: gmp.Entity{ID: id}}, nil
		},
	}
	sibling := Loader{
		Name: PermissionsSlice,
		Load: func(ctx context.Context, id string) (Result, error) {
			if id == "old" {
				<-ctx.Done()
				close(siblingDone)
				return Result{}, ctx.Err()
			}
			return Result{Value: gmp.Collection{}}, nil
		},
	}
	const view = "t-superseded-siblings"
	superseded := metrics.RefreshCyclesTotal.WithLabelValues(view, "superseded")
	before := testutil.ToFloat64(superseded)

	h := newHarness(t, Options{Name: view, Entity: primary, Loaders: []Loader{sibling}})
	_ = h.ctrl.Mount("old")
	h.waitFor(Loading)
	_ = h.ctrl.SetID("new")
	h.waitFor(Ready)
	close(release)

	select {
	case <-siblingDone:
	case <-time.After(waitTimeout):
		t.Fatal("sibling loader of the superseded cycle was not cancelled")
	}
	deadline := time.Now().Add(waitTimeout)
	for testutil.ToFloat64(superseded) == before {
		if time.Now().After(deadline) {
			t.Fatal("superseded cycle never settled")
		}
		time.Sleep(time.Millisecond)
	}
	if got := testutil.ToFloat64(superseded) - before; got != 1 {
		t.Fatalf("superseded cycles = %v, want 1", got)
	}
	if h.errorCount() != 0 {
		t.Fatalf("superseded failures reported %d times", h.errorCount())
	}
	if snap := h.ctrl.Snapshot(); snap.ID != "new" || snap.State != Ready {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSetIDSameIDIsNoop(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, Options{Name: "t-same", Entity: entityLoader(&calls, nil), Interval: time.Minute})
	_ = h.ctrl.Mount("r1")
	before := h.waitFor(Ready)

	_ = h.ctrl.SetID("r1")
	if after := h.ctrl.Snapshot(); after.Cycle != before.Cycle || after.State != Ready {
		t.Fatalf("SetID(same) started a cycle: %+v", after)
	}
}

func TestReloadReplacesPendingTimer(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, Options{Name: "t-reload", Entity: entityLoader(&calls, nil), Interval: time.Minute})
	_ = h.ctrl.Mount("r1")
	h.waitFor(Ready)

	_ = h.ctrl.Reload()
	h.waitFor(Loading)
	h.waitFor(Ready)

	if pending := h.scheduler.Pending(); len(pending) != 1 {
		t.Fatalf("pending = %v, want one timer", pending)
	}
	if h.scheduler.MaxPending() != 1 {
		t.Fatalf("max pending timers = %d, want 1", h.scheduler.MaxPending())
	}
}

func TestUnmountCancelsTimerAndCallbacks(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, Options{Name: "t-unmount", Entity: entityLoader(&calls, nil), Interval: time.Minute})
	_ = h.ctrl.Mount("r1")
	h.waitFor(Ready)

	h.ctrl.Unmount()
	if pending := h.scheduler.Pending(); len(pending) != 0 {
		t.Fatalf("pending = %v after Unmount", pending)
	}
	if err := h.ctrl.Reload(); !errors.Is(err, ErrUnmounted) {
		t.Fatalf("Reload() after Unmount error = %v", err)
	}
	if err := h.ctrl.Mount("r2"); !errors.Is(err, ErrUnmounted) {
		t.Fatalf("Mount() after Unmount error = %v", err)
	}
	select {
	case s := <-h.changes:
		t.Fatalf("unexpected change after Unmount: %+v", s)
	default:
	}
}

func TestReloadBeforeMountIsNoop(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, Options{Name: "t-idle", Entity: entityLoader(&calls, nil)})
	if err := h.ctrl.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if s := h.ctrl.Snapshot(); s.State != Idle || calls.Load() != 0 {
		t.Fatalf("snapshot = %+v, calls = %d", s, calls.Load())
	}
}

func TestLoadersRunConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	meet := func(name string) Loader {
		return Loader{
			Name: name,
			Load: func(ctx context.Context, id string) (Result, error) {
				started.Done()
				started.Wait()
				return Result{Value: gmp.Entity{ID: id}}, nil
			},
		}
	}
	h := newHarness(t, Options{Name: "t-concurrent", Entity: meet(EntitySlice), Loaders: []Loader{meet("other")}})
	_ = h.ctrl.Mount("r1")
	h.waitFor(Ready)
}

func TestNewValidatesLoaders(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without a primary loader")
	}
	var calls atomic.Int32
	_, err := New(Options{Entity: entityLoader(&calls, nil), Loaders: []Loader{{Name: "x"}}})
	if err == nil {
		t.Fatal("expected error for auxiliary loader without func")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Loading: "loading", Ready: "ready", Failed: "failed"} {
		if s.String() != want {
			t.Fatalf("%d.String() = %q", int(s), s.String())
		}
	}
}
