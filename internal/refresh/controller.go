// Package refresh drives detail views: it loads an entity and its related
// collections, tracks the load state, and schedules the next load either
// after the auto-refresh interval or right away when the cache reported
// stale data.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/logging"
	"github.com/open-gsa/gsa/internal/metrics"
	"golang.org/x/sync/errgroup"
)

type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var ErrUnmounted = errors.New("refresh controller is unmounted")

// errSuperseded stops the loaders of a cycle once a newer one started.
var errSuperseded = errors.New("refresh cycle superseded")

// LoadError is reported to OnError when a loader fails.
type LoadError struct {
	Loader string
	ID     string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s for %s: %v", e.Loader, e.ID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Snapshot is a copy of the controller state.
type Snapshot struct {
	ID    string
	State State
	// Cycle increases with every load cycle started.
	Cycle  uint64
	Data   map[string]any
	Errors map[string]error
	// Stale is set when the last settled cycle got stale data and forced
	// an immediate reload.
	Stale    bool
	LoadedAt time.Time
}

// Entity returns the value of the primary loader when it is a gmp.Entity.
func (s Snapshot) Entity() (gmp.Entity, bool) {
	e, ok := s.Data[EntitySlice].(gmp.Entity)
	return e, ok
}

// Collection returns the named slice when it is a gmp.Collection.
func (s Snapshot) Collection(name string) (gmp.Collection, bool) {
	c, ok := s.Data[name].(gmp.Collection)
	return c, ok
}

// Err is the failure of the primary loader in the last cycle, if any.
func (s Snapshot) Err() error {
	return s.Errors[EntitySlice]
}

type Options struct {
	// Name labels logs and metrics, e.g. "report".
	Name string
	// Entity is the primary loader. Its failure fails the cycle.
	Entity Loader
	// Loaders are auxiliary; their failures only clear their own slice.
	Loaders []Loader
	// Interval between automatic reloads. Zero or negative disables them.
	Interval time.Duration
	// Once runs a single cycle per Mount, SetID or Reload. No timer is set,
	// not even the immediate reload that stale data forces.
	Once      bool
	Scheduler Scheduler
	// OnError is called once per failed loader per cycle.
	OnError func(error)
	// OnChange receives a snapshot whenever a cycle starts or settles.
	OnChange func(Snapshot)
	Logger   *slog.Logger
}

// Controller runs load cycles for one subject at a time. A new cycle
// cancels the previous one and any pending timer; results of superseded
// cycles are dropped.
//
// OnChange and OnError run one at a time and never after Unmount returns.
// They must not call Unmount.
type Controller struct {
	opts      Options
	scheduler Scheduler
	logger    *slog.Logger

	// callbacks serializes OnChange/OnError; Unmount takes it to wait for a
	// running callback.
	callbacks sync.Mutex

	mu        sync.Mutex
	id        string
	state     State
	data      map[string]any
	errs      map[string]error
	stale     bool
	loadedAt  time.Time
	cycle     uint64
	cancel    context.CancelFunc
	timer     Token
	timerSet  bool
	timerSeq  uint64
	unmounted bool
}

func New(opts Options) (*Controller, error) {
	if opts.Entity.Load == nil {
		return nil, errors.New("refresh: primary loader is required")
	}
	if opts.Entity.Name == "" {
		opts.Entity.Name = EntitySlice
	}
	for i, l := range opts.Loaders {
		if l.Load == nil || l.Name == "" {
			return nil, fmt.Errorf("refresh: loader %d needs a name and a load func", i)
		}
	}
	if opts.Name == "" {
		opts.Name = "entity"
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = NewTimerScheduler()
	}
	return &Controller{
		opts:      opts,
		scheduler: scheduler,
		logger:    logging.Component(opts.Logger, "refresh").With("view", opts.Name),
		data:      make(map[string]any),
		errs:      make(map[string]error),
	}, nil
}

// Mount starts the first cycle for id.
func (c *Controller) Mount(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted {
		return ErrUnmounted
	}
	c.startLocked(id)
	return nil
}

// SetID switches to another subject. Setting the current id is a no-op.
func (c *Controller) SetID(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted {
		return ErrUnmounted
	}
	if c.state != Idle && id == c.id {
		return nil
	}
	c.startLocked(id)
	return nil
}

// Reload starts a new cycle for the current subject right away, replacing
// any pending timer.
func (c *Controller) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted {
		return ErrUnmounted
	}
	if c.state == Idle {
		return nil
	}
	c.startLocked(c.id)
	return nil
}

// Unmount cancels the running cycle and any pending timer. No callback
// runs after Unmount returns.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.unmounted = true
	c.cycle++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.cancelTimerLocked()
	c.mu.Unlock()

	// wait out a callback that passed its cycle check before we got here
	c.callbacks.Lock()
	defer c.callbacks.Unlock()
	c.logger.Debug("unmounted")
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:       c.id,
		State:    c.state,
		Cycle:    c.cycle,
		Data:     make(map[string]any, len(c.data)),
		Errors:   make(map[string]error, len(c.errs)),
		Stale:    c.stale,
		LoadedAt: c.loadedAt,
	}
	for k, v := range c.data {
		s.Data[k] = v
	}
	for k, v := range c.errs {
		s.Errors[k] = v
	}
	return s
}

func (c *Controller) startLocked(id string) {
	if c.cancel != nil {
		c.cancel()
	}
	c.cancelTimerLocked()

	if id != c.id {
		c.data = make(map[string]any)
		c.errs = make(map[string]error)
		c.stale = false
	}
	c.id = id
	c.cycle++
	c.state = Loading

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx, c.cycle, id)
}

func (c *Controller) cancelTimerLocked() {
	if c.timerSet {
		c.scheduler.Cancel(c.timer)
		c.timerSet = false
	}
}

type outcome struct {
	result Result
	err    error
}

func (c *Controller) run(ctx context.Context, cycle uint64, id string) {
	start := time.Now()
	c.emit(cycle)

	loaders := make([]Loader, 0, 1+len(c.opts.Loaders))
	loaders = append(loaders, c.opts.Entity)
	loaders = append(loaders, c.opts.Loaders...)

	// A loader failure only clears its own slice, so loaders only abort
	// their siblings when the cycle is no longer current.
	outcomes := make([]outcome, len(loaders))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range loaders {
		g.Go(func() error {
			res, err := l.Load(gctx, id)
			outcomes[i] = outcome{result: res, err: err}
			if !c.settle(cycle, id, l.Name, res, err) {
				return errSuperseded
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RefreshCyclesTotal.WithLabelValues(c.opts.Name, "superseded").Inc()
		c.logger.Debug("cycle superseded", "id", id, "cycle", cycle)
		return
	}

	c.finish(cycle, id, outcomes, time.Since(start))
}

// emit sends the current snapshot to OnChange if cycle is still current.
func (c *Controller) emit(cycle uint64) {
	c.callbacks.Lock()
	defer c.callbacks.Unlock()

	c.mu.Lock()
	if cycle != c.cycle || c.unmounted {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if c.opts.OnChange != nil {
		c.opts.OnChange(snap)
	}
}

// settle applies one loader's result to its slice. It reports false when
// cycle is no longer current and the result was dropped.
func (c *Controller) settle(cycle uint64, id, name string, res Result, err error) bool {
	c.callbacks.Lock()
	defer c.callbacks.Unlock()

	c.mu.Lock()
	if cycle != c.cycle || c.unmounted {
		c.mu.Unlock()
		return false
	}
	if err == nil {
		c.data[name] = res.Value
		delete(c.errs, name)
		c.mu.Unlock()
		return true
	}
	loadErr := &LoadError{Loader: name, ID: id, Err: err}
	delete(c.data, name)
	c.errs[name] = loadErr
	c.mu.Unlock()

	metrics.RefreshLoaderFailuresTotal.WithLabelValues(c.opts.Name, name).Inc()
	c.logger.Warn("loader failed", "loader", name, "id", id, "err", err)
	if c.opts.OnError != nil {
		c.opts.OnError(loadErr)
	}
	return true
}

// finish runs once every loader of cycle has settled and decides about the
// next cycle.
func (c *Controller) finish(cycle uint64, id string, outcomes []outcome, took time.Duration) {
	c.callbacks.Lock()
	defer c.callbacks.Unlock()

	c.mu.Lock()
	if cycle != c.cycle || c.unmounted {
		c.mu.Unlock()
		metrics.RefreshCyclesTotal.WithLabelValues(c.opts.Name, "superseded").Inc()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loadedAt = time.Now()
	metrics.RefreshCycleDuration.WithLabelValues(c.opts.Name).Observe(took.Seconds())

	if outcomes[0].err != nil {
		c.state = Failed
		c.stale = false
		snap := c.snapshotLocked()
		c.mu.Unlock()

		metrics.RefreshCyclesTotal.WithLabelValues(c.opts.Name, "failed").Inc()
		c.logger.Debug("cycle failed", "id", id, "cycle", cycle)
		c.notify(snap)
		return
	}

	stale := false
	for _, o := range outcomes {
		if o.err == nil && o.result.Meta.Stale() {
			stale = true
			break
		}
	}
	c.state = Ready
	c.stale = stale

	switch {
	case c.opts.Once:
	case stale:
		metrics.RefreshForcedReloadsTotal.WithLabelValues(c.opts.Name).Inc()
		c.scheduleLocked(0)
	case c.opts.Interval > 0:
		c.scheduleLocked(c.opts.Interval)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	metrics.RefreshCyclesTotal.WithLabelValues(c.opts.Name, "ready").Inc()
	c.logger.Debug("cycle ready", "id", id, "cycle", cycle, "stale", stale)
	c.notify(snap)
}

func (c *Controller) notify(snap Snapshot) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(snap)
	}
}

func (c *Controller) scheduleLocked(delay time.Duration) {
	c.cancelTimerLocked()
	c.timerSeq++
	seq := c.timerSeq
	c.timer = c.scheduler.Schedule(delay, func() { c.onTimer(seq) })
	c.timerSet = true
}

func (c *Controller) onTimer(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted || !c.timerSet || seq != c.timerSeq {
		return
	}
	c.timerSet = false
	c.startLocked(c.id)
}
