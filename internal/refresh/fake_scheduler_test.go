package refresh

import (
	"sync"
	"testing"
	"time"
)

// fakeScheduler records timers and only runs them when a test fires them.
type fakeScheduler struct {
	mu         sync.Mutex
	next       Token
	pending    map[Token]fakeTimer
	history    []time.Duration
	maxPending int
}

type fakeTimer struct {
	delay time.Duration
	fn    func()
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{pending: make(map[Token]fakeTimer)}
}

func (s *fakeScheduler) Schedule(delay time.Duration, fn func()) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = fakeTimer{delay: delay, fn: fn}
	s.history = append(s.history, delay)
	if len(s.pending) > s.maxPending {
		s.maxPending = len(s.pending)
	}
	return s.next
}

func (s *fakeScheduler) Cancel(token Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, token)
}

func (s *fakeScheduler) Pending() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, len(s.pending))
	for _, t := range s.pending {
		out = append(out, t.delay)
	}
	return out
}

func (s *fakeScheduler) History() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.history...)
}

func (s *fakeScheduler) MaxPending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxPending
}

// Fire runs the single pending timer.
func (s *fakeScheduler) Fire(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	if len(s.pending) != 1 {
		n := len(s.pending)
		s.mu.Unlock()
		t.Fatalf("Fire: %d timers pending, want 1", n)
	}
	var fn func()
	for token, timer := range s.pending {
		fn = timer.fn
		delete(s.pending, token)
	}
	s.mu.Unlock()
	fn()
}
