package refresh

import (
	"sync"
	"time"
)

// Token identifies a scheduled callback.
type Token uint64

// Scheduler runs fn once after delay unless the token is cancelled first.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Token
	Cancel(Token)
}

// TimerScheduler is the wall-clock Scheduler.
type TimerScheduler struct {
	mu     sync.Mutex
	next   Token
	timers map[Token]*time.Timer
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[Token]*time.Timer)}
}

func (s *TimerScheduler) Schedule(delay time.Duration, fn func()) Token {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	token := s.next
	s.timers[token] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		_, live := s.timers[token]
		delete(s.timers, token)
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	return token
}

func (s *TimerScheduler) Cancel(token Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[token]; ok {
		t.Stop()
		delete(s.timers, token)
	}
}

// Pending returns the number of timers that have neither fired nor been
// cancelled.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
