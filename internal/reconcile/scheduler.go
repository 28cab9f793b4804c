package reconcile

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs deferred callbacks. It backs the scroll debounce and the
// layout settle delay so tests can drive time explicitly.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback. Stop reports whether it prevented the call.
type Timer interface {
	Stop() bool
}

// WallClock schedules callbacks with time.AfterFunc. Callbacks run on their
// own goroutine, so the caller must wrap them when the session is shared.
type WallClock struct{}

// AfterFunc implements Scheduler.
func (WallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler is a virtual clock. Callbacks only run inside Advance or
// Flush, on the calling goroutine.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Duration
	seq     int
	f       func()
	stopped bool
}

// NewManualScheduler returns a ManualScheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTimer{s: s, at: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.stopped {
		return false
	}
	t.stopped = true
	t.s.remove(t)
	return true
}

func (s *ManualScheduler) remove(t *manualTimer) {
	for i, other := range s.timers {
		if other == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}

// Now returns the current virtual time.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of timers that have not fired or been stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Advance moves virtual time forward by d, firing due timers in deadline
// order. Timers scheduled by a callback fire too if they fall inside the
// window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		t := s.nextDue(target)
		if t == nil {
			break
		}
		t.f()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

// Flush fires every pending timer, advancing time to the last deadline.
func (s *ManualScheduler) Flush() {
	for {
		s.mu.Lock()
		if len(s.timers) == 0 {
			s.mu.Unlock()
			return
		}
		latest := s.now
		for _, t := range s.timers {
			latest = max(latest, t.at)
		}
		d := latest - s.now
		s.mu.Unlock()

		s.Advance(d)
	}
}

// nextDue pops the earliest timer due at or before target.
func (s *ManualScheduler) nextDue(target time.Duration) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.timers) == 0 {
		return nil
	}

	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at != s.timers[j].at {
			return s.timers[i].at < s.timers[j].at
		}
		return s.timers[i].seq < s.timers[j].seq
	})

	t := s.timers[0]
	if t.at > target {
		return nil
	}

	s.timers = s.timers[1:]
	t.stopped = true
	s.now = t.at
	return t
}

// LockedScheduler wraps s so every callback runs while holding l. Use it when
// a session is guarded by a mutex and timers fire on other goroutines.
func LockedScheduler(s Scheduler, l sync.Locker) Scheduler {
	return lockedScheduler{inner: s, l: l}
}

type lockedScheduler struct {
	inner Scheduler
	l     sync.Locker
}

func (ls lockedScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return ls.inner.AfterFunc(d, func() {
		ls.l.Lock()
		defer ls.l.Unlock()
		f()
	})
}
