package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
)

// timerMsg is delivered to the program when a scheduled callback is due.
type timerMsg struct{ id uint64 }

// Scheduler runs reconcile timer callbacks on the bubbletea update loop.
// Wall-clock timers only post a timerMsg; the callback itself runs when the
// model handles the message, so session state is never touched off the
// program goroutine.
type Scheduler struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	next    uint64
	pending map[uint64]*schedTimer
}

type schedTimer struct {
	s  *Scheduler
	id uint64
	t  *time.Timer
	f  func()
}

// NewScheduler returns a scheduler that posts messages with send, usually
// (*tea.Program).Send.
func NewScheduler(send func(tea.Msg)) *Scheduler {
	return &Scheduler{send: send, pending: make(map[uint64]*schedTimer)}
}

// SetSender replaces the message sink. The program is usually created after
// the session, so the sender is attached late.
func (s *Scheduler) SetSender(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
}

// AfterFunc implements reconcile.Scheduler.
func (s *Scheduler) AfterFunc(d time.Duration, f func()) reconcile.Timer {
	s.mu.Lock()
	s.next++
	st := &schedTimer{s: s, id: s.next, f: f}
	s.pending[st.id] = st
	s.mu.Unlock()

	st.t = time.AfterFunc(d, func() {
		s.mu.Lock()
		send := s.send
		s.mu.Unlock()
		if send != nil {
			send(timerMsg{id: st.id})
		}
	})
	return st
}

// Stop implements reconcile.Timer.
func (t *schedTimer) Stop() bool {
	t.s.mu.Lock()
	_, ok := t.s.pending[t.id]
	delete(t.s.pending, t.id)
	t.s.mu.Unlock()
	t.t.Stop()
	return ok
}

// fire runs the callback for id if it was not stopped.
func (s *Scheduler) fire(id uint64) {
	s.mu.Lock()
	st, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()
	if ok {
		st.f()
	}
}

// Pending returns the number of timers not yet fired or stopped.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
