// Package live keeps the reconciliation sessions the web UI is serving in
// memory. Each session is guarded by its own mutex; handlers and navigator
// timers only touch it while holding that lock.
package live

import (
	"fmt"
	"sync"

	"github.com/leapstack-labs/leapimport/internal/engine"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/source"
	"github.com/leapstack-labs/leapimport/internal/ui/notifier"
)

// Session is a reconciliation session shared between requests.
type Session struct {
	mu   sync.Mutex
	id   string
	sess *reconcile.Session
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Registry loads sessions from the engine on first use and keeps them live.
type Registry struct {
	eng    *engine.Engine
	notify *notifier.Notifier
	sched  reconcile.Scheduler

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry. A nil sched uses the wall clock.
func NewRegistry(eng *engine.Engine, notify *notifier.Notifier, sched reconcile.Scheduler) *Registry {
	if sched == nil {
		sched = reconcile.WallClock{}
	}
	return &Registry{
		eng:      eng,
		notify:   notify,
		sched:    sched,
		sessions: make(map[string]*Session),
	}
}

// Engine returns the engine sessions are loaded from.
func (r *Registry) Engine() *engine.Engine { return r.eng }

// options wires the navigator of ls to its lock and to the notifier.
func (r *Registry) options(ls *Session) []reconcile.Option {
	return []reconcile.Option{
		reconcile.WithScheduler(reconcile.LockedScheduler(r.sched, &ls.mu)),
		reconcile.WithViewportListener(func(reconcile.ViewportStats) {
			r.notify.Broadcast(ls.id)
		}),
	}
}

// Start bootstraps and saves a session for a decoded upload.
func (r *Registry) Start(res *source.Result) (*Session, error) {
	ls := &Session{}

	ls.mu.Lock()
	sess, err := r.eng.Start(res, r.options(ls)...)
	if err != nil {
		ls.mu.Unlock()
		return nil, err
	}
	ls.id = sess.ID()
	ls.sess = sess
	err = r.eng.Save(sess)
	ls.mu.Unlock()
	if err != nil {
		sess.Close()
		return nil, err
	}

	r.mu.Lock()
	r.sessions[ls.id] = ls
	r.mu.Unlock()

	r.notify.Broadcast(ls.id)
	return ls, nil
}

// Get returns the live session for id, restoring it from the state store if
// it is not loaded yet.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ls, ok := r.sessions[id]; ok {
		return ls, nil
	}

	ls := &Session{id: id}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	sess, err := r.eng.Resume(id, r.options(ls)...)
	if err != nil {
		return nil, err
	}
	ls.sess = sess
	r.sessions[id] = ls
	return ls, nil
}

// View runs f on the session while holding its lock.
func (r *Registry) View(id string, f func(*reconcile.Session) error) error {
	ls, err := r.Get(id)
	if err != nil {
		return err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return f(ls.sess)
}

// Update runs f on the session while holding its lock. When f succeeds the
// session is saved and its listeners are notified.
func (r *Registry) Update(id string, f func(*reconcile.Session) error) error {
	ls, err := r.Get(id)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	err = f(ls.sess)
	if err == nil {
		if saveErr := r.eng.Save(ls.sess); saveErr != nil {
			err = fmt.Errorf("failed to save session: %w", saveErr)
		}
	}
	ls.mu.Unlock()

	if err == nil {
		r.notify.Broadcast(id)
	}
	return err
}

// Delete removes the session from memory and from the state store.
func (r *Registry) Delete(id string) error {
	r.drop(id)
	if err := r.eng.Delete(id); err != nil {
		return err
	}
	r.notify.Broadcast(id)
	return nil
}

func (r *Registry) drop(id string) {
	r.mu.Lock()
	ls, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		ls.mu.Lock()
		ls.sess.Close()
		ls.mu.Unlock()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops every live session's timers.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.drop(id)
	}
}
