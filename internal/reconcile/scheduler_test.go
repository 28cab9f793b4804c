package reconcile

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualScheduler(t *testing.T) {
	s := NewManualScheduler()
	var order []string

	s.AfterFunc(30*time.Millisecond, func() { order = append(order, "b") })
	s.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	stopped := s.AfterFunc(20*time.Millisecond, func() { order = append(order, "x") })

	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())
	assert.Equal(t, 2, s.Pending())

	s.Advance(15 * time.Millisecond)
	assert.Equal(t, []string{"a"}, order)
	assert.Equal(t, 15*time.Millisecond, s.Now())

	s.Advance(15 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 0, s.Pending())
}

func TestManualScheduler_NestedTimers(t *testing.T) {
	s := NewManualScheduler()
	var fired []time.Duration

	s.AfterFunc(10*time.Millisecond, func() {
		fired = append(fired, s.Now())
		s.AfterFunc(10*time.Millisecond, func() { fired = append(fired, s.Now()) })
	})

	s.Advance(25 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, fired)
}

func TestManualScheduler_Flush(t *testing.T) {
	s := NewManualScheduler()
	n := 0
	s.AfterFunc(time.Hour, func() { n++ })
	s.AfterFunc(time.Minute, func() { n++ })

	s.Flush()
	assert.Equal(t, 2, n)
	assert.Equal(t, time.Hour, s.Now())
}

func TestLockedScheduler(t *testing.T) {
	var mu sync.Mutex
	inner := NewManualScheduler()
	s := LockedScheduler(inner, &mu)

	held := false
	s.AfterFunc(time.Millisecond, func() {
		held = !mu.TryLock()
	})

	inner.Advance(time.Millisecond)
	assert.True(t, held, "callback runs under the lock")
}
