package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func received(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

func TestNotifier_Subscribe_Unsubscribe(t *testing.T) {
	n := New()

	ch := n.Subscribe("s1")
	require.NotNil(t, ch)

	n.mu.RLock()
	assert.Len(t, n.listeners, 1)
	n.mu.RUnlock()

	n.Unsubscribe(ch)

	n.mu.RLock()
	assert.Len(t, n.listeners, 0)
	n.mu.RUnlock()
}

func TestNotifier_BroadcastTopic(t *testing.T) {
	n := New()

	s1 := n.Subscribe("s1")
	s2 := n.Subscribe("s2")
	all := n.Subscribe(All)
	defer n.Unsubscribe(s1)
	defer n.Unsubscribe(s2)
	defer n.Unsubscribe(all)

	n.Broadcast("s1")

	assert.True(t, received(s1), "topic listener should be pinged")
	assert.True(t, received(all), "All listener should be pinged")
	assert.False(t, received(s2), "other topics should not be pinged")
}

func TestNotifier_BroadcastAll(t *testing.T) {
	n := New()

	s1 := n.Subscribe("s1")
	all := n.Subscribe(All)
	defer n.Unsubscribe(s1)
	defer n.Unsubscribe(all)

	n.Broadcast(All)

	assert.True(t, received(all))
	assert.False(t, received(s1))
}

func TestNotifier_Broadcast_NonBlocking(t *testing.T) {
	n := New()

	ch := n.Subscribe("s1")
	defer n.Unsubscribe(ch)

	ch <- struct{}{}

	done := make(chan bool)
	go func() {
		n.Broadcast("s1")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Broadcast blocked on full channel")
	}
}

func TestNotifier_Concurrent(t *testing.T) {
	n := New()

	var wg sync.WaitGroup
	const numGoroutines = 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := n.Subscribe("s1")
			n.Broadcast("s1")
			n.Unsubscribe(ch)
		}()
	}

	wg.Wait()

	n.mu.RLock()
	assert.Len(t, n.listeners, 0)
	n.mu.RUnlock()
}
