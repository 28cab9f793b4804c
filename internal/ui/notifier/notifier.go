// Package notifier provides a simple broadcast mechanism for SSE updates.
package notifier

import "sync"

// All is the topic of listeners that want every ping, such as the session
// list on the home page.
const All = ""

// Notifier broadcasts update signals to subscribed listeners. Listeners
// subscribe to a topic, usually a session ID, and receive an empty struct
// when it changed; they should re-read the session and re-render.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]string
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]string),
	}
}

// Subscribe returns a channel that receives pings when topic changes.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe(topic string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = topic
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast pings the listeners of topic and every All listener.
// Non-blocking: if a listener's channel is full, the ping is skipped.
func (n *Notifier) Broadcast(topic string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch, t := range n.listeners {
		if t != topic && t != All {
			continue
		}
		select {
		case ch <- struct{}{}:
		default:
			// Channel full; the listener already has a pending ping
		}
	}
}
