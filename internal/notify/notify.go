// Package notify provides payload-free, coalescing wakeups between goroutines.
// A Signal holds at most one pending notification: any number of Notify calls
// made before the receiver wakes collapse into a single wakeup. Notify never
// blocks, so it is safe to call from GPIO event handlers and timer callbacks.
package notify

import "sync"

// Signal is a coalescing wakeup with a single receiver.
type Signal struct {
	ch chan struct{}
}

// NewSignal creates a Signal with nothing pending.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify marks the signal pending. It returns false if a notification was
// already pending and this call was coalesced into it.
func (s *Signal) Notify() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// C returns the channel the receiver waits on.
func (s *Signal) C() <-chan struct{} {
	return s.ch
}

// Pending reports whether a notification is waiting, without consuming it.
func (s *Signal) Pending() bool {
	return len(s.ch) > 0
}

// Hub fans a notification out to any number of subscribed Signals.
// Producers notify the Hub without knowing who consumes it.
type Hub struct {
	mu   sync.Mutex
	subs []*Signal
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe returns a new Signal that is notified on every Hub.Notify.
func (h *Hub) Subscribe() *Signal {
	s := NewSignal()
	h.mu.Lock()
	h.subs = append(h.subs, s)
	h.mu.Unlock()
	return s
}

// Notify wakes every subscriber. It never blocks.
func (h *Hub) Notify() {
	h.mu.Lock()
	for _, s := range h.subs {
		s.Notify()
	}
	h.mu.Unlock()
}
