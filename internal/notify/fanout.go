// Package notify broadcasts server events to connected agent clients.
package notify

import (
	"log"
	"sync"
)

// Event is a single notification as it appears on the wire: a method
// identifier plus a parameter payload.
type Event struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// Subscriber is one live event-stream connection. Events arrive on C.
// The queue is bounded; a subscriber that stops draining loses events.
type Subscriber struct {
	C chan Event

	fanout *Fanout
	once   sync.Once
}

// Close deregisters the subscriber and closes its channel. Safe to call
// more than once; only the first call has any effect.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.fanout.remove(s)
		close(s.C)
	})
}

// Fanout delivers each published event to every live subscriber with a
// non-blocking enqueue. A slow subscriber drops events; it never delays
// publishing or delivery to other subscribers.
type Fanout struct {
	mu        sync.Mutex
	subs      map[*Subscriber]bool
	queueSize int
}

func NewFanout(queueSize int) *Fanout {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Fanout{
		subs:      make(map[*Subscriber]bool),
		queueSize: queueSize,
	}
}

// Subscribe registers a new subscriber. The caller must call Close when
// the connection ends.
func (f *Fanout) Subscribe() *Subscriber {
	s := &Subscriber{
		C:      make(chan Event, f.queueSize),
		fanout: f,
	}
	f.mu.Lock()
	f.subs[s] = true
	f.mu.Unlock()
	return s
}

func (f *Fanout) remove(s *Subscriber) {
	f.mu.Lock()
	delete(f.subs, s)
	f.mu.Unlock()
}

// SubscriberCount returns the number of live subscribers.
func (f *Fanout) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Publish enqueues the event for every subscriber. Subscribers whose
// queue is full miss this event.
func (f *Fanout) Publish(evt Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.subs {
		select {
		case s.C <- evt:
		default:
			log.Printf("notify: subscriber queue full, dropping %s", evt.Method)
		}
	}
}
