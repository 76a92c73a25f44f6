package stream

import (
	"sync"
	"sync/atomic"
)

// Subscriber is one consumer attached to the broker. Delivery is
// credit-based: each delivered event costs one credit and the broker
// drops events for a subscriber that has none left, so a stalled
// consumer cannot wedge publishers.
type Subscriber struct {
	id      string
	ch      chan *Event
	credits atomic.Int64
	closed  atomic.Bool

	// filter, when set, must return true for an event to be delivered.
	filter func(*Event) bool

	mu     sync.RWMutex
	topics map[string]struct{}
}

// NewSubscriber returns a subscriber with a delivery buffer of
// bufferSize events and an opening balance of initialCredits.
func NewSubscriber(id string, bufferSize int, initialCredits int64) *Subscriber {
	s := &Subscriber{
		id:     id,
		ch:     make(chan *Event, bufferSize),
		topics: make(map[string]struct{}),
	}
	s.credits.Store(initialCredits)
	return s
}

func (s *Subscriber) ID() string { return s.id }

// C is the channel events arrive on. It is closed by Close.
func (s *Subscriber) C() <-chan *Event { return s.ch }

// AddCredits grants n more deliveries.
func (s *Subscriber) AddCredits(n int64) { s.credits.Add(n) }

// Credits reports the remaining delivery balance.
func (s *Subscriber) Credits() int64 { return s.credits.Load() }

// SetFilter installs a delivery predicate. Set it before subscribing;
// it is read without synchronization afterwards.
func (s *Subscriber) SetFilter(fn func(*Event) bool) { s.filter = fn }

func (s *Subscriber) addTopic(topic string) {
	s.mu.Lock()
	s.topics[topic] = struct{}{}
	s.mu.Unlock()
}

func (s *Subscriber) removeTopic(topic string) {
	s.mu.Lock()
	delete(s.topics, topic)
	s.mu.Unlock()
}

// Topics lists the topics this subscriber is attached to.
func (s *Subscriber) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		names = append(names, topic)
	}
	return names
}

// send delivers evt if the subscriber is open, the filter accepts it,
// a credit is available, and the buffer has room. It reports whether
// the event was handed off; a false return means the event was dropped
// for this subscriber and no credit was spent.
func (s *Subscriber) send(evt *Event) bool {
	if s.closed.Load() {
		return false
	}
	if s.filter != nil && !s.filter(evt) {
		return false
	}

	if s.credits.Add(-1) < 0 {
		s.credits.Add(1)
		return false
	}

	select {
	case s.ch <- evt:
		return true
	default:
		s.credits.Add(1)
		return false
	}
}

// Close closes the event channel. Further sends are dropped. Safe to
// call more than once.
func (s *Subscriber) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}
