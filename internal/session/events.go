package session

import (
	"sync"
	"time"
)

const subscriberBuffer = 4

// Event describes one authorization failure that ended the session.
type Event struct {
	Method     string
	Path       string
	StatusCode int
	Code       string // server error code, e.g. "token_expired"
	At         time.Time
}

// Events is a session-expiry broadcaster. The HTTP layer publishes to it and
// whichever component prompts for re-login subscribes; neither side knows
// the other.
type Events struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

// subscriber buffers events in ch; once ch is full, further events queue in
// pending and a pump goroutine feeds them in order.
type subscriber struct {
	ch   chan Event
	done chan struct{}
	pump sync.WaitGroup

	mu      sync.Mutex
	pending []Event
	pumping bool
}

// NewEvents creates an empty broadcaster.
func NewEvents() *Events {
	return &Events{subs: make(map[int]*subscriber)}
}

// Subscribe registers a subscriber. The returned func unregisters it and
// closes the channel; it is safe to call more than once. Events still
// queued at that point are discarded.
func (e *Events) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	sub := &subscriber{
		ch:   make(chan Event, subscriberBuffer),
		done: make(chan struct{}),
	}
	e.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()

			close(sub.done)
			sub.pump.Wait()
			close(sub.ch)
		})
	}
}

// Publish delivers ev exactly once to every current subscriber. It never
// blocks on a slow subscriber.
func (e *Events) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, sub := range e.subs {
		sub.deliver(ev)
	}
}

// Subscribers returns the number of registered subscribers.
func (e *Events) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

func (s *subscriber) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		select {
		case s.ch <- ev:
			return
		default:
		}
	}
	s.pending = append(s.pending, ev)
	if !s.pumping {
		s.pumping = true
		s.pump.Add(1)
		go s.drain()
	}
}

func (s *subscriber) drain() {
	defer s.pump.Done()
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.pumping = false
			s.mu.Unlock()
			return
		}
		ev := s.pending[0]
		s.mu.Unlock()

		select {
		case s.ch <- ev:
		case <-s.done:
			return
		}

		s.mu.Lock()
		s.pending = s.pending[1:]
		s.mu.Unlock()
	}
}
