// Package statex provides an observable value: the current state of a
// controller plus a stream of updates for renderers.
//
// Subscribers receive the latest value only. A slow subscriber never blocks
// Set; intermediate values it did not pick up in time are replaced by newer
// ones, so each receive yields the most recent state.
package statex

import "sync"

// Value holds a T and fans updates out to subscribers.
type Value[T any] struct {
	mu     sync.Mutex
	cur    T
	subs   map[int]chan T
	nextID int
	closed bool
}

// New returns a Value initialized to v.
func New[T any](v T) *Value[T] {
	return &Value[T]{cur: v, subs: make(map[int]chan T)}
}

// Get returns the current value.
func (s *Value[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Set stores v and notifies subscribers. It is a no-op after Close.
func (s *Value[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cur = v
	for _, ch := range s.subs {
		push(ch, v)
	}
}

// Subscribe returns a channel that immediately yields the current value and
// then every later update, and a cancel func that detaches the channel.
// The channel is closed on cancel or Close.
func (s *Value[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- s.cur

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close detaches all subscribers. Later Set calls are ignored.
func (s *Value[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// push replaces a pending value, if any, with v. Callers hold s.mu, so the
// drain and send cannot race with another push on the same channel.
func push[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
