// Package bus provides the listener registries behind the gateway's event
// streams: add/remove/emit with per-handler failure isolation and a cached
// current value for late subscribers.
package bus

import (
	"log"
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// Handler consumes one event. Handlers run on the publisher's goroutine; a
// panicking handler is recovered and logged without affecting the others.
type Handler[T any] func(T)

// Stream is one restartable event sequence. A subscriber added after events
// have flowed immediately receives the most recent value, then every future
// one.
type Stream[T any] struct {
	name string

	mu         sync.Mutex
	nextID     uint64
	handlers   map[uint64]Handler[T]
	current    T
	hasCurrent bool
}

func NewStream[T any](name string) *Stream[T] {
	return &Stream[T]{
		name:     name,
		handlers: make(map[uint64]Handler[T]),
	}
}

// Subscribe registers a handler and returns its removal token. If a value has
// already been published the handler sees it immediately.
func (s *Stream[T]) Subscribe(fn Handler[T]) uint64 {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.handlers[id] = fn
	replay := s.hasCurrent
	current := s.current
	s.mu.Unlock()
	if replay {
		s.invoke(id, fn, current)
	}
	return id
}

func (s *Stream[T]) Unsubscribe(id uint64) {
	s.mu.Lock()
	delete(s.handlers, id)
	s.mu.Unlock()
}

// Publish caches v as the current value and delivers it to every subscriber.
func (s *Stream[T]) Publish(v T) {
	s.mu.Lock()
	s.current = v
	s.hasCurrent = true
	snapshot := make(map[uint64]Handler[T], len(s.handlers))
	for id, fn := range s.handlers {
		snapshot[id] = fn
	}
	s.mu.Unlock()
	for id, fn := range snapshot {
		s.invoke(id, fn, v)
	}
}

// Current returns the cached value, if any.
func (s *Stream[T]) Current() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasCurrent
}

func (s *Stream[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

func (s *Stream[T]) invoke(id uint64, fn Handler[T], v T) {
	var catcher panics.Catcher
	catcher.Try(func() { fn(v) })
	if r := catcher.Recovered(); r != nil {
		log.Printf("level=ERROR event=listener_panic stream=%q listener_id=%d panic=%q", s.name, id, r.String())
	}
}
