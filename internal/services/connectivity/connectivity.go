// Package connectivity tracks whether the device can reach the record store.
package connectivity

import (
	"sync"
)

// Source reports the current online state and notifies on transitions.
type Source interface {
	Online() bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// listeners is a registry of transition callbacks.
type listeners struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(bool)
}

func (l *listeners) add(fn func(bool)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(bool))
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) notify(online bool) {
	l.mu.Lock()
	fns := make([]func(bool), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

func (l *listeners) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

// Static is a Source whose state is set by hand. It is used when no probe
// URL is configured and in tests.
type Static struct {
	mu        sync.Mutex
	online    bool
	listeners listeners
}

// NewStatic returns a Static source in the given state.
func NewStatic(online bool) *Static {
	return &Static{online: online}
}

// Online reports the current state.
func (s *Static) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Subscribe registers fn for transitions.
func (s *Static) Subscribe(fn func(online bool)) func() {
	return s.listeners.add(fn)
}

// SetOnline changes the state, notifying subscribers only on a transition.
func (s *Static) SetOnline(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	s.mu.Unlock()

	if changed {
		s.listeners.notify(online)
	}
}

// Subscribers returns the number of registered callbacks.
func (s *Static) Subscribers() int {
	return s.listeners.count()
}
