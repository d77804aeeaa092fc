// Package store holds the named state slices of the console. Slices change
// only through reducers reacting to dispatched actions.
package store

import (
	"fmt"
	"sync"
)

// Action is an outcome event dispatched into the store.
type Action struct {
	Type    string
	Payload any
	Err     error
}

// Dispatcher accepts actions. Both the Store and test recorders implement it.
type Dispatcher interface {
	Dispatch(Action)
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(Action)

func (f DispatchFunc) Dispatch(a Action) { f(a) }

// Reducer owns one named slice.
type Reducer interface {
	Name() string
	Initial() any
	Reduce(state any, a Action) any
}

type Store struct {
	mu       sync.Mutex
	reducers []Reducer
	state    map[string]any
	version  uint64
	subs     map[int]func(Action)
	nextSub  int
}

// New creates a store with every slice at its initial value.
func New(reducers ...Reducer) *Store {
	s := &Store{
		state: make(map[string]any, len(reducers)),
		subs:  make(map[int]func(Action)),
	}
	for _, r := range reducers {
		if _, dup := s.state[r.Name()]; dup {
			panic(fmt.Sprintf("store: duplicate slice %q", r.Name()))
		}
		s.reducers = append(s.reducers, r)
		s.state[r.Name()] = r.Initial()
	}
	return s
}

// Dispatch runs every reducer for the action, then notifies subscribers
// outside the lock so they may read or dispatch again.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	for _, r := range s.reducers {
		s.state[r.Name()] = r.Reduce(s.state[r.Name()], a)
	}
	s.version++
	subs := make([]func(Action), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(a)
	}
}

// Subscribe registers fn for every dispatched action and returns an
// unsubscribe func.
func (s *Store) Subscribe(fn func(Action)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Get returns the current value of a slice.
func (s *Store) Get(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state[name]
	return v, ok
}

// Version increments on every dispatch.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Snapshot copies the slice map. Slice values are treated as immutable by
// reducers, so a shallow copy is enough.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

// InFlight reports whether a slice that starts loading on requestType is
// still waiting for its outcome.
func (s *Store) InFlight(requestType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reducers {
		p, ok := r.(interface{ Prefix() string })
		if !ok || RequestType(p.Prefix()) != requestType {
			continue
		}
		if l, ok := s.state[r.Name()].(interface{ IsLoading() bool }); ok && l.IsLoading() {
			return true
		}
	}
	return false
}

// Select returns the named slice typed as T, or T's zero value when the
// slice is unknown or has another type.
func Select[T any](s *Store, name string) T {
	v, _ := s.Get(name)
	t, _ := v.(T)
	return t
}
