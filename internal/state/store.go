// Package state holds the client's application state: who is paying, where
// they are in the app, and what is in their cart.
//
// State is owned by a Store and changed only by dispatching Actions. Each
// action is a value that computes the next State from the current one
// without mutating it, so snapshots handed out earlier stay valid.
package state

import (
	"slices"
	"sync"
)

// State is the complete client state.
type State struct {
	User       User
	Navigation Navigation
	Checkout   Checkout
}

// Initial returns the state of a fresh session.
func Initial() State {
	return State{
		Navigation: initialNavigation(),
		Checkout:   emptyCheckout(),
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.Navigation.History = slices.Clone(s.Navigation.History)
	s.Checkout.SelectedStudentIDs = slices.Clone(s.Checkout.SelectedStudentIDs)
	s.Checkout.Services = slices.Clone(s.Checkout.Services)
	return s
}

// Action is a state transition.
type Action interface {
	Apply(State) State
}

// ActionFunc adapts a function to Action.
type ActionFunc func(State) State

// Apply calls f.
func (f ActionFunc) Apply(s State) State { return f(s) }

// Store owns a State. All methods are safe for concurrent use; every
// Dispatch is applied atomically.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// NewStore creates a store in the initial state.
func NewStore() *Store {
	return NewStoreWith(Initial())
}

// NewStoreWith creates a store starting from s.
func NewStoreWith(s State) *Store {
	return &Store{state: s.Clone(), subs: make(map[int]func(State))}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies actions in order as a single transition and returns the
// resulting state. Subscribers are notified once, after the lock is released.
func (s *Store) Dispatch(actions ...Action) State {
	s.mu.Lock()
	next := s.state
	for _, a := range actions {
		next = a.Apply(next)
	}
	s.state = next
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next.Clone())
	}
	return next.Clone()
}

// Subscribe registers fn to be called after every dispatch. The returned
// function unregisters it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// User identifies the payer for this session.
type User struct {
	Phone string
	Name  string
}

// SetUser records the payer's identity.
type SetUser struct {
	Phone string
	Name  string
}

func (a SetUser) Apply(s State) State {
	s.User = User{Phone: a.Phone, Name: a.Name}
	return s
}

// ClearUser forgets the payer.
type ClearUser struct{}

func (ClearUser) Apply(s State) State {
	s.User = User{}
	return s
}

// Reset returns everything to the initial state.
type Reset struct{}

func (Reset) Apply(State) State { return Initial() }
