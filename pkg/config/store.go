package config

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Store publishes CableOptions snapshots. Readers get a value copy and never
// block writers.
type Store struct {
	current atomic.Pointer[CableOptions]

	mu        sync.Mutex
	listeners []func(CableOptions)
}

// NewStore returns a store holding opts. Invalid options are rejected.
func NewStore(opts CableOptions) (*Store, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s := &Store{}
	s.current.Store(&opts)
	return s, nil
}

// Cables returns the current snapshot.
func (s *Store) Cables() CableOptions {
	return *s.current.Load()
}

// Update applies fn to a copy of the current options, validates the result
// and publishes it. On error the store is unchanged.
func (s *Store) Update(fn func(*CableOptions)) (CableOptions, error) {
	s.mu.Lock()
	next := *s.current.Load()
	fn(&next)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return s.Cables(), err
	}
	s.current.Store(&next)
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next, nil
}

// OnChange registers fn to be called after every successful Update.
func (s *Store) OnChange(fn func(CableOptions)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}
