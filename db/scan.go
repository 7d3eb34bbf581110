package db

import (
	"iter"
	"sync"
)

// Scan is a lazy, single-use sequence over decoded store rows.  Errors raised
// while iterating are available from Err once the sequence is exhausted.
type Scan[T any] struct {
	run func(yield func(T) bool) error
	err error
	mu  sync.Mutex
}

func newScan[T any](run func(yield func(T) bool) error) *Scan[T] {
	return &Scan[T]{run: run}
}

func (s *Scan[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		err := s.run(yield)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
}

func (s *Scan[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
