package domain

import "sync"

// Signal is a mutable value cell with a version counter.
// The version only advances when the stored value actually changes, so
// dependents can tell whether they are stale without comparing values.
type Signal[T comparable] struct {
	mu      sync.RWMutex
	value   T
	version uint64
}

// NewSignal creates a signal holding v.
func NewSignal[T comparable](v T) *Signal[T] {
	return &Signal[T]{value: v, version: 1}
}

func (s *Signal[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores v. It reports whether the value changed.
func (s *Signal[T]) Set(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == v {
		return false
	}
	s.value = v
	s.version++
	return true
}

func (s *Signal[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Versioned is anything a Memo can depend on.
type Versioned interface {
	Version() uint64
}

// Memo is a lazily derived value. It recomputes on read, and only when one
// of its inputs has moved to a new version since the last computation.
// Several writes followed by one read cost a single evaluation.
type Memo[T any] struct {
	mu      sync.Mutex
	compute func() T
	deps    []Versioned

	cached T
	seen   []uint64
	valid  bool
	evals  int
}

// NewMemo derives a value from deps using compute.
func NewMemo[T any](compute func() T, deps ...Versioned) *Memo[T] {
	return &Memo[T]{
		compute: compute,
		deps:    deps,
		seen:    make([]uint64, len(deps)),
	}
}

func (m *Memo[T]) Get() T {
	m.mu.Lock()
	defer m.mu.Unlock()

	stale := !m.valid
	for i, d := range m.deps {
		if v := d.Version(); v != m.seen[i] {
			m.seen[i] = v
			stale = true
		}
	}
	if stale {
		m.cached = m.compute()
		m.valid = true
		m.evals++
	}
	return m.cached
}

// Evaluations returns how many times the value has been computed.
func (m *Memo[T]) Evaluations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evals
}
