// Package feed polls a data source on a fixed interval and keeps only the
// freshest response. Fetches are never cancelled; a response that completes
// after a newer one has been committed is dropped.
package feed

import (
	"sync"
	"time"
)

// Generation identifies one issued fetch. Later fetches have larger values.
type Generation uint64

// Tracker hands out generations and accepts results in issue order only
type Tracker[T any] struct {
	mu        sync.Mutex
	issued    Generation
	committed Generation
	value     T
	updatedAt time.Time
	hasValue  bool
}

// NewTracker creates an empty tracker
func NewTracker[T any]() *Tracker[T] {
	return &Tracker[T]{}
}

// Begin issues the next generation
func (t *Tracker[T]) Begin() Generation {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issued++
	return t.issued
}

// Commit stores value if gen is newer than the last committed generation.
// It reports whether the value was accepted.
func (t *Tracker[T]) Commit(gen Generation, value T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen <= t.committed || gen > t.issued {
		return false
	}
	t.committed = gen
	t.value = value
	t.updatedAt = time.Now()
	t.hasValue = true
	return true
}

// Latest returns the last accepted value and whether one exists
func (t *Tracker[T]) Latest() (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.hasValue
}

// UpdatedAt is the time of the last accepted commit
func (t *Tracker[T]) UpdatedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updatedAt
}

// Committed returns the newest accepted generation
func (t *Tracker[T]) Committed() Generation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}
