package rx

import "sync"

// Atomic is a mutex-guarded mutable cell. All accessors are mutually
// exclusive, so read-modify-write sequences expressed through [Atomic.Modify]
// or [WithAtomic] are atomic with respect to every other accessor.
//
// Operators use Atomic for the few pieces of state that multiple
// delivery goroutines must agree on: in-flight counters, completion
// flags, latest-value snapshots.
type Atomic[T any] struct {
	mu  sync.Mutex
	val T
}

// NewAtomic returns an Atomic holding v.
func NewAtomic[T any](v T) *Atomic[T] {
	return &Atomic[T]{val: v}
}

// Load returns the current value.
func (a *Atomic[T]) Load() T {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.val
}

// Store replaces the current value with v.
func (a *Atomic[T]) Store(v T) {
	a.mu.Lock()
	a.val = v
	a.mu.Unlock()
}

// Swap replaces the current value with v and returns the previous one.
func (a *Atomic[T]) Swap(v T) T {
	a.mu.Lock()
	old := a.val
	a.val = v
	a.mu.Unlock()
	return old
}

// Modify replaces the current value with f(current) and returns the new
// value. f runs under the cell's lock and must not call back into the
// same cell.
func (a *Atomic[T]) Modify(f func(T) T) T {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.val = f(a.val)
	return a.val
}

// With invokes f with the current value while holding the cell's lock.
// f must not call back into the same cell.
func (a *Atomic[T]) With(f func(T)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f(a.val)
}

// WithAtomic invokes f with the cell's current value while holding its
// lock and returns f's result. It is the cross-type variant of
// [Atomic.With].
func WithAtomic[T, R any](a *Atomic[T], f func(T) R) R {
	a.mu.Lock()
	defer a.mu.Unlock()
	return f(a.val)
}
