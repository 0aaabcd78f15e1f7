package rx

import (
	"sync"
	"sync/atomic"
)

// Promise states. Transitions are one-way and exactly-once:
// unresolved → resolving via CAS (only one caller wins), then
// resolving → resolved once the computation finishes.
const (
	promiseUnresolved int32 = iota
	promiseResolving
	promiseResolved
)

// Promise is a one-shot deferred value: a computation that runs at most
// once, on whichever scheduler or goroutine claims it first, and whose
// result can then be observed any number of times.
//
// A Promise has no failure channel by design; the computation is
// assumed total. Callers that need fallibility should make T a
// result-shaped value.
type Promise[T any] struct {
	state  atomic.Int32
	done   chan struct{}
	result T

	mu      sync.Mutex
	compute func() T
	waiting []continuation[T]
}

type continuation[T any] struct {
	on     Scheduler
	action func(T)
}

// NewPromise returns an unresolved promise for f. The computation does
// not run until [Promise.StartOn] or [Promise.Await] is called.
// Panics if f is nil.
func NewPromise[T any](f func() T) *Promise[T] {
	if f == nil {
		panic("rx: NewPromise requires non-nil computation")
	}
	return &Promise[T]{
		done:    make(chan struct{}),
		compute: f,
	}
}

// Resolved reports whether the promise holds its value.
func (p *Promise[T]) Resolved() bool {
	return p.state.Load() == promiseResolved
}

// StartOn begins resolving the promise on s. Only the first caller to
// move the promise out of its unresolved state has any effect;
// subsequent calls are no-ops.
func (p *Promise[T]) StartOn(s Scheduler) {
	if s == nil {
		panic("rx: StartOn requires non-nil scheduler")
	}
	if !p.state.CompareAndSwap(promiseUnresolved, promiseResolving) {
		return
	}
	s.Schedule(p.resolve)
}

// Await blocks the calling goroutine until the promise is resolved and
// returns the value. If resolution has not started yet, the calling
// goroutine claims the computation and runs it inline; otherwise it
// waits for whoever is already resolving.
func (p *Promise[T]) Await() T {
	if p.state.CompareAndSwap(promiseUnresolved, promiseResolving) {
		p.resolve()
		return p.result
	}
	<-p.done
	return p.result
}

// NotifyOn registers action to receive the resolved value, scheduled on
// s. Continuations fire exactly once each, in registration order. If
// the promise is already resolved, action is scheduled immediately; it
// is never invoked inline from NotifyOn.
func (p *Promise[T]) NotifyOn(s Scheduler, action func(T)) {
	if s == nil {
		panic("rx: NotifyOn requires non-nil scheduler")
	}
	if action == nil {
		panic("rx: NotifyOn requires non-nil action")
	}

	p.mu.Lock()
	select {
	case <-p.done:
		p.mu.Unlock()
		v := p.result
		s.Schedule(func() { action(v) })
	default:
		p.waiting = append(p.waiting, continuation[T]{on: s, action: action})
		p.mu.Unlock()
	}
}

// resolve runs the computation and publishes the result. Callers must
// have won the unresolved → resolving transition.
func (p *Promise[T]) resolve() {
	v := p.compute()

	p.mu.Lock()
	p.result = v
	p.compute = nil
	p.state.Store(promiseResolved)
	close(p.done)
	waiting := p.waiting
	p.waiting = nil
	p.mu.Unlock()

	for _, c := range waiting {
		c := c
		c.on.Schedule(func() { c.action(v) })
	}
}

// Then derives a promise resolving to f applied to p's value. Starting
// or awaiting the derived promise drives p as well, via [Promise.Await].
func Then[T, U any](p *Promise[T], f func(T) U) *Promise[U] {
	if p == nil {
		panic("rx: Then requires non-nil promise")
	}
	if f == nil {
		panic("rx: Then requires non-nil mapping")
	}
	return NewPromise(func() U {
		return f(p.Await())
	})
}
