// Package hot provides the multicast counterpart to the cold streams
// in package rx: an Observable always holds a current value and pushes
// every update to all registered observers.
//
// The two flavors share the rx event and disposal types but deliberately
// share no implementation. A cold stream runs independent work per
// attach; an Observable runs one producer and fans out, which calls for
// a registry, a current-value cell, and different operator semantics
// (derived observables must synthesize an initial value).
//
// Observers are held in a handle table keyed by monotonically
// increasing ids. The disposable returned from Observe carries only the
// id, never a reference back into the registry, so unregistering cannot
// re-enter the multicast core.
package hot

import (
	"sync"

	"github.com/jspahrsummers/rx"
)

type slot[T any] struct {
	id uint64
	fn func(T)
}

// Observable is a hot, multicast stream. It holds a current value at
// all times: construction fails loudly unless the generator delivers a
// value synchronously, and every new observer receives the current
// value immediately on registration.
type Observable[T any] struct {
	mu        sync.Mutex
	current   T
	populated bool
	nextID    uint64
	observers []slot[T]
}

// New constructs an Observable. The generator receives a send function
// and must call it at least once before returning; an Observable with
// no current value is an invariant violation, so New panics otherwise.
//
// The send function stays valid after New returns and may be called
// from any goroutine to push further updates:
//
//	var send func(int)
//	o := hot.New(func(s func(int)) {
//	    s(0)
//	    send = s
//	})
//	send(1)
func New[T any](generator func(send func(T))) *Observable[T] {
	if generator == nil {
		panic("hot: New requires non-nil generator")
	}

	o := &Observable[T]{}
	generator(o.send)

	o.mu.Lock()
	populated := o.populated
	o.mu.Unlock()
	if !populated {
		panic("hot: observable generator must send a value before returning")
	}
	return o
}

// send stores v as the new current value and multicasts it. Delivery
// happens outside the registry lock against a snapshot of the observer
// table; with concurrent senders an observer may see updates reordered
// or repeated relative to Current, but never lost.
func (o *Observable[T]) send(v T) {
	o.mu.Lock()
	o.current = v
	o.populated = true
	observers := make([]slot[T], len(o.observers))
	copy(observers, o.observers)
	o.mu.Unlock()

	for _, s := range observers {
		s.fn(v)
	}
}

// Current returns the latest value.
func (o *Observable[T]) Current() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Observe registers f and replays the current value to it. Registration
// and replay happen under one mutual-exclusion boundary, so no update
// can slip between them: f sees the current value first and every
// subsequent update after.
//
// Because replay runs under the registry lock, f must not call back
// into this observable. The returned disposable unregisters f.
func (o *Observable[T]) Observe(f func(T)) rx.Disposable {
	if f == nil {
		panic("hot: Observe requires non-nil observer")
	}

	o.mu.Lock()
	o.nextID++
	id := o.nextID
	o.observers = append(o.observers, slot[T]{id: id, fn: f})
	f(o.current)
	o.mu.Unlock()

	return rx.NewActionDisposable(func() {
		o.unregister(id)
	})
}

func (o *Observable[T]) unregister(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, s := range o.observers {
		if s.id == id {
			o.observers = append(o.observers[:i], o.observers[i+1:]...)
			return
		}
	}
}

// observerCount is used by tests to verify unregistration.
func (o *Observable[T]) observerCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.observers)
}
