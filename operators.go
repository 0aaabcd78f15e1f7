package rx

import (
	"errors"
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// ErrTimeout is the terminal error produced by [Stream.Timeout] when
// the source outlives its deadline.
var ErrTimeout = errors.New("rx: stream timed out")

// Pair holds two values combined from adjacent or parallel positions.
// It is used by [CombinePrevious].
type Pair[A, B any] struct {
	First  A
	Second B
}

// MapAccumulate is the primitive behind most value operators: it
// threads a state value through the stream, transforming every Next.
// f receives the current state and the incoming value and returns the
// next state plus the mapped value. A nil next state forces a Completed
// immediately after the mapped value is forwarded, disposing the
// source. Error and Completed events pass through unchanged.
//
// Keeping the state-threading in one place guarantees every derived
// operator terminates the same way.
func MapAccumulate[T, S, U any](s *Stream[T], initial S, f func(S, T) (*S, U)) *Stream[U] {
	if s == nil {
		panic("rx: MapAccumulate requires non-nil source stream")
	}
	if f == nil {
		panic("rx: MapAccumulate requires non-nil accumulator")
	}
	return NewStream(func(sink Sink[U]) Disposable {
		serial := NewSerialDisposable()

		// state and done are only touched by the source's delivery,
		// which is serial per attach.
		state := initial
		done := false

		src := s.Attach(func(ev Event[T]) bool {
			if done || serial.IsDisposed() {
				return false
			}
			switch ev.Kind() {
			case KindNext:
				next, mapped := f(state, ev.Value())
				more := sink(Next(mapped))
				if next == nil {
					done = true
					sink(Completed[U]())
					serial.Dispose()
					return false
				}
				state = *next
				return more
			case KindError:
				done = true
				sink(Error[U](ev.Err()))
				return false
			default:
				done = true
				sink(Completed[U]())
				return false
			}
		})

		// If the sink already forced completion during a synchronous
		// attach, SetInner disposes src instead of storing it.
		serial.SetInner(src)
		return serial
	})
}

// Map transforms every value through f.
func Map[T, U any](s *Stream[T], f func(T) U) *Stream[U] {
	if f == nil {
		panic("rx: Map requires non-nil mapping")
	}
	return MapAccumulate(s, struct{}{}, func(st struct{}, v T) (*struct{}, U) {
		return &st, f(v)
	})
}

// Scan applies f cumulatively, emitting each intermediate accumulation.
// The first emitted value is f(initial, firstValue).
func Scan[T, U any](s *Stream[T], initial U, f func(U, T) U) *Stream[U] {
	if f == nil {
		panic("rx: Scan requires non-nil accumulator")
	}
	return MapAccumulate(s, initial, func(acc U, v T) (*U, U) {
		next := f(acc, v)
		return &next, next
	})
}

// Take emits at most n values, then completes and disposes the source.
// Take(0) is [Empty]. Panics if n is negative.
func (s *Stream[T]) Take(n int) *Stream[T] {
	if n < 0 {
		panic("rx: Take requires non-negative count")
	}
	if n == 0 {
		return Empty[T]()
	}
	return MapAccumulate(s, n, func(remaining int, v T) (*int, T) {
		remaining--
		if remaining == 0 {
			return nil, v
		}
		return &remaining, v
	})
}

// CombinePrevious pairs every value with the one before it. The first
// pair is (initial, firstValue).
func CombinePrevious[T any](s *Stream[T], initial T) *Stream[Pair[T, T]] {
	return MapAccumulate(s, initial, func(prev T, v T) (*T, Pair[T, T]) {
		next := v
		return &next, Pair[T, T]{First: prev, Second: v}
	})
}

// Filter forwards only values matching pred. It is expressed as
// map-to-stream followed by [Merge], so filtering shares its
// termination behavior with every other merge-shaped operator.
//
// Filter and the other merge-shaped operators below are free functions
// rather than methods: their bodies instantiate Stream[*Stream[T]], and
// a method would force that type to instantiate the same method again
// at ever-deeper nesting.
func Filter[T any](s *Stream[T], pred func(T) bool) *Stream[T] {
	if pred == nil {
		panic("rx: Filter requires non-nil predicate")
	}
	return Merge(Map(s, func(v T) *Stream[T] {
		if pred(v) {
			return Single(v)
		}
		return Empty[T]()
	}))
}

// TakeWhile forwards values until pred first fails, then completes
// without forwarding the failing value.
func TakeWhile[T any](s *Stream[T], pred func(T) bool) *Stream[T] {
	if pred == nil {
		panic("rx: TakeWhile requires non-nil predicate")
	}
	return Merge(MapAccumulate(s, struct{}{}, func(st struct{}, v T) (*struct{}, *Stream[T]) {
		if pred(v) {
			return &st, Single(v)
		}
		return nil, Empty[T]()
	}))
}

// Skip drops the first n values and forwards the rest.
// Panics if n is negative.
func Skip[T any](s *Stream[T], n int) *Stream[T] {
	if n < 0 {
		panic("rx: Skip requires non-negative count")
	}
	return Merge(MapAccumulate(s, n, func(remaining int, v T) (*int, *Stream[T]) {
		if remaining > 0 {
			remaining--
			return &remaining, Empty[T]()
		}
		return &remaining, Single(v)
	}))
}

// SkipWhile drops values as long as pred holds, then forwards
// everything from the first non-matching value on.
func SkipWhile[T any](s *Stream[T], pred func(T) bool) *Stream[T] {
	if pred == nil {
		panic("rx: SkipWhile requires non-nil predicate")
	}
	return Merge(MapAccumulate(s, true, func(skipping bool, v T) (*bool, *Stream[T]) {
		if skipping && pred(v) {
			return &skipping, Empty[T]()
		}
		skipping = false
		return &skipping, Single(v)
	}))
}

// Concat emits everything from s and, once s completes, everything
// from next. The two sources never interleave: next is not attached
// until s's Completed arrives, at which point a serial disposable
// swaps the subscriptions.
func (s *Stream[T]) Concat(next *Stream[T]) *Stream[T] {
	if next == nil {
		panic("rx: Concat requires non-nil continuation stream")
	}
	return NewStream(func(sink Sink[T]) Disposable {
		serial := NewSerialDisposable()

		// moved guards the handoff: once the Completed branch has
		// claimed the serial slot for next's subscription, the
		// attach-return path must not overwrite it with src.
		var mu sync.Mutex
		moved := false

		src := s.Attach(func(ev Event[T]) bool {
			switch ev.Kind() {
			case KindNext:
				return sink(ev)
			case KindError:
				sink(ev)
				return false
			default:
				mu.Lock()
				moved = true
				mu.Unlock()
				serial.SetInner(next.Attach(sink))
				return false
			}
		})

		mu.Lock()
		if !moved {
			serial.SetInner(src)
		}
		mu.Unlock()

		return serial
	})
}

// Catch recovers from a terminal error by attaching to f(err) in place
// of the failed source. Completed passes through untouched. The
// replacement subscription lives in the same serial disposable as the
// original, so disposing the chain tears down whichever is active.
func (s *Stream[T]) Catch(f func(error) *Stream[T]) *Stream[T] {
	if f == nil {
		panic("rx: Catch requires non-nil handler")
	}
	return NewStream(func(sink Sink[T]) Disposable {
		serial := NewSerialDisposable()

		var mu sync.Mutex
		moved := false

		src := s.Attach(func(ev Event[T]) bool {
			switch ev.Kind() {
			case KindNext:
				return sink(ev)
			case KindError:
				mu.Lock()
				moved = true
				mu.Unlock()
				serial.SetInner(f(ev.Err()).Attach(sink))
				return false
			default:
				sink(ev)
				return false
			}
		})

		mu.Lock()
		if !moved {
			serial.SetInner(src)
		}
		mu.Unlock()

		return serial
	})
}

// Materialize lifts events themselves into values: every event of the
// source, terminals included, is forwarded as a Next carrying that
// event, and each terminal is followed by a synthetic Completed.
// [Dematerialize] is its exact inverse.
func Materialize[T any](s *Stream[T]) *Stream[Event[T]] {
	if s == nil {
		panic("rx: Materialize requires non-nil source stream")
	}
	return NewStream(func(sink Sink[Event[T]]) Disposable {
		return s.Attach(func(ev Event[T]) bool {
			more := sink(Next(ev))
			if ev.IsTerminal() {
				sink(Completed[Event[T]]())
				return false
			}
			return more
		})
	})
}

// Dematerialize unwraps a materialized stream, recovering the original
// event sequence exactly for any well-formed input.
func Dematerialize[T any](s *Stream[Event[T]]) *Stream[T] {
	if s == nil {
		panic("rx: Dematerialize requires non-nil source stream")
	}
	return NewStream(func(sink Sink[T]) Disposable {
		terminated := false
		return s.Attach(func(ev Event[Event[T]]) bool {
			if terminated {
				return false
			}
			switch ev.Kind() {
			case KindNext:
				inner := ev.Value()
				more := sink(inner)
				if inner.IsTerminal() {
					terminated = true
					return false
				}
				return more
			case KindError:
				terminated = true
				sink(Error[T](ev.Err()))
				return false
			default:
				// Synthetic completion; the terminal it follows has
				// already been forwarded. A completion with no prior
				// terminal still terminates downstream.
				terminated = true
				sink(Completed[T]())
				return false
			}
		})
	})
}

// TakeLast buffers up to n values, dropping the oldest past capacity,
// and emits the buffered values in original order once the source
// completes. Errors discard the buffer and propagate immediately.
// Panics if n is not positive.
func (s *Stream[T]) TakeLast(n int) *Stream[T] {
	if n <= 0 {
		panic("rx: TakeLast requires n > 0")
	}
	return NewStream(func(sink Sink[T]) Disposable {
		buf := deque.New[T]()
		return s.Attach(func(ev Event[T]) bool {
			switch ev.Kind() {
			case KindNext:
				if buf.Len() == n {
					buf.PopFront()
				}
				buf.PushBack(ev.Value())
				return true
			case KindError:
				sink(Error[T](ev.Err()))
				return false
			default:
				for buf.Len() > 0 {
					if !sink(Next(buf.PopFront())) {
						return false
					}
				}
				sink(Completed[T]())
				return false
			}
		})
	})
}

// IgnoreValues drops every Next and forwards only the terminal event.
func (s *Stream[T]) IgnoreValues() *Stream[T] {
	return NewStream(func(sink Sink[T]) Disposable {
		return s.Attach(func(ev Event[T]) bool {
			if !ev.IsTerminal() {
				return true
			}
			sink(ev)
			return false
		})
	})
}

// Aggregate folds the stream into a single final value: the last
// running accumulation of [Scan], or initial itself if the source was
// empty. It is built exactly from the published algebra: the scan
// prefixed with initial, trimmed to its last element.
func Aggregate[T, U any](s *Stream[T], initial U, f func(U, T) U) *Stream[U] {
	return Single(initial).Concat(Scan(s, initial, f)).TakeLast(1)
}

// First attaches to the stream and blocks the calling goroutine until
// the first event arrives, returning it. The event may be terminal: an
// empty stream yields its Completed, a failed one its Error. The
// subscription runs through Take(1), so the source is disposed as soon
// as the event is delivered.
func (s *Stream[T]) First() Event[T] {
	var (
		mu    sync.Mutex
		cond  = sync.NewCond(&mu)
		got   bool
		event Event[T]
	)

	d := s.Take(1).Attach(func(ev Event[T]) bool {
		mu.Lock()
		if !got {
			got = true
			event = ev
			cond.Signal()
		}
		mu.Unlock()
		return false
	})

	mu.Lock()
	for !got {
		cond.Wait()
	}
	mu.Unlock()

	if d != nil {
		d.Dispose()
	}
	return event
}

// WaitUntilCompleted blocks until the stream terminates and returns
// the terminal error, or nil on normal completion.
func (s *Stream[T]) WaitUntilCompleted() error {
	return s.IgnoreValues().First().Err()
}

// DeliverOn re-schedules every event onto sched before it reaches the
// consumer. Event order is preserved because work items on one
// scheduler instance run FIFO.
func (s *Stream[T]) DeliverOn(sched Scheduler) *Stream[T] {
	if sched == nil {
		panic("rx: DeliverOn requires non-nil scheduler")
	}
	return NewStream(func(sink Sink[T]) Disposable {
		comp := NewCompositeDisposable()
		src := s.Attach(func(ev Event[T]) bool {
			if comp.IsDisposed() {
				return false
			}
			sched.Schedule(func() {
				if comp.IsDisposed() {
					return
				}
				sink(ev)
			})
			return !ev.IsTerminal()
		})
		comp.Add(src)
		return comp
	})
}

// Delay shifts every event, terminals included, d into the future on
// sched. Events are re-emitted in their original order: arrivals are
// queued FIFO and each expired timer delivers the oldest pending event,
// so racing timers cannot reorder or interleave deliveries.
func (s *Stream[T]) Delay(d time.Duration, sched Scheduler) *Stream[T] {
	if sched == nil {
		panic("rx: Delay requires non-nil scheduler")
	}
	return NewStream(func(sink Sink[T]) Disposable {
		var (
			comp    = NewCompositeDisposable()
			mu      sync.Mutex
			pending = deque.New[Event[T]]()
			stopped bool
		)

		// One timer is armed per queued event, but which timer pops
		// which event is irrelevant: delivery always takes the front of
		// the queue, under the lock.
		deliver := func() {
			mu.Lock()
			defer mu.Unlock()
			if stopped || comp.IsDisposed() || pending.Len() == 0 {
				return
			}
			ev := pending.PopFront()
			if !sink(ev) || ev.IsTerminal() {
				stopped = true
			}
		}

		src := s.Attach(func(ev Event[T]) bool {
			if comp.IsDisposed() {
				return false
			}
			mu.Lock()
			pending.PushBack(ev)
			mu.Unlock()
			comp.Add(ScheduleAfter(sched, d, deliver))
			return !ev.IsTerminal()
		})
		comp.Add(src)
		return comp
	})
}

// Timeout mirrors the source until d elapses. If no terminal event has
// arrived by then, the stream fails with [ErrTimeout] and the source is
// disposed. Source events and the scheduled timeout race for the
// terminal slot through a serialized send gate: whichever delivers a
// terminal first wins, and nothing is forwarded after it.
func (s *Stream[T]) Timeout(d time.Duration, sched Scheduler) *Stream[T] {
	if sched == nil {
		panic("rx: Timeout requires non-nil scheduler")
	}
	return NewStream(func(sink Sink[T]) Disposable {
		var (
			comp       = NewCompositeDisposable()
			mu         sync.Mutex
			terminated bool
		)

		send := func(ev Event[T]) bool {
			mu.Lock()
			defer mu.Unlock()
			if terminated || comp.IsDisposed() {
				return false
			}
			if ev.IsTerminal() {
				terminated = true
			}
			return sink(ev)
		}

		comp.Add(ScheduleAfter(sched, d, func() {
			send(Error[T](ErrTimeout))
			comp.Dispose()
		}))

		src := s.Attach(func(ev Event[T]) bool {
			more := send(ev)
			if ev.IsTerminal() {
				comp.Dispose()
				return false
			}
			return more
		})
		comp.Add(src)
		return comp
	})
}
