package rx

// Sink consumes events from a stream. The return value reports whether
// the consumer wants more events; a producer must stop sending once its
// sink returns false. Returning false is the synchronous complement to
// disposing the attach handle: it lets a consumer stop a producer that
// is emitting inline, before the producer's disposable is even visible.
type Sink[T any] func(Event[T]) bool

// SinkOf adapts a plain callback into a [Sink] that always requests
// more events.
func SinkOf[T any](f func(Event[T])) Sink[T] {
	if f == nil {
		panic("rx: SinkOf requires non-nil callback")
	}
	return func(ev Event[T]) bool {
		f(ev)
		return true
	}
}

// Stream is a cold, attach-driven event stream: an immutable value
// describing how to start producing events. Nothing runs until a
// consumer attaches, and every attach starts independent, isolated
// work; two attaches share nothing unless the stream explicitly shares
// state downstream.
//
// Events within one attach are delivered serially, in send order.
// Operator state is therefore touched by one delivery at a time; only
// state shared across producers (merge counters, switch flags) needs an
// [Atomic] guard.
type Stream[T any] struct {
	attach func(sink Sink[T]) Disposable
}

// NewStream builds a stream from an attach function. The function is
// invoked once per [Stream.Attach] call and may return nil when there
// is nothing to cancel. Panics if attach is nil.
func NewStream[T any](attach func(sink Sink[T]) Disposable) *Stream[T] {
	if attach == nil {
		panic("rx: NewStream requires non-nil attach function")
	}
	return &Stream[T]{attach: attach}
}

// Attach starts the stream's work, delivering events to sink. The
// returned disposable cancels the work; it may be nil if the producer
// finished synchronously. After disposal, operators stop forwarding
// events to sink. Panics if sink is nil.
func (s *Stream[T]) Attach(sink Sink[T]) Disposable {
	if sink == nil {
		panic("rx: Attach requires non-nil sink")
	}
	return s.attach(sink)
}

// Empty returns a stream that emits no values and exactly one
// Completed.
func Empty[T any]() *Stream[T] {
	return NewStream(func(sink Sink[T]) Disposable {
		sink(Completed[T]())
		return nil
	})
}

// Single returns a stream that emits v and then completes. Each attach
// re-emits independently (cold semantics).
func Single[T any](v T) *Stream[T] {
	return NewStream(func(sink Sink[T]) Disposable {
		if sink(Next(v)) {
			sink(Completed[T]())
		}
		return nil
	})
}

// Failed returns a stream that immediately fails with err.
func Failed[T any](err error) *Stream[T] {
	return NewStream(func(sink Sink[T]) Disposable {
		sink(Error[T](err))
		return nil
	})
}

// FromSlice returns a stream that emits the elements of vs in order,
// then completes. The producer checks its disposable between
// emissions, so an asynchronous dispose stops the replay.
func FromSlice[T any](vs []T) *Stream[T] {
	return NewStream(func(sink Sink[T]) Disposable {
		d := NewSimpleDisposable()
		for _, v := range vs {
			if d.IsDisposed() {
				return d
			}
			if !sink(Next(v)) {
				return d
			}
		}
		if !d.IsDisposed() {
			sink(Completed[T]())
		}
		return d
	})
}

// FromChannel returns a stream that emits every value received from ch
// and completes when ch is closed. Each attach starts its own receive
// goroutine, so multiple attaches compete for the channel's values;
// attach once, or use a dedicated channel per attach.
func FromChannel[T any](ch <-chan T) *Stream[T] {
	if ch == nil {
		panic("rx: FromChannel requires non-nil channel")
	}
	return NewStream(func(sink Sink[T]) Disposable {
		d := NewSimpleDisposable()
		go func() {
			for v := range ch {
				if d.IsDisposed() {
					return
				}
				if !sink(Next(v)) {
					return
				}
			}
			if !d.IsDisposed() {
				sink(Completed[T]())
			}
		}()
		return d
	})
}
