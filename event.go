package rx

import "fmt"

// Kind identifies which variant an [Event] carries.
type Kind int

const (
	// KindNext carries a value.
	KindNext Kind = iota

	// KindError carries an error. Error events are terminal.
	KindError

	// KindCompleted signals successful termination.
	KindCompleted
)

// Event is the unit of data flowing through every stream: a value, an
// error, or a completion marker.
//
// Error and Completed events are terminal. A well-behaved producer
// sends no further events after either, and operators stop forwarding
// once they have delivered a terminal event.
type Event[T any] struct {
	kind Kind
	val  T
	err  error
}

// Next returns an event carrying the value v.
func Next[T any](v T) Event[T] {
	return Event[T]{kind: KindNext, val: v}
}

// Error returns a terminal event carrying err.
func Error[T any](err error) Event[T] {
	return Event[T]{kind: KindError, err: err}
}

// Completed returns a terminal event signalling successful completion.
func Completed[T any]() Event[T] {
	return Event[T]{kind: KindCompleted}
}

// Kind reports which variant the event is.
func (e Event[T]) Kind() Kind {
	return e.kind
}

// Value returns the carried value. It is meaningful only for
// [KindNext] events; otherwise it is the zero value.
func (e Event[T]) Value() T {
	return e.val
}

// Err returns the carried error. It is nil unless the event is
// [KindError].
func (e Event[T]) Err() error {
	return e.err
}

// IsTerminal reports whether the event ends the stream, i.e. whether
// it is an error or a completion.
func (e Event[T]) IsTerminal() bool {
	return e.kind != KindNext
}

func (e Event[T]) String() string {
	switch e.kind {
	case KindNext:
		return fmt.Sprintf("Next(%v)", e.val)
	case KindError:
		return fmt.Sprintf("Error(%v)", e.err)
	default:
		return "Completed"
	}
}
