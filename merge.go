package rx

import "sync"

// Merge flattens a stream of streams, attaching to every inner stream
// as it arrives and forwarding inner values directly. Completion is
// aggregate: an in-flight counter starts at 1 for the outer stream,
// increments per inner attach, and decrements on each completion; the
// merged stream completes only when the counter reaches zero. The
// first error from any source terminates the merged stream
// immediately.
//
// Each inner subscription is tracked in a composite disposable and
// removed again when that inner stream terminates, so long-lived
// merges do not accumulate dead disposables.
func Merge[T any](s *Stream[*Stream[T]]) *Stream[T] {
	if s == nil {
		panic("rx: Merge requires non-nil source stream")
	}
	return NewStream(func(sink Sink[T]) Disposable {
		var (
			disposables = NewCompositeDisposable()
			inFlight    = NewAtomic(1)

			mu         sync.Mutex
			terminated bool
		)

		// send serializes delivery across sources and enforces the
		// terminal contract: nothing is forwarded after the first
		// terminal event or after disposal.
		send := func(ev Event[T]) bool {
			mu.Lock()
			defer mu.Unlock()
			if terminated || disposables.IsDisposed() {
				return false
			}
			if ev.IsTerminal() {
				terminated = true
			}
			return sink(ev)
		}

		depart := func() {
			if inFlight.Modify(func(n int) int { return n - 1 }) == 0 {
				send(Completed[T]())
			}
		}

		outer := s.Attach(func(ev Event[*Stream[T]]) bool {
			switch ev.Kind() {
			case KindNext:
				inner := ev.Value()
				if inner == nil {
					return true
				}
				inFlight.Modify(func(n int) int { return n + 1 })

				// The slot gives the inner subscription a stable
				// identity for removal, and cascades disposal if the
				// composite was disposed mid-attach.
				slot := NewSerialDisposable()
				disposables.Add(slot)

				innerDisp := inner.Attach(func(iev Event[T]) bool {
					switch iev.Kind() {
					case KindNext:
						return send(iev)
					case KindError:
						disposables.Remove(slot)
						send(Error[T](iev.Err()))
						return false
					default:
						disposables.Remove(slot)
						depart()
						return false
					}
				})
				slot.SetInner(innerDisp)
				return !disposables.IsDisposed()

			case KindError:
				send(Error[T](ev.Err()))
				return false

			default:
				depart()
				return false
			}
		})
		disposables.Add(outer)
		return disposables
	})
}

// MergeAll merges a fixed set of streams.
func MergeAll[T any](streams ...*Stream[T]) *Stream[T] {
	return Merge(FromSlice(streams))
}

type switchState struct {
	version   int
	outerDone bool
	innerDone bool
}

// SwitchToLatest forwards values from the most recent inner stream
// only. Each new inner stream replaces the previous subscription
// through a serial disposable, disposing the old one before storing
// the new, and events from superseded inners are suppressed. The
// switched stream completes once both the outer stream and the latest
// inner stream have completed; an error from either propagates
// immediately.
func SwitchToLatest[T any](s *Stream[*Stream[T]]) *Stream[T] {
	if s == nil {
		panic("rx: SwitchToLatest requires non-nil source stream")
	}
	return NewStream(func(sink Sink[T]) Disposable {
		var (
			latest = NewSerialDisposable()
			comp   = NewCompositeDisposable(latest)

			// innerDone starts true so an outer stream that completes
			// without ever producing an inner stream completes the
			// whole switch.
			state = NewAtomic(switchState{innerDone: true})

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

		outer := s.Attach(func(ev Event[*Stream[T]]) bool {
			switch ev.Kind() {
			case KindNext:
				inner := ev.Value()
				if inner == nil {
					return true
				}
				ver := state.Modify(func(st switchState) switchState {
					st.version++
					st.innerDone = false
					return st
				}).version

				latest.SetInner(inner.Attach(func(iev Event[T]) bool {
					// A superseded inner may still be delivering while
					// its disposal propagates; drop its events.
					if state.Load().version != ver {
						return false
					}
					switch iev.Kind() {
					case KindNext:
						return send(iev)
					case KindError:
						send(Error[T](iev.Err()))
						return false
					default:
						st := state.Modify(func(st switchState) switchState {
							if st.version == ver {
								st.innerDone = true
							}
							return st
						})
						if st.version == ver && st.outerDone && st.innerDone {
							send(Completed[T]())
						}
						return false
					}
				}))
				return !comp.IsDisposed()

			case KindError:
				send(Error[T](ev.Err()))
				return false

			default:
				st := state.Modify(func(st switchState) switchState {
					st.outerDone = true
					return st
				})
				if st.outerDone && st.innerDone {
					send(Completed[T]())
				}
				return false
			}
		})
		comp.Add(outer)
		return comp
	})
}
