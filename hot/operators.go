package hot

import "github.com/jspahrsummers/rx"

// Map returns an observable whose current value tracks f applied to
// src's current value.
func Map[T, U any](src *Observable[T], f func(T) U) *Observable[U] {
	if src == nil {
		panic("hot: Map requires non-nil source")
	}
	if f == nil {
		panic("hot: Map requires non-nil transform")
	}
	return New(func(send func(U)) {
		src.Observe(func(v T) {
			send(f(v))
		})
	})
}

// Scan folds src's updates into a running accumulator, starting from
// initial, and emits each intermediate result. The first emission is
// f(initial, current).
func Scan[T, U any](src *Observable[T], initial U, f func(U, T) U) *Observable[U] {
	if src == nil {
		panic("hot: Scan requires non-nil source")
	}
	if f == nil {
		panic("hot: Scan requires non-nil accumulator")
	}
	return New(func(send func(U)) {
		acc := rx.NewAtomic(initial)
		src.Observe(func(v T) {
			send(acc.Modify(func(a U) U { return f(a, v) }))
		})
	})
}

// Filter passes through values matching pred. A hot observable must
// hold a current value at all times, so when src's current value fails
// pred at construction the result starts at def; def is never used
// again after the first passing value.
func Filter[T any](src *Observable[T], def T, pred func(T) bool) *Observable[T] {
	if src == nil {
		panic("hot: Filter requires non-nil source")
	}
	if pred == nil {
		panic("hot: Filter requires non-nil predicate")
	}
	return New(func(send func(T)) {
		first := rx.NewAtomic(true)
		src.Observe(func(v T) {
			wasFirst := first.Swap(false)
			if pred(v) {
				send(v)
			} else if wasFirst {
				send(def)
			}
		})
	})
}

// Skip suppresses the first n updates from src, emitting def as the
// initial value while suppressed. Skip(src, 0, def) is equivalent to
// src. Panics if n is negative.
func Skip[T any](src *Observable[T], n int, def T) *Observable[T] {
	if src == nil {
		panic("hot: Skip requires non-nil source")
	}
	if n < 0 {
		panic("hot: Skip requires non-negative count")
	}
	return New(func(send func(T)) {
		remaining := rx.NewAtomic(n)
		seeded := rx.NewAtomic(false)
		src.Observe(func(v T) {
			pass := false
			remaining.Modify(func(r int) int {
				if r > 0 {
					return r - 1
				}
				pass = true
				return r
			})
			if pass {
				send(v)
			} else if !seeded.Swap(true) {
				send(def)
			}
		})
	})
}

// Merge flattens an observable of observables, observing every inner
// observable as it arrives and forwarding all of their updates. The
// source's current value at construction must be a non-nil observable,
// since the merged observable takes its initial value from it; nil
// inner observables sent later are ignored. Inner subscriptions are
// held for the life of the result.
func Merge[T any](src *Observable[*Observable[T]]) *Observable[T] {
	if src == nil {
		panic("hot: Merge requires non-nil source")
	}
	if src.Current() == nil {
		panic("hot: Merge requires a non-nil initial inner observable")
	}
	return New(func(send func(T)) {
		src.Observe(func(inner *Observable[T]) {
			if inner == nil {
				return
			}
			inner.Observe(send)
		})
	})
}

// SwitchToLatest forwards updates from the most recent inner observable
// only: each new inner observable replaces the previous subscription,
// disposing it first. The source's current value at construction must
// be a non-nil observable; nil inner observables sent later are
// ignored.
func SwitchToLatest[T any](src *Observable[*Observable[T]]) *Observable[T] {
	if src == nil {
		panic("hot: SwitchToLatest requires non-nil source")
	}
	if src.Current() == nil {
		panic("hot: SwitchToLatest requires a non-nil initial inner observable")
	}
	return New(func(send func(T)) {
		latest := rx.NewSerialDisposable()
		src.Observe(func(inner *Observable[T]) {
			if inner == nil {
				return
			}
			latest.SetInner(inner.Observe(send))
		})
	})
}

// CombineLatestWith emits f(a, b) whenever either source updates, using
// the other source's current value for the missing side.
//
// The pairing is a best-effort snapshot, not transactional: when both
// sources update concurrently, reading the counterpart's current value
// races with its own delivery, so an intermediate pairing may be
// emitted twice or a pairing may combine values from different
// "moments". Serialize the sources upstream when exact pairings matter.
func CombineLatestWith[A, B, R any](a *Observable[A], b *Observable[B], f func(A, B) R) *Observable[R] {
	if a == nil || b == nil {
		panic("hot: CombineLatestWith requires non-nil sources")
	}
	if f == nil {
		panic("hot: CombineLatestWith requires non-nil combiner")
	}
	return New(func(send func(R)) {
		a.Observe(func(v A) {
			send(f(v, b.Current()))
		})
		b.Observe(func(v B) {
			send(f(a.Current(), v))
		})
	})
}

// SampleOn emits src's current value every time trigger updates
// (including trigger's initial replay). Like [CombineLatestWith], the
// read of src's current value is a best-effort snapshot against
// concurrent updates to src.
func SampleOn[T, U any](src *Observable[T], trigger *Observable[U]) *Observable[T] {
	if src == nil {
		panic("hot: SampleOn requires non-nil source")
	}
	if trigger == nil {
		panic("hot: SampleOn requires non-nil trigger")
	}
	return New(func(send func(T)) {
		trigger.Observe(func(U) {
			send(src.Current())
		})
	})
}
