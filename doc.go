// Package rx provides lazily-executed, cancellable event streams and
// the concurrency primitives that make composing them thread-safe.
//
// # Events and Streams
//
// Every stream carries [Event] values: Next(v), Error(err), or
// Completed. Error and Completed are terminal — nothing follows them.
//
// A cold [Stream] is a value describing how to produce events; nothing
// runs until a consumer calls [Stream.Attach], and every attach starts
// independent work:
//
//	s := rx.FromSlice([]int{1, 2, 3})
//	d := rx.Map(s, func(v int) int { return v * v }).Attach(rx.SinkOf(func(ev rx.Event[int]) {
//	    fmt.Println(ev)
//	}))
//	defer d.Dispose()
//
// Operators compose freely: [Map], [Scan], [MapAccumulate],
// [Stream.Take], [Skip], [Filter], [TakeWhile], [Stream.Concat],
// [Stream.Catch], [Merge], [SwitchToLatest], [Materialize],
// [Dematerialize], [Stream.TakeLast], [Aggregate], and the blocking
// rendezvous [Stream.First] and [Stream.WaitUntilCompleted].
//
// The hot, multicast variant lives in the
// [github.com/jspahrsummers/rx/hot] subpackage.
//
// # Disposal
//
// Cancellation is a tree of [Disposable] handles. Disposal is
// idempotent, total (it cannot fail), and propagates downward the
// moment Dispose is called: [CompositeDisposable] fans out to a bag of
// children, [SerialDisposable] swaps one child for another disposing
// the old, [ActionDisposable] runs a cleanup exactly once, and
// [ScopedDisposable] binds disposal to a defer.
//
// # Schedulers and Promises
//
// A [Scheduler] is a serial execution context: FIFO per instance,
// cancellable per work item. [ImmediateScheduler] runs inline;
// [QueueScheduler] runs a worker goroutine. [Promise] is a one-shot
// deferred value bound to a scheduler, observed by blocking
// ([Promise.Await]) or callback ([Promise.NotifyOn]).
//
// # Invariants
//
// Precondition violations — nil callbacks, negative counts, sending
// through a sink after a terminal event by way of a misbehaving
// producer — are programming errors and panic rather than propagate.
// Data-plane failures travel as Error events; [Stream.Catch] is the
// sole recovery operator.
package rx
