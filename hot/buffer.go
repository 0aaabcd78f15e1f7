package hot

import (
	"sync"

	"github.com/gammazero/deque"
	"github.com/jspahrsummers/rx"
)

type bufferSink[T any] struct {
	id   uint64
	sink rx.Sink[T]
}

// bufferCore is the shared state behind [Buffer]: the retained value
// window plus the registry of attached cold consumers.
type bufferCore[T any] struct {
	mu       sync.Mutex
	window   *deque.Deque[T]
	capacity int
	nextID   uint64
	sinks    []bufferSink[T]
	stopped  bool
}

// Buffer bridges a hot observable into a cold stream. Every update to
// src is appended to a retained window; each attach of the returned
// stream first replays the window, then receives live updates. With
// capacity > 0 the window holds at most that many values, dropping the
// oldest; capacity 0 retains everything. Panics if capacity is
// negative.
//
// The returned disposable stops buffering: it unregisters from src and
// completes every attached consumer. Attaching after stop replays the
// final window and completes immediately.
func Buffer[T any](src *Observable[T], capacity int) (*rx.Stream[T], rx.Disposable) {
	if src == nil {
		panic("hot: Buffer requires non-nil source")
	}
	if capacity < 0 {
		panic("hot: Buffer requires non-negative capacity")
	}

	core := &bufferCore[T]{
		window:   deque.New[T](),
		capacity: capacity,
	}

	sub := src.Observe(core.push)
	stop := rx.NewActionDisposable(func() {
		sub.Dispose()
		core.stop()
	})

	stream := rx.NewStream(func(sink rx.Sink[T]) rx.Disposable {
		id, live := core.register(sink)
		if !live {
			return nil
		}
		return rx.NewActionDisposable(func() {
			core.unregister(id)
		})
	})
	return stream, stop
}

// push appends v to the window and forwards it to every attached sink.
// Delivery happens outside the lock against a snapshot, mirroring
// [Observable.send]; a sink that declines further events is
// unregistered.
func (c *bufferCore[T]) push(v T) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if c.capacity > 0 && c.window.Len() == c.capacity {
		c.window.PopFront()
	}
	c.window.PushBack(v)
	sinks := make([]bufferSink[T], len(c.sinks))
	copy(sinks, c.sinks)
	c.mu.Unlock()

	for _, s := range sinks {
		if !s.sink(rx.Next(v)) {
			c.unregister(s.id)
		}
	}
}

// register replays the window to sink and, if the core is still live,
// adds sink to the registry. Replay runs under the lock so a concurrent
// push can neither be lost nor delivered out of order relative to the
// replayed window.
func (c *bufferCore[T]) register(sink rx.Sink[T]) (uint64, bool) {
	c.mu.Lock()
	for i := 0; i < c.window.Len(); i++ {
		if !sink(rx.Next(c.window.At(i))) {
			c.mu.Unlock()
			return 0, false
		}
	}
	if c.stopped {
		c.mu.Unlock()
		sink(rx.Completed[T]())
		return 0, false
	}
	c.nextID++
	id := c.nextID
	c.sinks = append(c.sinks, bufferSink[T]{id: id, sink: sink})
	c.mu.Unlock()
	return id, true
}

func (c *bufferCore[T]) unregister(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.sinks {
		if s.id == id {
			c.sinks = append(c.sinks[:i], c.sinks[i+1:]...)
			return
		}
	}
}

// stop completes every attached sink and rejects further pushes. The
// window is kept so late attaches still see the buffered history.
func (c *bufferCore[T]) stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	sinks := c.sinks
	c.sinks = nil
	c.mu.Unlock()

	for _, s := range sinks {
		s.sink(rx.Completed[T]())
	}
}
