package rx

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// Scheduler is a serial execution context. Work items submitted to the
// same scheduler instance execute in submission order relative to each
// other; there is no ordering guarantee across different instances.
//
// Schedulers are always passed explicitly. There is no ambient
// "current scheduler": hidden context makes operator behavior depend on
// the calling goroutine, which does not survive task-based concurrency.
type Scheduler interface {
	// Schedule enqueues work for later execution. Disposing the
	// returned handle before the work starts prevents it from running;
	// it does not interrupt work that has already started.
	//
	// Implementations that execute work synchronously may return nil,
	// since there is nothing left to cancel by the time Schedule
	// returns.
	Schedule(work func()) Disposable
}

// ImmediateScheduler executes work synchronously on the calling
// goroutine. Schedule always returns nil.
type ImmediateScheduler struct{}

// Schedule implements [Scheduler].
func (ImmediateScheduler) Schedule(work func()) Disposable {
	if work == nil {
		panic("rx: Schedule requires non-nil work")
	}
	work()
	return nil
}

type queuedWork struct {
	fn     func()
	handle *SimpleDisposable
}

type queueConfig struct {
	minCapacity int
}

// QueueOption configures a [QueueScheduler].
type QueueOption func(*queueConfig)

// WithMinCapacity pre-sizes the scheduler's queue for at least n
// pending work items, avoiding early growth under bursty submission.
// Panics if n is negative.
func WithMinCapacity(n int) QueueOption {
	if n < 0 {
		panic("rx: WithMinCapacity requires non-negative capacity")
	}
	return func(c *queueConfig) {
		c.minCapacity = n
	}
}

// QueueScheduler is a FIFO scheduler backed by a single worker
// goroutine. Work items run one at a time, in submission order. The
// queue is unbounded; Schedule never blocks.
//
// A QueueScheduler must be shut down with [QueueScheduler.Close] once
// it is no longer needed, or its worker goroutine leaks.
type QueueScheduler struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  *deque.Deque[*queuedWork]
	closed bool
	done   chan struct{}
}

// NewQueueScheduler creates a QueueScheduler and starts its worker.
func NewQueueScheduler(opts ...QueueOption) *QueueScheduler {
	var cfg queueConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &QueueScheduler{
		queue: deque.New[*queuedWork](cfg.minCapacity),
		done:  make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.run()
	return s
}

// Schedule implements [Scheduler]. After [QueueScheduler.Close], work
// is rejected: the returned handle is already disposed and the work
// will not run.
func (s *QueueScheduler) Schedule(work func()) Disposable {
	if work == nil {
		panic("rx: Schedule requires non-nil work")
	}

	w := &queuedWork{fn: work, handle: NewSimpleDisposable()}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		w.handle.Dispose()
		return w.handle
	}
	s.queue.PushBack(w)
	s.mu.Unlock()

	s.cond.Signal()
	return w.handle
}

func (s *QueueScheduler) run() {
	defer close(s.done)

	for {
		s.mu.Lock()
		for s.queue.Len() == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.queue.Len() == 0 {
			// closed and drained
			s.mu.Unlock()
			return
		}
		w := s.queue.PopFront()
		s.mu.Unlock()

		if !w.handle.IsDisposed() {
			w.fn()
			// The work ran; there is nothing left to cancel.
			w.handle.Dispose()
		}
	}
}

// Close stops accepting new work, waits for already-queued work to
// drain, and stops the worker. Safe to call multiple times.
//
// Close must not be called from work running on this scheduler: it
// waits for the worker goroutine, which is busy executing the caller.
func (s *QueueScheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cond.Broadcast()
	<-s.done
}

// ScheduleAfter runs work on s once d has elapsed. Disposing the
// returned handle before the timer fires, or before the scheduled work
// starts, prevents it from running.
func ScheduleAfter(s Scheduler, d time.Duration, work func()) Disposable {
	if s == nil {
		panic("rx: ScheduleAfter requires non-nil scheduler")
	}
	if work == nil {
		panic("rx: ScheduleAfter requires non-nil work")
	}

	cancelled := NewSimpleDisposable()
	timer := time.AfterFunc(d, func() {
		if cancelled.IsDisposed() {
			return
		}
		s.Schedule(func() {
			if cancelled.IsDisposed() {
				return
			}
			work()
		})
	})

	return NewActionDisposable(func() {
		cancelled.Dispose()
		timer.Stop()
	})
}
