package rx

import (
	"sync"
	"sync/atomic"
)

// Disposable is an idempotent cancellation handle. Dispose may be
// called zero, one, or many times, from any goroutine; the underlying
// cleanup runs exactly once.
type Disposable interface {
	// IsDisposed reports whether Dispose has been called.
	IsDisposed() bool

	// Dispose cancels the work or releases the resource the handle
	// stands for. It never fails and is safe to call repeatedly.
	Dispose()
}

// SimpleDisposable is a [Disposable] that carries no cleanup of its
// own; it only tracks whether it has been disposed. Producers poll it
// between emissions to notice cancellation.
type SimpleDisposable struct {
	disposed atomic.Bool
}

// NewSimpleDisposable returns an undisposed [SimpleDisposable].
func NewSimpleDisposable() *SimpleDisposable {
	return &SimpleDisposable{}
}

// IsDisposed implements [Disposable].
func (d *SimpleDisposable) IsDisposed() bool {
	return d.disposed.Load()
}

// Dispose implements [Disposable].
func (d *SimpleDisposable) Dispose() {
	d.disposed.Store(true)
}

// ActionDisposable runs a cleanup action on its first disposal. The
// action is held only until then: IsDisposed is equivalent to "the
// action is gone".
type ActionDisposable struct {
	mu     sync.Mutex
	action func()
}

// NewActionDisposable wraps action in a [Disposable].
// Panics if action is nil.
func NewActionDisposable(action func()) *ActionDisposable {
	if action == nil {
		panic("rx: NewActionDisposable requires non-nil action")
	}
	return &ActionDisposable{action: action}
}

// IsDisposed implements [Disposable].
func (d *ActionDisposable) IsDisposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.action == nil
}

// Dispose runs the action exactly once. The action itself runs outside
// the internal lock, so it may safely touch other disposables.
func (d *ActionDisposable) Dispose() {
	d.mu.Lock()
	action := d.action
	d.action = nil
	d.mu.Unlock()

	if action != nil {
		action()
	}
}

// CompositeDisposable owns an unordered bag of child disposables and
// disposes them together. Adding a child to an already-disposed
// composite disposes that child immediately instead of storing it.
type CompositeDisposable struct {
	mu       sync.Mutex
	children []Disposable
	disposed bool
}

// NewCompositeDisposable returns a composite owning the given children.
// Nil children are ignored.
func NewCompositeDisposable(children ...Disposable) *CompositeDisposable {
	c := &CompositeDisposable{}
	for _, child := range children {
		c.Add(child)
	}
	return c
}

// IsDisposed implements [Disposable].
func (c *CompositeDisposable) IsDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Add stores child for later disposal. If the composite is already
// disposed, child is disposed synchronously instead. Nil children are
// ignored.
func (c *CompositeDisposable) Add(child Disposable) {
	if child == nil {
		return
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		child.Dispose()
		return
	}
	c.children = append(c.children, child)
	c.mu.Unlock()
}

// Remove drops child from the bag without disposing it. Matching is by
// identity: the exact same Disposable instance, not an equal one.
func (c *CompositeDisposable) Remove(child Disposable) {
	if child == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.children {
		if d == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

// Dispose disposes and clears all children exactly once.
func (c *CompositeDisposable) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	children := c.children
	c.children = nil
	c.mu.Unlock()

	for _, child := range children {
		child.Dispose()
	}
}

// SerialDisposable holds at most one inner disposable at a time.
// Assigning a new inner disposes the previous one first, unless the two
// are the identical instance. Once the serial disposable itself is
// disposed, any inner assigned afterwards is disposed immediately
// instead of stored.
type SerialDisposable struct {
	mu       sync.Mutex
	inner    Disposable
	disposed bool
}

// NewSerialDisposable returns an empty, undisposed [SerialDisposable].
func NewSerialDisposable() *SerialDisposable {
	return &SerialDisposable{}
}

// IsDisposed implements [Disposable].
func (s *SerialDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Inner returns the current inner disposable, which may be nil.
func (s *SerialDisposable) Inner() Disposable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner
}

// SetInner replaces the current inner disposable with inner (which may
// be nil). The previous inner is disposed unless it is the same
// instance as the new one.
func (s *SerialDisposable) SetInner(inner Disposable) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		if inner != nil {
			inner.Dispose()
		}
		return
	}
	old := s.inner
	if old == inner {
		s.mu.Unlock()
		return
	}
	s.inner = inner
	s.mu.Unlock()

	if old != nil {
		old.Dispose()
	}
}

// Dispose disposes the current inner, if any, and marks the serial
// disposable as disposed.
func (s *SerialDisposable) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	inner := s.inner
	s.inner = nil
	s.mu.Unlock()

	if inner != nil {
		inner.Dispose()
	}
}

// ScopedDisposable ties a disposable to a lexical scope via defer:
//
//	sd := rx.NewScopedDisposable(d)
//	defer sd.Close()
//
// Close disposes the inner disposable on every exit path of the
// enclosing function. ScopedDisposable implements [io.Closer] so it
// also slots into existing cleanup helpers.
type ScopedDisposable struct {
	inner Disposable
}

// NewScopedDisposable wraps inner. Panics if inner is nil.
func NewScopedDisposable(inner Disposable) *ScopedDisposable {
	if inner == nil {
		panic("rx: NewScopedDisposable requires non-nil inner")
	}
	return &ScopedDisposable{inner: inner}
}

// IsDisposed implements [Disposable].
func (s *ScopedDisposable) IsDisposed() bool {
	return s.inner.IsDisposed()
}

// Dispose implements [Disposable].
func (s *ScopedDisposable) Dispose() {
	s.inner.Dispose()
}

// Close disposes the inner disposable and always returns nil; disposal
// is total and has no failure mode.
func (s *ScopedDisposable) Close() error {
	s.inner.Dispose()
	return nil
}
