package rx

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAccumulate(t *testing.T) {
	// Running sums, terminating once the sum reaches 10. The nil state
	// must complete the stream and stop the unbounded source.
	s := MapAccumulate(naturals(), 0, func(sum, v int) (*int, int) {
		sum += v
		if sum >= 10 {
			return nil, sum
		}
		return &sum, sum
	})

	values, err, completed := collectAll(s)
	assert.Equal(t, []int{0, 1, 3, 6, 10}, values)
	assert.NoError(t, err)
	assert.True(t, completed)
}

func TestMapAccumulateForwardsError(t *testing.T) {
	sentinel := errors.New("boom")
	s := MapAccumulate(Failed[int](sentinel), 0, func(st, v int) (*int, int) {
		return &st, v
	})

	values, err, completed := collectAll(s)
	assert.Empty(t, values)
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, completed)
}

func TestMap(t *testing.T) {
	s := Map(FromSlice([]int{1, 2, 3}), func(v int) string {
		return string(rune('a' + v - 1))
	})
	values, err, completed := collectAll(s)
	assert.Equal(t, []string{"a", "b", "c"}, values)
	assert.NoError(t, err)
	assert.True(t, completed)
}

func TestScan(t *testing.T) {
	s := Scan(FromSlice([]int{1, 2, 3}), 0, func(acc, v int) int { return acc + v })
	values, _, completed := collectAll(s)
	assert.Equal(t, []int{1, 3, 6}, values)
	assert.True(t, completed)
}

func TestTakeStopsUnboundedSource(t *testing.T) {
	values, err, completed := collectAll(naturals().Take(3))
	assert.Equal(t, []int{0, 1, 2}, values)
	assert.NoError(t, err)
	assert.True(t, completed)
}

func TestTakeZeroIsEmpty(t *testing.T) {
	attached := false
	src := NewStream(func(sink Sink[int]) Disposable {
		attached = true
		sink(Completed[int]())
		return nil
	})

	values, _, completed := collectAll(src.Take(0))
	assert.Empty(t, values)
	assert.True(t, completed)
	assert.False(t, attached, "Take(0) must not attach to the source")
}

func TestTakeNegativePanics(t *testing.T) {
	mustPanicContains(t, "non-negative", func() {
		Empty[int]().Take(-1)
	})
}

func TestCombinePrevious(t *testing.T) {
	s := CombinePrevious(FromSlice([]int{1, 2, 3}), 0)
	values, _, completed := collectAll(s)
	assert.Equal(t, []Pair[int, int]{
		{First: 0, Second: 1},
		{First: 1, Second: 2},
		{First: 2, Second: 3},
	}, values)
	assert.True(t, completed)
}

func TestFilter(t *testing.T) {
	s := Filter(FromSlice([]int{1, 2, 3, 4, 5, 6}), func(v int) bool { return v%2 == 0 })
	values, _, completed := collectAll(s)
	assert.Equal(t, []int{2, 4, 6}, values)
	assert.True(t, completed)
}

func TestFilterOverStreamOfStreams(t *testing.T) {
	// Filtering a stream whose elements are themselves streams must
	// instantiate cleanly at any nesting depth.
	inner := FromSlice([]int{1, 2})
	outer := FromSlice([]*Stream[int]{inner, nil, inner})
	filtered := Filter(outer, func(s *Stream[int]) bool { return s != nil })

	values, _, completed := collectAll(Merge(filtered))
	assert.Equal(t, []int{1, 2, 1, 2}, values)
	assert.True(t, completed)
}

func TestTakeWhile(t *testing.T) {
	s := TakeWhile(FromSlice([]int{1, 2, 3, 1}), func(v int) bool { return v < 3 })
	values, _, completed := collectAll(s)
	assert.Equal(t, []int{1, 2}, values)
	assert.True(t, completed, "failing the predicate completes the stream")
}

func TestSkip(t *testing.T) {
	s := Skip(FromSlice([]int{1, 2, 3, 4}), 2)
	values, _, completed := collectAll(s)
	assert.Equal(t, []int{3, 4}, values)
	assert.True(t, completed)
}

func TestSkipWhile(t *testing.T) {
	s := SkipWhile(FromSlice([]int{1, 2, 3, 1}), func(v int) bool { return v < 3 })
	values, _, completed := collectAll(s)
	assert.Equal(t, []int{3, 1}, values, "skipping stops permanently at the first non-match")
	assert.True(t, completed)
}

func TestConcat(t *testing.T) {
	s := FromSlice([]int{1, 2}).Concat(FromSlice([]int{3, 4}))
	values, err, completed := collectAll(s)
	assert.Equal(t, []int{1, 2, 3, 4}, values)
	assert.NoError(t, err)
	assert.True(t, completed)
}

func TestConcatErrorShortCircuits(t *testing.T) {
	sentinel := errors.New("boom")
	attached := false
	next := NewStream(func(sink Sink[int]) Disposable {
		attached = true
		sink(Completed[int]())
		return nil
	})

	values, err, _ := collectAll(Failed[int](sentinel).Concat(next))
	assert.Empty(t, values)
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, attached, "the continuation must not attach after an error")
}

func TestCatchRecovers(t *testing.T) {
	sentinel := errors.New("boom")
	var caught error
	s := FromSlice([]int{1}).Concat(Failed[int](sentinel)).Catch(func(err error) *Stream[int] {
		caught = err
		return FromSlice([]int{9})
	})

	values, err, completed := collectAll(s)
	assert.Equal(t, []int{1, 9}, values)
	assert.NoError(t, err)
	assert.True(t, completed)
	assert.ErrorIs(t, caught, sentinel)
}

func TestCatchPassesThroughCompletion(t *testing.T) {
	handled := false
	s := FromSlice([]int{1, 2}).Catch(func(error) *Stream[int] {
		handled = true
		return Empty[int]()
	})

	values, _, completed := collectAll(s)
	assert.Equal(t, []int{1, 2}, values)
	assert.True(t, completed)
	assert.False(t, handled, "Catch must not run on normal completion")
}

func TestMaterialize(t *testing.T) {
	values, err, completed := collectAll(Materialize(FromSlice([]int{1, 2})))
	require.Len(t, values, 3)
	assert.Equal(t, Next(1), values[0])
	assert.Equal(t, Next(2), values[1])
	assert.Equal(t, Completed[int](), values[2])
	assert.NoError(t, err)
	assert.True(t, completed, "a terminal-carrying Next is followed by a synthetic Completed")
}

func TestMaterializeError(t *testing.T) {
	sentinel := errors.New("boom")
	values, err, completed := collectAll(Materialize(Failed[int](sentinel)))
	require.Len(t, values, 1)
	assert.Equal(t, KindError, values[0].Kind())
	assert.ErrorIs(t, values[0].Err(), sentinel)
	assert.NoError(t, err, "the error travels as a value, not as a terminal")
	assert.True(t, completed)
}

func TestDematerializeRoundTrip(t *testing.T) {
	sentinel := errors.New("boom")
	original := FromSlice([]int{1, 2}).Concat(Failed[int](sentinel))

	values, err, completed := collectAll(Dematerialize(Materialize(original)))
	assert.Equal(t, []int{1, 2}, values)
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, completed)
}

func TestTakeLast(t *testing.T) {
	values, _, completed := collectAll(FromSlice([]int{1, 2, 3, 4, 5}).TakeLast(2))
	assert.Equal(t, []int{4, 5}, values)
	assert.True(t, completed)
}

func TestTakeLastError(t *testing.T) {
	sentinel := errors.New("boom")
	s := FromSlice([]int{1, 2}).Concat(Failed[int](sentinel)).TakeLast(2)

	values, err, _ := collectAll(s)
	assert.Empty(t, values, "an error discards the buffered values")
	assert.ErrorIs(t, err, sentinel)
}

func TestIgnoreValues(t *testing.T) {
	values, err, completed := collectAll(FromSlice([]int{1, 2, 3}).IgnoreValues())
	assert.Empty(t, values)
	assert.NoError(t, err)
	assert.True(t, completed)
}

func TestAggregateSum(t *testing.T) {
	s := Aggregate(FromSlice([]int{1, 2, 3}), 0, func(acc, v int) int { return acc + v })
	values, _, completed := collectAll(s)
	assert.Equal(t, []int{6}, values)
	assert.True(t, completed)
}

func TestAggregateEmptyYieldsInitial(t *testing.T) {
	s := Aggregate(Empty[int](), 42, func(acc, v int) int { return acc + v })
	values, _, completed := collectAll(s)
	assert.Equal(t, []int{42}, values)
	assert.True(t, completed)
}

func TestFirst(t *testing.T) {
	ev := FromSlice([]int{7, 8}).First()
	assert.Equal(t, Next(7), ev)
}

func TestFirstOfEmptyIsCompleted(t *testing.T) {
	ev := Empty[int]().First()
	assert.Equal(t, KindCompleted, ev.Kind())
}

func TestFirstOfFailedIsError(t *testing.T) {
	sentinel := errors.New("boom")
	ev := Failed[int](sentinel).First()
	assert.Equal(t, KindError, ev.Kind())
	assert.ErrorIs(t, ev.Err(), sentinel)
}

func TestFirstBlocksForAsyncValue(t *testing.T) {
	ch := make(chan int)
	go func() {
		time.Sleep(10 * time.Millisecond)
		ch <- 5
		close(ch)
	}()

	ev := FromChannel(ch).First()
	assert.Equal(t, Next(5), ev)
}

func TestWaitUntilCompleted(t *testing.T) {
	assert.NoError(t, FromSlice([]int{1, 2, 3}).WaitUntilCompleted())

	sentinel := errors.New("boom")
	assert.ErrorIs(t, Failed[int](sentinel).WaitUntilCompleted(), sentinel)
}

func TestDeliverOn(t *testing.T) {
	sched := NewQueueScheduler()
	defer sched.Close()

	results := make(chan Event[int], 8)
	d := FromSlice([]int{1, 2, 3}).DeliverOn(sched).Attach(func(ev Event[int]) bool {
		results <- ev
		return true
	})
	defer d.Dispose()

	var values []int
	for ev := range results {
		if ev.IsTerminal() {
			require.Equal(t, KindCompleted, ev.Kind())
			break
		}
		values = append(values, ev.Value())
	}
	assert.Equal(t, []int{1, 2, 3}, values, "scheduler delivery preserves order")
}

func TestDelay(t *testing.T) {
	sched := NewQueueScheduler()
	defer sched.Close()

	const delay = 20 * time.Millisecond
	start := time.Now()

	err := FromSlice([]int{1}).Delay(delay, sched).WaitUntilCompleted()
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), delay)
}

func TestDelayPreservesOrderWithEqualDeadlines(t *testing.T) {
	// Every event shares one deadline, so the per-event timers all
	// expire together; delivery must still come out in send order, with
	// the terminal last. ImmediateScheduler runs each timer's work on
	// its own goroutine, which is the hardest case.
	for i := 0; i < 50; i++ {
		results := make(chan Event[int], 8)
		d := FromSlice([]int{1, 2, 3}).Delay(time.Millisecond, ImmediateScheduler{}).Attach(func(ev Event[int]) bool {
			results <- ev
			return true
		})

		var values []int
		for ev := range results {
			if ev.IsTerminal() {
				require.Equal(t, KindCompleted, ev.Kind())
				break
			}
			values = append(values, ev.Value())
		}
		require.Equal(t, []int{1, 2, 3}, values)
		d.Dispose()
	}
}

func TestTimeoutNeverDeliversAfterTerminal(t *testing.T) {
	sched := NewQueueScheduler()
	defer sched.Close()

	// A tight-loop producer races a near-immediate timeout; once any
	// terminal lands, nothing else may reach the sink.
	for i := 0; i < 200; i++ {
		var (
			mu         sync.Mutex
			terminated bool
			afterward  bool
		)
		d := naturals().Timeout(50*time.Microsecond, sched).Attach(func(ev Event[int]) bool {
			mu.Lock()
			if terminated {
				afterward = true
			}
			if ev.IsTerminal() {
				terminated = true
			}
			mu.Unlock()
			return true
		})
		if d != nil {
			d.Dispose()
		}

		mu.Lock()
		require.True(t, terminated, "iteration %d: no terminal event", i)
		require.False(t, afterward, "iteration %d: event delivered after terminal", i)
		mu.Unlock()
	}
}

func TestTimeoutFires(t *testing.T) {
	sched := NewQueueScheduler()
	defer sched.Close()

	never := make(chan int)
	defer close(never)

	err := FromChannel(never).Timeout(10*time.Millisecond, sched).WaitUntilCompleted()
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTimeoutDoesNotFireAfterCompletion(t *testing.T) {
	sched := NewQueueScheduler()
	defer sched.Close()

	s := FromSlice([]int{1, 2}).Timeout(time.Hour, sched)
	values, err, completed := collectAll(s)
	assert.Equal(t, []int{1, 2}, values)
	assert.NoError(t, err)
	assert.True(t, completed)
}
