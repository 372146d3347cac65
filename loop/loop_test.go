package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/topicmap/errors"
)

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	l := New(context.Background(), zaptest.NewLogger(t).Sugar())
	t.Cleanup(l.Close)
	return l
}

func quiesce(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Quiesce(ctx))
}

func TestPostRunsInOrder(t *testing.T) {
	l := newTestLoop(t)

	var got []int
	for i := 0; i < 50; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	quiesce(t, l)

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestDoReturnsTaskError(t *testing.T) {
	l := newTestLoop(t)

	err := l.Do(context.Background(), func() error { return errors.New("boom") })
	assert.EqualError(t, err, "boom")
	assert.NoError(t, l.Do(context.Background(), func() error { return nil }))
}

func TestPanickingTaskDoesNotStopLoop(t *testing.T) {
	l := newTestLoop(t)

	l.Post(func() { panic("bad task") })
	ran := false
	require.NoError(t, l.Do(context.Background(), func() error { ran = true; return nil }))
	assert.True(t, ran)
}

func TestGoResolvesOnLoop(t *testing.T) {
	l := newTestLoop(t)

	var got int
	l.Post(func() {
		f := Go(l, func(ctx context.Context) (int, error) { return 42, nil })
		f.Then(func(v int, err error) { got = v })
	})
	quiesce(t, l)
	assert.Equal(t, 42, got)
}

func TestThenOnSettledFutureIsDeferred(t *testing.T) {
	l := newTestLoop(t)

	var order []string
	l.Post(func() {
		f := Resolved(l, "v")
		f.Then(func(string, error) { order = append(order, "callback") })
		order = append(order, "after then")
	})
	quiesce(t, l)
	assert.Equal(t, []string{"after then", "callback"}, order)
}

func TestAllWaitsForEveryFuture(t *testing.T) {
	l := newTestLoop(t)

	release := make(chan struct{})
	var settled atomic.Bool
	var allErr error

	l.Post(func() {
		slow := Go(l, func(ctx context.Context) (string, error) {
			<-release
			return "slow", nil
		})
		fast := Resolved(l, 1)
		All(l, fast, slow).Then(func(_ struct{}, err error) {
			allErr = err
			settled.Store(true)
		})
	})

	time.Sleep(20 * time.Millisecond)
	assert.False(t, settled.Load(), "All settled before the slow future")

	close(release)
	quiesce(t, l)
	assert.True(t, settled.Load())
	assert.NoError(t, allErr)
}

func TestAllReportsFirstError(t *testing.T) {
	l := newTestLoop(t)

	var allErr error
	l.Post(func() {
		All(l,
			Failed[int](l, errors.New("first")),
			Resolved(l, "ok"),
		).Then(func(_ struct{}, err error) { allErr = err })
	})
	quiesce(t, l)
	assert.EqualError(t, allErr, "first")

	var emptyDone bool
	l.Post(func() {
		All(l).Then(func(struct{}, error) { emptyDone = true })
	})
	quiesce(t, l)
	assert.True(t, emptyDone)
}

func TestMap(t *testing.T) {
	l := newTestLoop(t)

	var got string
	l.Post(func() {
		Map(Resolved(l, 2), func(v int) (string, error) {
			return string(rune('a' + v)), nil
		}).Then(func(v string, _ error) { got = v })
	})
	quiesce(t, l)
	assert.Equal(t, "c", got)
}

func TestAfterFuncCountsAsPending(t *testing.T) {
	l := newTestLoop(t)

	var fired atomic.Bool
	l.AfterFunc(30*time.Millisecond, func() { fired.Store(true) })
	quiesce(t, l)
	assert.True(t, fired.Load(), "Quiesce returned before the timer fired")
}

func TestTimerStop(t *testing.T) {
	l := newTestLoop(t)

	var fired atomic.Bool
	tm := l.AfterFunc(time.Hour, func() { fired.Store(true) })
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())

	quiesce(t, l)
	assert.False(t, fired.Load())

	var nilTimer *Timer
	assert.False(t, nilTimer.Stop())
}

func TestAwait(t *testing.T) {
	l := newTestLoop(t)

	var f *Future[int]
	require.NoError(t, l.Do(context.Background(), func() error {
		f = Go(l, func(ctx context.Context) (int, error) { return 7, nil })
		return nil
	}))

	v, err := Await(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestClose(t *testing.T) {
	l := New(context.Background(), nil)
	l.Close()
	l.Close()

	assert.False(t, l.Post(func() {}))
	assert.True(t, errors.Is(l.Do(context.Background(), func() error { return nil }), errors.ErrClosed))
	assert.True(t, errors.Is(l.Quiesce(context.Background()), errors.ErrClosed))
	assert.Error(t, l.Context().Err())
}
