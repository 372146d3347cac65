package anim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/topicmap/loop"
)

func newDebounceLoop(t *testing.T) *loop.Loop {
	l := loop.New(context.Background(), zaptest.NewLogger(t).Sugar())
	t.Cleanup(l.Close)
	return l
}

func settle(t *testing.T, l *loop.Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Quiesce(ctx))
}

func TestDebouncerCollapsesBurst(t *testing.T) {
	l := newDebounceLoop(t)

	var flushes [][]int
	var d *Debouncer[int]
	l.Post(func() {
		d = NewDebouncer(l, 30*time.Millisecond, func(keys []int) { flushes = append(flushes, keys) })
		d.Trigger(7)
		d.Trigger(7)
		d.Trigger(7)
	})
	settle(t, l)

	assert.Equal(t, [][]int{{7}}, flushes)
}

func TestDebouncerKeepsEveryKey(t *testing.T) {
	l := newDebounceLoop(t)

	var flushes [][]int
	l.Post(func() {
		d := NewDebouncer(l, 30*time.Millisecond, func(keys []int) { flushes = append(flushes, keys) })
		d.Trigger(9)
		d.Trigger(3)
		d.Trigger(9)
	})
	settle(t, l)

	assert.Equal(t, [][]int{{3, 9}}, flushes)
}

func TestDebouncerSeparateWindows(t *testing.T) {
	l := newDebounceLoop(t)

	var flushes [][]int
	var d *Debouncer[int]
	l.Post(func() {
		d = NewDebouncer(l, 10*time.Millisecond, func(keys []int) { flushes = append(flushes, keys) })
		d.Trigger(1)
	})
	settle(t, l)
	l.Post(func() { d.Trigger(1) })
	settle(t, l)

	assert.Equal(t, [][]int{{1}, {1}}, flushes)
}

func TestDebouncerCancel(t *testing.T) {
	l := newDebounceLoop(t)

	flushed := false
	l.Post(func() {
		d := NewDebouncer(l, time.Hour, func([]int) { flushed = true })
		d.Trigger(1)
		assert.True(t, d.Pending(1))
		d.Cancel()
		assert.False(t, d.Pending(1))
	})
	settle(t, l)
	assert.False(t, flushed)
}
