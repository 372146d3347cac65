package anim

import (
	"cmp"
	"slices"
	"time"

	"github.com/teranos/topicmap/loop"
)

// Debouncer collects keys triggered in quick succession and flushes them
// once, after the window has passed without a new trigger. Each key appears
// in a flush at most once. Methods must be called on the loop.
type Debouncer[K cmp.Ordered] struct {
	l       *loop.Loop
	window  time.Duration
	flush   func(keys []K)
	pending map[K]bool
	timer   *loop.Timer
	gen     int
}

// NewDebouncer creates a debouncer calling flush on the loop
func NewDebouncer[K cmp.Ordered](l *loop.Loop, window time.Duration, flush func(keys []K)) *Debouncer[K] {
	return &Debouncer[K]{l: l, window: window, flush: flush, pending: make(map[K]bool)}
}

// Trigger adds key to the pending set and restarts the window
func (d *Debouncer[K]) Trigger(key K) {
	d.pending[key] = true
	d.timer.Stop()
	d.gen++
	gen := d.gen
	d.timer = d.l.AfterFunc(d.window, func() {
		if gen != d.gen {
			return
		}
		d.Flush()
	})
}

// Flush hands pending keys to the flush function now, in key order
func (d *Debouncer[K]) Flush() {
	d.timer.Stop()
	d.timer = nil
	d.gen++
	if len(d.pending) == 0 {
		return
	}
	keys := make([]K, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	d.pending = make(map[K]bool)
	slices.Sort(keys)
	d.flush(keys)
}

// Cancel drops pending keys without flushing
func (d *Debouncer[K]) Cancel() {
	d.timer.Stop()
	d.timer = nil
	d.gen++
	d.pending = make(map[K]bool)
}

// Pending reports whether key waits for the next flush
func (d *Debouncer[K]) Pending(key K) bool {
	return d.pending[key]
}
