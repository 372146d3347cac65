package loop

import (
	"context"

	"github.com/teranos/topicmap/errors"
)

// Future is the eventual result of asynchronous work.
// Its state is only touched on the loop goroutine; callbacks run there too.
type Future[T any] struct {
	l         *Loop
	done      bool
	val       T
	err       error
	callbacks []func(T, error)
}

// NewFuture creates an unresolved future bound to l
func NewFuture[T any](l *Loop) *Future[T] {
	return &Future[T]{l: l}
}

// Resolved creates a future that already holds v
func Resolved[T any](l *Loop, v T) *Future[T] {
	return &Future[T]{l: l, done: true, val: v}
}

// Failed creates a future that already holds err
func Failed[T any](l *Loop, err error) *Future[T] {
	return &Future[T]{l: l, done: true, err: err}
}

// Go runs work on its own goroutine and resolves the returned future on the loop.
func Go[T any](l *Loop, work func(ctx context.Context) (T, error)) *Future[T] {
	f := NewFuture[T](l)
	l.begin()
	go func() {
		defer l.end()
		v, err := work(l.ctx)
		l.Post(func() { f.Resolve(v, err) })
	}()
	return f
}

// Resolve settles the future and runs its callbacks. Later calls are ignored.
// Must be called on the loop.
func (f *Future[T]) Resolve(v T, err error) {
	if f.done {
		return
	}
	f.done = true
	f.val = v
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	for _, cb := range callbacks {
		cb(v, err)
	}
}

// Then registers cb to run on the loop once the future settles.
// A settled future runs cb in a later task, never synchronously.
func (f *Future[T]) Then(cb func(T, error)) {
	if f.done {
		v, err := f.val, f.err
		f.l.Post(func() { cb(v, err) })
		return
	}
	f.callbacks = append(f.callbacks, cb)
}

// Done reports whether the future has settled
func (f *Future[T]) Done() bool {
	return f.done
}

// Result returns the settled value. It is only meaningful once Done.
func (f *Future[T]) Result() (T, error) {
	return f.val, f.err
}

func (f *Future[T]) settled(cb func(error)) {
	f.Then(func(_ T, err error) { cb(err) })
}

// Settler is any future, regardless of its value type
type Settler interface {
	settled(cb func(error))
}

// All settles once every future has settled. The first error wins.
func All(l *Loop, fs ...Settler) *Future[struct{}] {
	out := NewFuture[struct{}](l)
	if len(fs) == 0 {
		out.done = true
		return out
	}
	remaining := len(fs)
	var first error
	for _, f := range fs {
		f.settled(func(err error) {
			if err != nil && first == nil {
				first = err
			}
			remaining--
			if remaining == 0 {
				out.Resolve(struct{}{}, first)
			}
		})
	}
	return out
}

// Map derives a future by applying fn to f's value on the loop
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := NewFuture[U](f.l)
	f.Then(func(v T, err error) {
		if err != nil {
			var zero U
			out.Resolve(zero, err)
			return
		}
		out.Resolve(fn(v))
	})
	return out
}

// Await blocks until f settles. It must not be called from a task.
func Await[T any](ctx context.Context, f *Future[T]) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	if !f.l.Post(func() {
		f.Then(func(v T, err error) { ch <- result{v, err} })
	}) {
		var zero T
		return zero, errors.Wrap(errors.ErrClosed, "loop")
	}
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-f.l.ctx.Done():
		var zero T
		return zero, errors.Wrap(errors.ErrClosed, "loop")
	}
}
