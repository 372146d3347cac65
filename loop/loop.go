// Package loop runs a session's state on a single goroutine.
//
// Every mutation of engine state happens inside a task executed by the loop,
// so the engine needs no locks. Blocking work (renderer round trips, store
// fetches, animations) runs on its own goroutine via Go and posts its result
// back as a task. Pending work is counted so tests can Quiesce the loop and
// observe a settled state.
package loop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
)

// Loop executes posted tasks one at a time, in posting order
type Loop struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.SugaredLogger

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	pending int
	waiters []chan struct{}
	closed  bool
}

// New creates a loop and starts its goroutine.
// The loop stops when ctx is cancelled or Close is called.
func New(ctx context.Context, log *zap.SugaredLogger) *Loop {
	loopCtx, cancel := context.WithCancel(ctx)
	l := &Loop{
		ctx:    loopCtx,
		cancel: cancel,
		logger: logger.OrNop(log),
		wake:   make(chan struct{}, 1),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// Context is cancelled when the loop stops. Work started with Go receives it.
func (l *Loop) Context() context.Context {
	return l.ctx
}

// Post schedules fn to run on the loop. It reports false when the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.pending++
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for its result.
// Do must not be called from a task; the loop would wait on itself.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if !l.Post(func() { result <- fn() }) {
		return errors.Wrap(errors.ErrClosed, "loop")
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ctx.Done():
		return errors.Wrap(errors.ErrClosed, "loop")
	}
}

// Quiesce waits until no task is queued, no Go work is in flight and no
// AfterFunc timer is armed. It must not be called from a task.
func (l *Loop) Quiesce(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.Wrap(errors.ErrClosed, "loop")
	}
	if l.pending == 0 {
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	l.waiters = append(l.waiters, ch)
	l.mu.Unlock()

	select {
	case <-ch:
		if l.ctx.Err() != nil {
			return errors.Wrap(errors.ErrClosed, "loop")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop. Queued tasks that have not started are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	waiters := l.waiters
	l.waiters = nil
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
	for _, ch := range waiters {
		close(ch)
	}
}

// Timer is a pending AfterFunc callback
type Timer struct {
	l *Loop
	t *time.Timer
}

// AfterFunc runs fn on the loop after d. An armed timer counts as pending work.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	l.begin()
	tm := &Timer{l: l}
	tm.t = time.AfterFunc(d, func() {
		l.Post(fn)
		l.end()
	})
	return tm
}

// Stop cancels the timer. It reports whether the callback was prevented from being posted.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	if t.t.Stop() {
		t.l.end()
		return true
	}
	return false
}

// begin and end count work that will eventually post to the loop
func (l *Loop) begin() {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()
}

func (l *Loop) end() {
	l.mu.Lock()
	l.pending--
	var waiters []chan struct{}
	if l.pending == 0 {
		waiters = l.waiters
		l.waiters = nil
	}
	l.mu.Unlock()
	for _, ch := range waiters {
		close(ch)
	}
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.wake:
		}
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			if l.ctx.Err() != nil {
				return
			}
			l.exec(fn)
			l.end()
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorw("Loop task panicked",
				logger.FieldError, fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
