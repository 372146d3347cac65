package persist

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/topicmap"
)

// Op is one queued store write
type Op struct {
	Name       string
	TopicmapID topicmap.ID
	Run        func(ctx context.Context, s Store) error

	done chan struct{}
}

// WriterConfig bounds the outbound write traffic of one writer
type WriterConfig struct {
	MaxRequestsPerSecond float64
	QueueSize            int
}

// DefaultWriterConfig matches the persist.* configuration defaults
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{MaxRequestsPerSecond: 50, QueueSize: 256}
}

// Writer applies ops to a store one at a time, in submission order, paced by a rate limiter.
type Writer struct {
	store   Store
	limiter *rate.Limiter
	queue   chan Op
	logger  *zap.SugaredLogger
	onError func(Op, error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewWriter starts a writer for store
func NewWriter(store Store, cfg WriterConfig, log *zap.SugaredLogger) *Writer {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultWriterConfig().QueueSize
	}
	limit := rate.Inf
	burst := 1
	if cfg.MaxRequestsPerSecond > 0 {
		limit = rate.Limit(cfg.MaxRequestsPerSecond)
		burst = int(cfg.MaxRequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		store:   store,
		limiter: rate.NewLimiter(limit, burst),
		queue:   make(chan Op, cfg.QueueSize),
		logger:  logger.OrNop(log),
		ctx:     ctx,
		cancel:  cancel,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// OnError registers a callback for failed writes. Must be called before the first Submit.
func (w *Writer) OnError(fn func(Op, error)) {
	w.onError = fn
}

// Submit queues op without blocking
func (w *Writer) Submit(op Op) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errors.Wrapf(errors.ErrClosed, "writer: %s", op.Name)
	}
	select {
	case w.queue <- op:
		return nil
	default:
		return errors.Newf("write queue full, dropping %s for topicmap %d", op.Name, op.TopicmapID)
	}
}

// Flush waits until every op submitted before the call has been applied
func (w *Writer) Flush(ctx context.Context) error {
	done := make(chan struct{})
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return errors.Wrap(errors.ErrClosed, "writer")
	}
	select {
	case w.queue <- Op{Name: "flush", done: done}:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting ops, applies those already queued and stops the writer
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
	w.cancel()
	return nil
}

func (w *Writer) run() {
	defer w.wg.Done()
	for op := range w.queue {
		if op.done != nil {
			close(op.done)
			continue
		}
		if err := w.limiter.Wait(w.ctx); err != nil {
			w.fail(op, errors.Wrap(err, "rate limiter"))
			continue
		}
		if err := op.Run(w.ctx, w.store); err != nil {
			w.fail(op, err)
			continue
		}
		w.logger.Debugw("Store write applied",
			logger.FieldOperation, op.Name,
			logger.FieldTopicmapID, op.TopicmapID,
		)
	}
}

func (w *Writer) fail(op Op, err error) {
	w.logger.Warnw("Store write failed",
		logger.FieldOperation, op.Name,
		logger.FieldTopicmapID, op.TopicmapID,
		logger.FieldError, err,
	)
	if w.onError != nil {
		w.onError(op, err)
	}
}
