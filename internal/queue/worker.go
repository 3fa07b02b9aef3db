package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handler processes one claimed item. A non-nil error reports the
// attempt as failed and drives the backoff schedule.
type Handler func(ctx context.Context, item Item) error

// Worker polls the queue and dispatches claimed items to handlers
// registered per kind. Draining is rate limited so a deep backlog
// cannot starve the process.
type Worker struct {
	queue    *Queue
	handlers map[string]Handler
	interval time.Duration
	limiter  *rate.Limiter

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}

	logger *zap.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithPollInterval sets how often the worker checks for claimable
// items. Defaults to 500ms.
func WithPollInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) {
		w.interval = interval
	}
}

// WithRateLimit caps how many items the worker processes per second.
// Defaults to 10/s with a burst of 5.
func WithRateLimit(perSecond float64, burst int) WorkerOption {
	return func(w *Worker) {
		w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewWorker creates a worker for the queue. Call Register before
// Start; items of an unregistered kind fail their attempt.
func NewWorker(q *Queue, logger *zap.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		queue:    q,
		handlers: make(map[string]Handler),
		interval: 500 * time.Millisecond,
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register installs the handler for a job kind, replacing any
// previous one. Not safe to call after Start.
func (w *Worker) Register(kind string, h Handler) {
	w.handlers[kind] = h
}

// Start begins the background poll loop. Idempotent in the sense that
// starting a running worker returns an error without spawning a
// second loop.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})

	w.logger.Info("queue worker started",
		zap.Duration("poll_interval", w.interval),
	)
	go w.run(ctx)
	return nil
}

// Stop signals the loop to exit and waits for it to finish. Stopping
// a stopped worker is a no-op.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("queue worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain claims and processes items until the queue has nothing
// claimable or the context ends.
func (w *Worker) drain(ctx context.Context) {
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		item, ok := w.queue.ClaimNext()
		if !ok {
			return
		}
		w.process(ctx, item)

		select {
		case <-w.stopCh:
			return
		default:
		}
	}
}

func (w *Worker) process(ctx context.Context, item Item) {
	err := w.invoke(ctx, item)
	if err != nil {
		if reportErr := w.queue.ReportFailure(item.ID, err); reportErr != nil {
			w.logger.Error("failed to report failure",
				zap.String("id", item.ID),
				zap.Error(reportErr),
			)
		}
		w.logger.Debug("item attempt failed",
			zap.String("id", item.ID),
			zap.String("kind", item.Kind),
			zap.Error(err),
		)
		return
	}
	if reportErr := w.queue.ReportSuccess(item.ID); reportErr != nil {
		w.logger.Error("failed to report success",
			zap.String("id", item.ID),
			zap.Error(reportErr),
		)
	}
}

// invoke runs the handler with panic containment so one bad job
// cannot take down the loop.
func (w *Worker) invoke(ctx context.Context, item Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	h, ok := w.handlers[item.Kind]
	if !ok {
		return fmt.Errorf("no handler registered for kind %q", item.Kind)
	}
	return h(ctx, item)
}
