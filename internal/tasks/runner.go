// Package tasks runs fire-and-forget side effects off the critical path.
// Submitted work never blocks the caller and its failures are logged, never
// propagated. Abandoning queued work on shutdown is acceptable; everything
// submitted here is recoverable on the next message.
package tasks

import (
	"context"

	"go.uber.org/zap"
)

type task struct {
	name string
	fn   func() error
}

// Runner executes submitted tasks on a single background goroutine.
type Runner struct {
	ch     chan task
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewRunner creates a runner with the given queue capacity.
func NewRunner(queueSize int, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		ch:     make(chan task, queueSize),
		logger: logger,
	}
}

// Start begins executing submitted tasks.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)
}

// Stop stops the runner. Queued tasks are abandoned.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Submit enqueues a task. It never blocks: when the queue is full the task
// is dropped and logged.
func (r *Runner) Submit(name string, fn func() error) {
	select {
	case r.ch <- task{name: name, fn: fn}:
	default:
		r.logger.Warn("task queue full, dropping", zap.String("task", name))
	}
}

func (r *Runner) loop(ctx context.Context) {
	for {
		select {
		case t := <-r.ch:
			if err := t.fn(); err != nil {
				r.logger.Warn("background task failed", zap.String("task", t.name), zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
