// Package worker runs storage jobs from the queue on a bounded set of goroutines.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/sportsday/internal/adapters/mq/queue"
	"github.com/okian/sportsday/pkg/logger"
	"github.com/okian/sportsday/pkg/metrics"
)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan *queue.Job
}

// Worker processes jobs until its queue closes or it is shut down.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue Queue
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job with its own context and reports the result on job.Done.
func (w *InMemoryWorker) process(job *queue.Job) {
	start := time.Now()
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	// Callers that gave up while the job was queued get their context error.
	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("worker", "context_cancelled")
		job.Done <- err
		return
	}

	metrics.AddWorkerBusy(1)
	err := w.run(ctx, job)
	metrics.AddWorkerBusy(-1)

	latency := float64(time.Since(job.EnqueuedAt).Milliseconds())
	metrics.RecordStorageJob(job.Op, err, latency)
	if err != nil {
		w.logger.Debug(ctx, "job failed",
			logger.String("op", job.Op),
			logger.String("jobID", job.ID),
			logger.Float64("elapsedMs", float64(time.Since(start).Milliseconds())),
			logger.Error(err),
		)
	}
	job.Done <- err
}

// run invokes the job, converting a panic into an error so the worker survives.
func (w *InMemoryWorker) run(ctx context.Context, job *queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "panic")
			w.logger.Error(ctx, "job panicked", logger.String("op", job.Op), logger.Any("panic", r))
			err = fmt.Errorf("%w: %s: %v", ErrJobPanicked, job.Op, r)
		}
	}()
	return job.Run(ctx)
}
