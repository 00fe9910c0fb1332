package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/sportsday/internal/adapters/mq/queue"
	"github.com/okian/sportsday/pkg/logger"
	"github.com/okian/sportsday/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Enqueuer is the producing side of the job queue.
type Enqueuer interface {
	Queue
	Enqueue(ctx context.Context, j *queue.Job) bool
	Close() error
}

// Pool runs a fixed number of workers over a job queue and lets callers
// submit work and wait for its result.
type Pool struct {
	workers []*InMemoryWorker
	queue   Enqueuer

	mu      sync.RWMutex
	started bool
	stopped bool

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers reading from q.
// A count below one is raised to one.
func NewPool(workerCount int, q Enqueuer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}

	probe := &InMemoryWorker{}
	for _, opt := range opts {
		opt(probe)
	}
	pool.logger = probe.logger
	if pool.logger == nil {
		pool.logger = logger.Get().Named("worker-pool")
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{}, opts...)
		workerOpts = append(workerOpts, WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Submit queues fn and waits for a worker to run it. It returns ErrQueueFull
// when the queue has no room, ErrPoolClosed after shutdown, and ctx.Err()
// if ctx ends before the result arrives.
func (p *Pool) Submit(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	if !p.started {
		p.mu.RUnlock()
		return ErrPoolNotStarted
	}

	job := queue.NewJob(ctx, op, fn)
	ok := p.queue.Enqueue(ctx, job)
	p.mu.RUnlock()
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrQueueFull, op)
	}

	select {
	case err := <-job.Done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown closes the queue, lets workers drain queued jobs and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if !started {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
		}
	}
	return nil
}
