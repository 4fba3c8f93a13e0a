// Package worker runs update dispatches off the request path.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrQueueFull      = errors.New("dispatch queue is full")
	ErrPoolClosed     = errors.New("dispatch pool is closed")
	ErrPoolNotStarted = errors.New("dispatch pool is not started")
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

type Config struct {
	Workers   int
	QueueSize int
}

type task struct {
	id  string
	run func(ctx context.Context)
}

// Pool is a fixed set of goroutines reading from a bounded queue. Submit
// never blocks; a full queue is reported to the caller.
type Pool struct {
	workers int
	queue   chan task
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewPool(cfg Config, logger *zap.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		workers: cfg.Workers,
		queue:   make(chan task, cfg.QueueSize),
		logger:  logger.With(zap.String("component", "dispatch_pool")),
	}
}

// Start spawns the workers. Tasks receive a context carrying ctx's values
// but not its cancellation, so in-flight work finishes during Stop.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	taskCtx := context.WithoutCancel(ctx)
	p.logger.Info("starting dispatch workers", zap.Int("worker_count", p.workers), zap.Int("queue_size", cap(p.queue)))
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(taskCtx, i)
	}
}

// Submit enqueues fn and returns the task id used in log lines. Tasks are
// only accepted between Start and Stop.
func (p *Pool) Submit(fn func(ctx context.Context)) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return "", ErrPoolClosed
	}
	if !p.started {
		return "", ErrPoolNotStarted
	}

	t := task{id: uuid.NewString(), run: fn}
	select {
	case p.queue <- t:
		p.logger.Debug("task queued", zap.String("task_id", t.id))
		return t.id, nil
	default:
		return "", ErrQueueFull
	}
}

// Stop closes the queue and waits for queued and running tasks, or for ctx.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("all dispatch workers completed")
		return nil
	case <-ctx.Done():
		p.logger.Error("timeout waiting for dispatch workers", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()
	for t := range p.queue {
		p.run(ctx, workerID, t)
	}
}

func (p *Pool) run(ctx context.Context, workerID int, t task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				zap.Int("worker_id", workerID),
				zap.String("task_id", t.id),
				zap.Any("panic", r),
			)
		}
	}()
	t.run(ctx)
}
