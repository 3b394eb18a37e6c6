// Package tasks runs fire-and-forget background work on a small worker pool.
// Submitters get an id for log correlation and nothing else back.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrQueueClosed = errors.New("task queue closed")
	ErrQueueFull   = errors.New("task queue full")
)

// Func is the body of a task. Its error is logged, never returned to the submitter.
type Func func(ctx context.Context) error

type job struct {
	id   string
	name string
	fn   Func
}

type Queue struct {
	jobs    chan job
	workers int
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	started bool
}

func NewQueue(workers, buffer int, logger *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		jobs:    make(chan job, buffer),
		workers: workers,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Submit enqueues fn without waiting for it to run.
func (q *Queue) Submit(name string, fn Func) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrQueueClosed
	}
	j := job{id: uuid.NewString(), name: name, fn: fn}
	select {
	case q.jobs <- j:
		q.logger.Debug("task queued", "task", j.name, "task_id", j.id)
		return j.id, nil
	default:
		return "", fmt.Errorf("%w: dropping %s", ErrQueueFull, name)
	}
}

// Stop refuses new tasks and waits for queued ones to drain. When ctx ends
// first, running tasks are cancelled and ctx's error is returned.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.run(j)
	}
}

func (q *Queue) run(j job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task panicked", "task", j.name, "task_id", j.id, "panic", r)
		}
	}()
	if err := j.fn(q.ctx); err != nil {
		q.logger.Warn("task failed", "task", j.name, "task_id", j.id, "err", err)
		return
	}
	q.logger.Info("task done", "task", j.name, "task_id", j.id, "took", time.Since(start))
}
