// Package workqueue runs batches of independent tasks across a fixed-size
// worker pool. The scan orchestrator uses it to fan pair comparisons out
// over a handful of goroutines with a barrier at the end.
package workqueue

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is one unit of work. Tasks must be independent of each other; the
// pool gives no ordering guarantees within a batch.
type Task interface {
	// Name returns a short label for logging.
	Name() string

	// Execute runs the task. The context is cancelled when the batch is
	// abandoned.
	Execute(ctx context.Context) error
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

func (t TaskFunc) Name() string { return t.Label }

func (t TaskFunc) Execute(ctx context.Context) error { return t.Fn(ctx) }

// Pool executes task batches with bounded concurrency.
type Pool struct {
	workers int
	logger  *zap.Logger
}

// New creates a pool that runs at most workers tasks concurrently.
func New(workers int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		logger:  logger.Named("workqueue"),
	}
}

// Run executes all tasks and blocks until every task has finished or the
// context is cancelled. It returns the first error observed; remaining
// queued tasks are skipped once the context is done, but tasks already
// running are always allowed to finish (the barrier holds either way).
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	queue := make(chan Task)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var firstErr error

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				if err := task.Execute(ctx); err != nil {
					p.logger.Warn("Task failed",
						zap.String("task", task.Name()),
						zap.Error(err))
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			mu.Lock()
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			mu.Unlock()
			close(queue)
			wg.Wait()
			return firstErr
		case queue <- task:
		}
	}
	close(queue)
	wg.Wait()

	return firstErr
}
