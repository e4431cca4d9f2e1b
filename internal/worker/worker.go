// Package worker runs feed jobs on a fixed number of goroutines.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrPoolStopped = errors.New("worker pool stopped")

type ProcessFunc[T any] func(ctx context.Context, job T) error

// ErrorFunc is told about every job whose processor returned an error.
type ErrorFunc[T any] func(job T, err error)

type WorkerPool[T any] struct {
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	onError    ErrorFunc[T]
	log        *slog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewWorkerPool[T any](numWorkers, bufferSize int, processor ProcessFunc[T], log *slog.Logger) *WorkerPool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &WorkerPool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
		log:        log,
	}
}

// OnError registers a hook for failed jobs. Call before Start.
func (wp *WorkerPool[T]) OnError(fn ErrorFunc[T]) {
	wp.onError = fn
}

func (wp *WorkerPool[T]) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// worker runs until Stop closes the queue. Jobs still queued when ctx is
// cancelled are processed with a context that keeps ctx's values but not its
// cancellation.
func (wp *WorkerPool[T]) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	jobCtx := context.WithoutCancel(ctx)
	for job := range wp.jobs {
		if err := wp.processor(jobCtx, job); err != nil {
			wp.log.Error("job failed", "worker", id, "error", err)
			if wp.onError != nil {
				wp.onError(job, err)
			}
		}
	}
}

// Submit queues job, blocking while the buffer is full. It gives up when ctx
// is done or the pool has been stopped.
func (wp *WorkerPool[T]) Submit(ctx context.Context, job T) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case wp.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the queue and waits until every queued job has been processed.
// Safe to call twice.
func (wp *WorkerPool[T]) Stop() {
	wp.mu.Lock()
	if !wp.stopped {
		wp.stopped = true
		close(wp.jobs)
	}
	wp.mu.Unlock()
	wp.wg.Wait()
}
