// Package workpool runs independent tasks with bounded parallelism. The
// multi-candidate evaluator uses it to fan out EXPLAIN checks without
// saturating the connection pool.
package workpool

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Pool bounds how many tasks run at once via a semaphore channel.
type Pool struct {
	maxConcurrent int
	logger        *zap.Logger
}

// New creates a pool. maxConcurrent below 1 defaults to 4.
func New(maxConcurrent int, logger *zap.Logger) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 4
	}
	return &Pool{maxConcurrent: maxConcurrent, logger: logger.Named("workpool")}
}

// Task is one unit of work.
type Task[T any] struct {
	ID  string
	Run func(ctx context.Context) (T, error)
}

// Result pairs a task's outcome with its ID. Results arrive in completion
// order, not submission order.
type Result[T any] struct {
	ID    string
	Value T
	Err   error
}

// Run submits all tasks and returns a channel that yields one Result per
// task, then closes. The caller may stop reading early (a soft deadline);
// in-flight tasks keep running to completion so they can release whatever
// resources they hold, and their late results are dropped into the buffered
// channel rather than blocking them.
func Run[T any](ctx context.Context, pool *Pool, tasks []Task[T]) <-chan Result[T] {
	results := make(chan Result[T], len(tasks))
	if len(tasks) == 0 {
		close(results)
		return results
	}

	sem := make(chan struct{}, pool.maxConcurrent)
	var wg sync.WaitGroup

	for _, task := range tasks {
		wg.Add(1)
		go func(task Task[T]) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				var zero T
				results <- Result[T]{ID: task.ID, Value: zero, Err: ctx.Err()}
				return
			}

			value, err := task.Run(ctx)
			results <- Result[T]{ID: task.ID, Value: value, Err: err}
		}(task)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// Collect drains the channel into a slice. Convenience for callers without a
// deadline of their own.
func Collect[T any](results <-chan Result[T]) []Result[T] {
	var out []Result[T]
	for r := range results {
		out = append(out, r)
	}
	return out
}
