// Package async provides helpers for bounded parallel task execution
// during provisioning.
package async

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is a named asynchronous operation.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunBounded executes tasks with at most limit running concurrently.
// The first error cancels the remaining tasks and is returned.
func RunBounded(ctx context.Context, limit int, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, task := range tasks {
		g.Go(func() error {
			return task.Func(ctx)
		})
	}

	return g.Wait()
}
