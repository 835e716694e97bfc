// Package fanout runs independent delivery tasks concurrently and joins them.
//
// Tasks never cancel each other: a failing task is recorded in its Result and the
// remaining tasks keep running. Tasks are detached from the caller's cancellation
// so an emergency fan-out completes even if the originating request goes away.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrPanic is wrapped by the Result.Err of a task that panicked.
var ErrPanic = errors.New("task panicked")

// DefaultLimit bounds how many tasks run at once.
const DefaultLimit = 8

// Task is one unit of work. It returns a provider reference on success.
type Task struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// Result is the outcome of one task.
type Result struct {
	Name     string
	Ref      string
	Err      error
	Duration time.Duration
}

// OK reports whether the task succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Group runs tasks with bounded concurrency.
type Group struct {
	limit int
}

// New creates a group that runs at most limit tasks at once.
// A limit <= 0 uses DefaultLimit.
func New(limit int) *Group {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Group{limit: limit}
}

// Run executes every task and waits for all of them.
// Results are returned in task order regardless of completion order.
func (g *Group) Run(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	detached := context.WithoutCancel(ctx)

	var eg errgroup.Group
	eg.SetLimit(g.limit)

	for i, task := range tasks {
		eg.Go(func() error {
			start := time.Now()
			ref, err := run(detached, task)
			results[i] = Result{
				Name:     task.Name,
				Ref:      ref,
				Err:      err,
				Duration: time.Since(start),
			}
			// Errors stay in the result so siblings are never cancelled.
			return nil
		})
	}

	_ = eg.Wait()
	return results
}

// run calls the task, turning a panic into its error. Task goroutines are
// outside the HTTP recovery middleware.
func run(ctx context.Context, task Task) (ref string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ref, err = "", fmt.Errorf("%w: %s: %v", ErrPanic, task.Name, rec)
		}
	}()
	return task.Run(ctx)
}

// Failed counts results with an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
