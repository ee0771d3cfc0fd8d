// Package paralleltask implements the structured-concurrency scope for
// Category-B work: tasks that receive a FrameSnapshot by value and a
// writable per-task output region, run on the thread pool, and join at a
// barrier.
package paralleltask

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/frameorc/snapshot"
	"github.com/lixenwraith/frameorc/threadpool"
)

// Input is what every parallel task receives: the published FrameSnapshot
// for this frame, passed by value per the "no shared mutable game state"
// contract.
type Input struct {
	Snapshot snapshot.FrameSnapshot
}

// Task is a unit of Category-B work. It must not mutate shared game
// state; all output is returned and integrated later, during PostParallel.
type Task func(ctx context.Context, in Input) (any, error)

// Result pairs a task's name with its outcome. Ordering within a Group's
// result vector is arbitrary and must not be relied on.
type Result struct {
	Name  string
	Value any
	Err   error
}

// Group is a structured concurrency scope bounded by two phases: opened at
// ParallelWork start, closed at the join barrier. Cancellation propagates
// to every task's context; cancelled tasks' results are dropped by the
// caller, never integrated.
type Group struct {
	pool *threadpool.Pool

	mu      sync.Mutex
	results []Result
}

// NewGroup constructs a Group bound to the given worker pool.
func NewGroup(pool *threadpool.Pool) *Group {
	return &Group{pool: pool}
}

// Run schedules one task per named entry on the thread pool and blocks
// until every task has completed (the join barrier). A task's panic or
// error is captured as a Result with a non-nil Err and does not cancel
// siblings. If ctx is cancelled, remaining tasks observe it at their next
// check and are expected to unwind promptly; their results are still
// collected but marked cancelled via ctx.Err().
func (g *Group) Run(ctx context.Context, in Input, tasks map[string]Task) []Result {
	g.mu.Lock()
	g.results = g.results[:0]
	g.mu.Unlock()

	// errgroup's context is only used for cancellation signaling; a task's
	// own error is never returned into the group so one failure can't
	// cancel its siblings. Each task still runs on the shared worker pool
	// rather than its own goroutine, so ParallelWork fan-out is bounded by
	// the same pool CommandRecord competes for.
	eg, egCtx := errgroup.WithContext(ctx)
	for name, task := range tasks {
		name, task := name, task
		eg.Go(func() error {
			fut := threadpool.Submit(g.pool, egCtx, func(taskCtx context.Context) (any, error) {
				return g.runOne(taskCtx, in, name, task)
			})
			value, err := fut.Wait()
			g.mu.Lock()
			g.results = append(g.results, Result{Name: name, Value: value, Err: err})
			g.mu.Unlock()
			return nil // a task's own error never cancels siblings
		})
	}
	_ = eg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Result, len(g.results))
	copy(out, g.results)
	return out
}

func (g *Group) runOne(ctx context.Context, in Input, name string, task Task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panicked: %v", name, r)
		}
	}()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return task(ctx, in)
}
