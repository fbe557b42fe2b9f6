package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cwygoda/get/internal/domain"
)

// Outcomes reported to an Observer.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRequeued  = "requeued"
	OutcomeDropped   = "dropped"
	OutcomeExhausted = "exhausted"
	OutcomeFailed    = "failed"
)

// Handler processes one task. Errors wrapping domain.ErrRemoteUnavailable
// requeue the task, errors wrapping domain.ErrLocalResource drop it, and any
// other error fails the whole stage.
type Handler[T any] func(ctx context.Context, task T) error

// RetryPolicy bounds requeues of recoverable failures.
type RetryPolicy struct {
	// MaxAttempts caps how often a task is handled. Zero means no cap.
	MaxAttempts int
}

func (p RetryPolicy) allows(attempt int) bool {
	return p.MaxAttempts <= 0 || attempt < p.MaxAttempts
}

// Observer receives one call per handled task.
type Observer interface {
	TaskDone(stage, outcome string)
}

// Options configures a pool run.
type Options struct {
	Stage    string
	Logger   *slog.Logger
	Retry    RetryPolicy
	Observer Observer
}

// Result counts what happened to the tasks of one run.
type Result struct {
	Succeeded int64
	Requeued  int64
	Dropped   int64
	Exhausted int64
}

// Failed returns how many tasks ended without success.
func (r Result) Failed() int64 {
	return r.Dropped + r.Exhausted
}

type counters struct {
	succeeded, requeued, dropped, exhausted atomic.Int64
}

// Run starts size workers against q and returns once every worker has seen
// the queue empty. A requeue happens on a live worker, which pops again
// before exiting, so requeued tasks are never lost.
func Run[T any](ctx context.Context, q *Queue[T], size int, h Handler[T], opts Options) (Result, error) {
	if size <= 0 {
		size = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("stage", opts.Stage)

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < size; i++ {
		id := i
		g.Go(func() error {
			return work(gctx, q, h, opts, logger.With("worker", id), &c)
		})
	}
	err := g.Wait()

	res := Result{
		Succeeded: c.succeeded.Load(),
		Requeued:  c.requeued.Load(),
		Dropped:   c.dropped.Load(),
		Exhausted: c.exhausted.Load(),
	}
	return res, err
}

func work[T any](ctx context.Context, q *Queue[T], h Handler[T], opts Options, logger *slog.Logger, c *counters) error {
	observe := func(outcome string) {
		if opts.Observer != nil {
			opts.Observer.TaskDone(opts.Stage, outcome)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, ok := q.pop()
		if !ok {
			return nil
		}

		err := h(ctx, e.task)
		switch {
		case err == nil:
			c.succeeded.Add(1)
			observe(OutcomeSucceeded)

		case domain.IsRecoverable(err):
			if !opts.Retry.allows(e.attempt) {
				logger.Error("giving up on task", "task", e.task, "attempt", e.attempt, "err", err)
				c.exhausted.Add(1)
				observe(OutcomeExhausted)
				continue
			}
			logger.Warn("requeueing task", "task", e.task, "attempt", e.attempt, "err", err)
			q.push(entry[T]{task: e.task, attempt: e.attempt + 1})
			c.requeued.Add(1)
			observe(OutcomeRequeued)

		case domain.IsDroppable(err):
			logger.Error("dropping task", "task", e.task, "err", err)
			c.dropped.Add(1)
			observe(OutcomeDropped)

		default:
			observe(OutcomeFailed)
			return fmt.Errorf("%s task %v: %w", opts.Stage, e.task, err)
		}
	}
}
