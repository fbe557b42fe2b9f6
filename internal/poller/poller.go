// Package poller submits batches to an asynchronous store and waits for them
// to settle with exponential backoff.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwygoda/get/internal/domain"
)

// Options configures the backoff schedule.
type Options struct {
	// InitialDelay is the wait before the first status query.
	// Default: 250ms
	InitialDelay time.Duration

	// Factor multiplies the delay after every pending status.
	// Default: 2
	Factor float64

	// Ceiling is the accumulated wait after which the poller gives up.
	// Default: 60s
	Ceiling time.Duration
}

// DefaultOptions returns the standard schedule.
func DefaultOptions() Options {
	return Options{
		InitialDelay: 250 * time.Millisecond,
		Factor:       2,
		Ceiling:      60 * time.Second,
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Poller drives one batch at a time. It holds no per-batch state, so a
// single Poller may serve concurrent callers.
type Poller struct {
	store  domain.BatchStore
	opts   Options
	sleep  SleepFunc
	now    func() time.Time
	logger *slog.Logger
}

// New creates a poller. Zero fields of opts take their defaults.
func New(store domain.BatchStore, opts Options, logger *slog.Logger) *Poller {
	def := DefaultOptions()
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = def.InitialDelay
	}
	if opts.Factor < 1 {
		opts.Factor = def.Factor
	}
	if opts.Ceiling <= 0 {
		opts.Ceiling = def.Ceiling
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		store:  store,
		opts:   opts,
		sleep:  Sleep,
		now:    time.Now,
		logger: logger,
	}
}

// WithSleep replaces the sleep function, for tests.
func (p *Poller) WithSleep(fn SleepFunc) *Poller {
	p.sleep = fn
	return p
}

// Submit sends docs to index and returns the job handle.
func (p *Poller) Submit(ctx context.Context, index string, docs []domain.Document) (domain.JobHandle, error) {
	id, err := p.store.AddDocuments(ctx, index, docs)
	if err != nil {
		return domain.JobHandle{}, fmt.Errorf("submit %d documents to %s: %w", len(docs), index, err)
	}
	h := domain.JobHandle{ID: id, Index: index, SubmittedAt: p.now()}
	p.logger.Info("submitted batch", "job", id, "index", index, "documents", len(docs))
	return h, nil
}

// Await polls the job until it settles or the ceiling is reached. It returns
// StatusSucceeded, StatusFailed or StatusAbandoned. An unknown status
// returns an error wrapping domain.ErrUnknownJobStatus.
func (p *Poller) Await(ctx context.Context, h domain.JobHandle) (domain.JobStatus, error) {
	delay := p.opts.InitialDelay
	var elapsed time.Duration
	for {
		if err := p.sleep(ctx, delay); err != nil {
			return "", err
		}
		p.logger.Debug("polling job", "job", h.ID, "elapsed", elapsed)

		status, err := p.store.JobStatus(ctx, h.Index, h.ID)
		switch {
		case err == nil:
		case domain.IsRecoverable(err):
			p.logger.Warn("job status unavailable", "job", h.ID, "err", err)
			status = domain.StatusPending
		default:
			return "", fmt.Errorf("poll job %d: %w", h.ID, err)
		}

		switch status {
		case domain.StatusSucceeded:
			p.logger.Info("job succeeded", "job", h.ID, "index", h.Index)
			return domain.StatusSucceeded, nil
		case domain.StatusFailed:
			p.logger.Error("job failed", "job", h.ID, "index", h.Index)
			return domain.StatusFailed, nil
		case domain.StatusPending:
		default:
			return "", fmt.Errorf("job %d: %w %q", h.ID, domain.ErrUnknownJobStatus, status)
		}

		elapsed += delay
		if elapsed >= p.opts.Ceiling {
			p.logger.Warn("job taking longer than expected, giving up on checking it",
				"job", h.ID, "index", h.Index, "elapsed", elapsed)
			return domain.StatusAbandoned, nil
		}
		delay = time.Duration(float64(delay) * p.opts.Factor)
	}
}
