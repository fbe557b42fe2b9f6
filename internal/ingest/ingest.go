// Package ingest feeds podcast episodes into a search index, one batch per
// feed, and waits for every batch to settle.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/cwygoda/get/internal/adapter/feed"
	"github.com/cwygoda/get/internal/domain"
	"github.com/cwygoda/get/internal/origin"
	"github.com/cwygoda/get/internal/poller"
	"github.com/cwygoda/get/internal/worker"
)

// StageFeeds names the feed stage in logs and metrics and StageResume the
// polling of batches an earlier run left pending. StageBatch reports the
// terminal status of each submitted batch.
const (
	StageFeeds  = "feeds"
	StageResume = "resume"
	StageBatch  = "batch"
)

// resumeLimit caps how many pending batches are polled again at start.
// Older ones are abandoned.
const resumeLimit = 100

// DefaultIndex is the index episodes are written to.
const DefaultIndex = "episodes"

// Options configures an ingest run.
type Options struct {
	Workers  int
	Index    string
	Retry    worker.RetryPolicy
	Logger   *slog.Logger
	Observer worker.Observer
}

// Summary reports one ingest run.
type Summary struct {
	Feeds     int
	Unchanged int64
	Submitted int64
	Succeeded int64
	Failed    int64
	Abandoned int64
	Episodes  int64
	Resumed   int64
	Result    worker.Result
}

// Service ingests feeds.
type Service struct {
	store  domain.BatchStore
	poller *poller.Poller
	jobs   *domain.JobService
	marks  domain.WatermarkStore
	pool   *origin.Pool
	opts   Options
	logger *slog.Logger
}

// NewService creates an ingest service.
func NewService(store domain.BatchStore, p *poller.Poller, jobs *domain.JobService, marks domain.WatermarkStore, pool *origin.Pool, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Index == "" {
		opts.Index = DefaultIndex
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		poller: p,
		jobs:   jobs,
		marks:  marks,
		pool:   pool,
		opts:   opts,
		logger: logger,
	}
}

type counters struct {
	unchanged, submitted, succeeded, failed, abandoned, episodes atomic.Int64
}

// Run checks the store, then ingests every feed URL. A store that fails its
// health check aborts the run before any feed is fetched.
func (s *Service) Run(ctx context.Context, feeds []string) (Summary, error) {
	sum := Summary{Feeds: len(feeds)}
	defer s.pool.CloseAll()

	if err := s.store.Health(ctx); err != nil {
		return sum, err
	}
	resumed, err := s.resume(ctx)
	sum.Resumed = resumed
	if err != nil {
		return sum, err
	}

	var c counters
	q := worker.NewQueue(feeds...)
	handler := func(ctx context.Context, url string) error {
		return s.ingest(ctx, url, &c)
	}
	res, err := worker.Run(ctx, q, s.opts.Workers, handler, worker.Options{
		Stage:    StageFeeds,
		Logger:   s.logger,
		Retry:    s.opts.Retry,
		Observer: s.opts.Observer,
	})
	sum.Result = res
	sum.Unchanged = c.unchanged.Load()
	sum.Submitted = c.submitted.Load()
	sum.Succeeded = c.succeeded.Load()
	sum.Failed = c.failed.Load()
	sum.Abandoned = c.abandoned.Load()
	sum.Episodes = c.episodes.Load()
	if err != nil {
		return sum, err
	}

	s.logger.Info("ingest done",
		"feeds", sum.Feeds,
		"unchanged", sum.Unchanged,
		"submitted", sum.Submitted,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"abandoned", sum.Abandoned,
	)
	return sum, nil
}

// resume polls the batches of this index an earlier run left pending and
// settles them. A batch that cannot be polled is abandoned, as is anything
// beyond resumeLimit.
func (s *Service) resume(ctx context.Context) (int64, error) {
	pending, err := s.jobs.GetPending(ctx, resumeLimit)
	if err != nil {
		return 0, fmt.Errorf("find pending jobs: %w", err)
	}
	var jobs []domain.Job
	for _, job := range pending {
		if job.Index == s.opts.Index {
			jobs = append(jobs, job)
		}
	}

	var resumed atomic.Int64
	if len(jobs) > 0 {
		s.logger.Info("resuming batches left pending", "jobs", len(jobs))
		handler := func(ctx context.Context, job domain.Job) error {
			logger := s.logger.With("job", job.RemoteID, "podcast", job.Source)
			status, err := s.poller.Await(ctx, job.Handle())
			if ctx.Err() != nil {
				return ctx.Err()
			}
			reason := settleReason(status)
			if err != nil {
				logger.Warn("cannot resume batch, abandoning", "err", err)
				status, reason = domain.StatusAbandoned, fmt.Sprintf("resume failed: %v", err)
			}
			if err := s.jobs.Settle(ctx, job.ID, status, reason); err != nil {
				return fmt.Errorf("%w: settle job %d: %v", domain.ErrLocalResource, job.ID, err)
			}
			s.observe(status)
			resumed.Add(1)
			logger.Info("resumed batch", "status", status)
			return nil
		}
		_, err := worker.Run(ctx, worker.NewQueue(jobs...), s.opts.Workers, handler, worker.Options{
			Stage:    StageResume,
			Logger:   s.logger,
			Observer: s.opts.Observer,
		})
		if err != nil {
			return resumed.Load(), err
		}
	}

	n, err := s.jobs.RecoverStale(ctx, s.opts.Index)
	if err != nil {
		return resumed.Load(), fmt.Errorf("recover stale jobs: %w", err)
	}
	if n > 0 {
		s.logger.Warn("abandoned jobs left pending by an earlier run", "jobs", n)
	}
	return resumed.Load(), nil
}

func settleReason(status domain.JobStatus) string {
	switch status {
	case domain.StatusFailed:
		return "rejected by the index"
	case domain.StatusAbandoned:
		return "still pending after polling gave up"
	}
	return ""
}

func (s *Service) ingest(ctx context.Context, url string, c *counters) error {
	logger := s.logger.With("feed", url)
	logger.Info("fetching feed")

	client, path, err := s.pool.ForURL(url)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedFeed, err)
	}
	data, err := client.Fetch(ctx, path)
	if err != nil {
		if domain.IsRecoverable(err) || ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrMalformedFeed, err)
	}

	f, err := feed.Parse(data, logger)
	if err != nil {
		return err
	}
	logger = logger.With("podcast", f.Title)

	last, err := s.marks.Watermark(ctx, f.Title)
	if err != nil {
		return fmt.Errorf("%w: read watermark: %v", domain.ErrLocalResource, err)
	}
	if f.Updated == 0 {
		logger.Warn("no lastBuildDate found")
	} else if f.Updated <= last {
		logger.Info("no new updates, skipping")
		c.unchanged.Add(1)
		return nil
	}

	if len(f.Episodes) == 0 {
		logger.Info("no episodes to submit", "skipped", f.Skipped)
		return s.advance(ctx, f)
	}
	logger.Info("found episodes", "episodes", len(f.Episodes), "skipped", f.Skipped)

	h, err := s.poller.Submit(ctx, s.opts.Index, f.Episodes)
	if err != nil {
		return err
	}
	c.submitted.Add(1)
	c.episodes.Add(int64(len(f.Episodes)))

	job, err := s.jobs.Record(ctx, h, f.Title, len(f.Episodes))
	if err != nil {
		return fmt.Errorf("%w: record job %d: %v", domain.ErrLocalResource, h.ID, err)
	}
	logger = logger.With("job", h.ID)
	logger.Debug("recorded batch", "record", job.ID)

	status, err := s.poller.Await(ctx, h)
	if err != nil {
		return err
	}
	s.observe(status)

	switch status {
	case domain.StatusSucceeded:
		c.succeeded.Add(1)
	case domain.StatusFailed:
		c.failed.Add(1)
	case domain.StatusAbandoned:
		c.abandoned.Add(1)
		logger.Warn("watermark not advanced, feed will be resubmitted next run")
	}
	if err := s.jobs.Settle(ctx, job.ID, status, settleReason(status)); err != nil {
		return fmt.Errorf("%w: settle job %d: %v", domain.ErrLocalResource, job.ID, err)
	}

	if status != domain.StatusSucceeded {
		return nil
	}
	return s.advance(ctx, f)
}

// advance stores the feed's lastBuildDate so an unchanged feed is skipped
// next time.
func (s *Service) advance(ctx context.Context, f *feed.Feed) error {
	if f.Updated == 0 {
		return nil
	}
	if err := s.marks.SetWatermark(ctx, f.Title, f.Updated); err != nil {
		return fmt.Errorf("%w: store watermark: %v", domain.ErrLocalResource, err)
	}
	return nil
}

func (s *Service) observe(status domain.JobStatus) {
	if s.opts.Observer != nil {
		s.opts.Observer.TaskDone(StageBatch, string(status))
	}
}
