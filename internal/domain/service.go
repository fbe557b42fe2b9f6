package domain

import (
	"context"
	"fmt"
)

// JobService orchestrates batch job bookkeeping.
type JobService struct {
	repo JobRepository
}

// NewJobService creates a new JobService.
func NewJobService(repo JobRepository) *JobService {
	return &JobService{repo: repo}
}

// Record stores a freshly submitted batch.
func (s *JobService) Record(ctx context.Context, h JobHandle, source string, documents int) (*Job, error) {
	if h.Index == "" {
		return nil, fmt.Errorf("record job %d: empty index", h.ID)
	}
	return s.repo.Create(ctx, h, source, documents)
}

// Get retrieves a job by ID.
func (s *JobService) Get(ctx context.Context, id int64) (*Job, error) {
	return s.repo.Get(ctx, id)
}

// GetPending retrieves unsettled jobs up to the limit.
func (s *JobService) GetPending(ctx context.Context, limit int) ([]Job, error) {
	return s.repo.FindPending(ctx, limit)
}

// Settle moves a job to its terminal status. A job settles exactly once.
func (s *JobService) Settle(ctx context.Context, id int64, status JobStatus, reason string) error {
	if !status.Terminal() {
		return fmt.Errorf("settle job %d: %q is not terminal", id, status)
	}
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !job.CanTransition() {
		return fmt.Errorf("settle job %d as %s: %w (%s)", id, status, ErrJobSettled, job.Status)
	}
	return s.repo.Settle(ctx, id, status, reason)
}

// RecoverStale abandons jobs of index a previous run left pending.
func (s *JobService) RecoverStale(ctx context.Context, index string) (int64, error) {
	return s.repo.RecoverStale(ctx, index)
}
