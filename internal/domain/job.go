package domain

import "time"

// JobStatus represents the state of a batch submitted to an async store.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusAbandoned JobStatus = "abandoned"
)

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusAbandoned
}

// JobHandle identifies a submitted batch on the remote store.
type JobHandle struct {
	ID          int64
	Index       string
	SubmittedAt time.Time
}

// Job is the local record of a submitted batch.
type Job struct {
	ID          int64
	RemoteID    int64
	Index       string
	Source      string
	Documents   int
	Status      JobStatus
	Error       string
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// Handle returns the remote handle for the job.
func (j *Job) Handle() JobHandle {
	return JobHandle{ID: j.RemoteID, Index: j.Index, SubmittedAt: j.SubmittedAt}
}

// CanTransition returns true while the job has not settled.
func (j *Job) CanTransition() bool {
	return !j.Status.Terminal()
}
