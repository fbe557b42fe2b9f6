package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteUnavailable marks failures worth retrying: timeouts,
	// connection errors, 5xx and 429 responses.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrProtocol marks responses that violate the expected contract.
	ErrProtocol = errors.New("protocol violation")

	// ErrUnknownJobStatus is returned when a batch store reports a status
	// outside the known set. It aborts the run.
	ErrUnknownJobStatus = fmt.Errorf("%w: unknown job status", ErrProtocol)

	// ErrLocalResource marks local failures (permissions, disk space) that a
	// retry will not fix. The task is dropped, the run goes on.
	ErrLocalResource = errors.New("local resource failure")

	// ErrMalformedFeed marks a feed that cannot be fetched or parsed. Other
	// feeds of the run are still ingested.
	ErrMalformedFeed = errors.New("malformed feed")

	ErrJobNotFound    = errors.New("job not found")
	ErrJobSettled     = errors.New("job already settled")
	ErrNoSource       = errors.New("no source for root identifier")
	ErrNoGroups       = errors.New("no groups to select from")
	ErrInvalidGroup   = errors.New("invalid group selection")
	ErrStoreUnhealthy = errors.New("batch store unhealthy")
)

// IsRecoverable reports whether err should requeue its task.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}

// IsDroppable reports whether err should drop its task without failing the stage.
func IsDroppable(err error) bool {
	return errors.Is(err, ErrLocalResource) || errors.Is(err, ErrMalformedFeed)
}
