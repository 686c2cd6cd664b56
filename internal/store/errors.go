package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")

	// ErrInvalidStatusTransition is returned when an update would move a job
	// backwards over Pending < Running < {Succeeded, Failed} or change an
	// already terminal status.
	ErrInvalidStatusTransition = errors.New("invalid job status transition")

	// ErrNoPendingJobs is returned by the claim queue when nothing is queued.
	ErrNoPendingJobs = errors.New("no pending jobs")
)
