package worker

import "errors"

// Sentinel kinds for pool submission.
var (
	ErrQueueFull      = errors.New("storage queue full")
	ErrPoolClosed     = errors.New("worker pool closed")
	ErrPoolNotStarted = errors.New("worker pool not started")
	ErrJobPanicked    = errors.New("job panicked")
)
