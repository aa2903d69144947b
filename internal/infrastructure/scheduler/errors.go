package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when the trigger configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrRunInProgress is returned when a manual run overlaps a running pass
	ErrRunInProgress = errors.New("reconciliation pass already in progress")
)
