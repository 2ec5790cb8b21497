package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned by control operations addressing an ID the
	// store does not hold.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobBusy is returned by RunNow when the job already has a firing in
	// flight.
	ErrJobBusy = errors.New("job is already running")

	// ErrUnknownScheduleType signals a stored schedule whose type tag is not
	// recognized. The resolver still returns a usable fallback fire time
	// alongside it; callers treat it as a warning, not a failure.
	ErrUnknownScheduleType = errors.New("unknown schedule type")

	// ErrUnknownIntervalUnit is the interval-unit analogue of
	// ErrUnknownScheduleType.
	ErrUnknownIntervalUnit = errors.New("unknown interval unit")
)

// ValidationError reports a malformed job descriptor at creation time.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid job: %s: %s", e.Field, e.Reason)
}
