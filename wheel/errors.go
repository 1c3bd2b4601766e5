package wheel

import "errors"

// Scheduling-input errors, returned (never panicked) per spec §7.
var (
	ErrNonPositiveDuration = errors.New("wheel: duration must be positive")
	ErrNilCallback         = errors.New("wheel: callback must not be nil")
	ErrStopped             = errors.New("wheel: wheel is stopped")
)

// ErrTimerNotFound is returned by operations that look a TimerId up by
// index and find nothing — this is not itself an error condition for
// Cancel (see Cancel's doc), only for APIs that need the entry.
var ErrTimerNotFound = errors.New("wheel: timer id not found")

var errGeometryChange = errors.New("wheel: cannot reconfigure level geometry on a live wheel")
