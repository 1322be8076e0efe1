package scanner

import "errors"

var (
	// ErrPermissionDenied is returned by Start when camera access is refused.
	// Devices return it (or wrap it) from Acquire.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrSurfaceUnavailable is returned by Start when the viewfinder surface
	// did not appear within the attach retry window.
	ErrSurfaceUnavailable = errors.New("scanner surface unavailable")

	// ErrBusy is returned by Dispatcher.Submit while another attempt is pending.
	ErrBusy = errors.New("validation already in progress")

	// ErrStopped is returned by Start when Stop was called before scanning began.
	ErrStopped = errors.New("scanner stopped before it started")

	// ErrActive is returned by Start when a scan session is already running.
	ErrActive = errors.New("scanner already active")
)
