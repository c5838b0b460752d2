package dispatch

import "errors"

var (
	// ErrAlreadyRunning is returned by Start on a dispatcher that has a run
	// in flight.
	ErrAlreadyRunning = errors.New("dispatcher already running")
)
