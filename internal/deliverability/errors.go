package deliverability

import "errors"

var (
	// ErrCoordinatorClosed is returned by Admit after Close.
	ErrCoordinatorClosed = errors.New("admission coordinator closed")
)
