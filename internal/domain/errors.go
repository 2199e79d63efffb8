package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Infrastructure wraps these so callers can branch with errors.Is without
// depending on driver-specific error types.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")

	// ErrQueueFull and ErrClosed tag dispatcher drop logs; Push itself never fails.
	ErrQueueFull = errors.New("notification queue full")
	ErrClosed    = errors.New("closed")
)
