package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrInvalidAttempt = errors.New("invalid attempt")
	ErrBatchTooLarge  = errors.New("batch too large")
)
