package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound          = errors.New("learner not found")
	ErrInvalidLimit      = errors.New("invalid limit")
	ErrUnsupportedEngine = errors.New("unsupported store engine")
	ErrStoreClosed       = errors.New("store closed")
)
