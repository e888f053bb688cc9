package stroke

import "errors"

// Sentinel kinds for stroke geometry errors.
var (
	ErrInvalidInput    = errors.New("invalid stroke input")
	ErrInvalidTemplate = errors.New("invalid character template")
)
