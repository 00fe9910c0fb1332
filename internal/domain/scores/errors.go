package scores

import "errors"

// Sentinel kinds for score validation.
var (
	ErrMalformed   = errors.New("malformed scores")
	ErrUnknownForm = errors.New("unknown form")
	ErrNegative    = errors.New("negative score")
)
