package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrInvalidScores = errors.New("invalid scores")
	ErrLoginDisabled = errors.New("login disabled")
	ErrBadLogin      = errors.New("invalid email or secret")
	ErrInvalidUser   = errors.New("invalid user")
)
