package sqlite

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrReadOnly  = errors.New("only read-only statements are allowed")
)
