package schedule

import "errors"

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	// ErrConfigParse marks a document that is malformed, incomplete or inconsistent.
	ErrConfigParse = errors.New("config parse error")
	// ErrIO marks a schedule file that could not be read.
	ErrIO = errors.New("config io error")
)
