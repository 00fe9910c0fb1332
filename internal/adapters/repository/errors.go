package repository

import "github.com/okian/sportsday/internal/adapters/repository/sqlite"

// Sentinel kinds callers match with errors.Is, regardless of backend.
var (
	ErrNotFound  = sqlite.ErrNotFound
	ErrDuplicate = sqlite.ErrDuplicate
	ErrReadOnly  = sqlite.ErrReadOnly
)
