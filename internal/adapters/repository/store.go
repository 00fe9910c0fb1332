// Package repository exposes the schedule store to the rest of the service.
// Every call is executed as a job on the storage worker pool.
package repository

import (
	"context"

	"github.com/okian/sportsday/internal/adapters/repository/sqlite"
	"github.com/okian/sportsday/internal/domain/plan"
)

// Store provides read/write access to the schedule, users and sessions.
type Store interface {
	plan.Writer

	AllYears(ctx context.Context) ([]sqlite.Year, error)
	FindEvents(ctx context.Context, f sqlite.EventFilter) ([]sqlite.Event, error)
	GetEvent(ctx context.Context, id string) (sqlite.Event, error)
	SetScores(ctx context.Context, id, scores string) error
	CountEvents(ctx context.Context) (int, error)
	CountYears(ctx context.Context) (int, error)

	FindUserByEmail(ctx context.Context, email string) (sqlite.User, error)
	FindUserByID(ctx context.Context, id int64) (sqlite.User, error)
	GetOrCreateUser(ctx context.Context, email string) (sqlite.User, error)
	InsertUser(ctx context.Context, u sqlite.User) (sqlite.User, error)
	AllUsers(ctx context.Context) ([]sqlite.User, error)
	UpdateUser(ctx context.Context, u sqlite.User) error
	DeleteUser(ctx context.Context, id int64) error
	CountUsers(ctx context.Context) (int, error)

	NewSession(ctx context.Context, u sqlite.User) (sqlite.Session, error)
	VerifySession(ctx context.Context, id string) (sqlite.VerifiedSession, error)
	DeleteSession(ctx context.Context, id string) error

	Query(ctx context.Context, query string) (sqlite.QueryResult, error)
}

var _ Store = (*sqlite.Store)(nil)
