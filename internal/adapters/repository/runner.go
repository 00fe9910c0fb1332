package repository

import (
	"context"
	"time"

	"github.com/okian/sportsday/internal/adapters/repository/sqlite"
	"github.com/okian/sportsday/internal/domain/plan"
)

// Submitter runs fn on a worker and returns its result.
type Submitter interface {
	Submit(ctx context.Context, op string, fn func(ctx context.Context) error) error
}

// Runner implements Store by submitting every call to a worker pool.
type Runner struct {
	store   Store
	pool    Submitter
	timeout time.Duration
}

var _ Store = (*Runner)(nil)

// NewRunner wraps store so its calls run on pool.
func NewRunner(store Store, pool Submitter, opts ...Option) *Runner {
	r := &Runner{store: store, pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// submit runs fn on the pool, bounded by the runner timeout when one is set.
func (r *Runner) submit(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.pool.Submit(ctx, op, fn)
}

// call submits fn and returns its value once a worker has run it.
func call[T any](ctx context.Context, r *Runner, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.submit(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		// The job may still be running; its result is not read.
		var zero T
		return zero, err
	}
	return out, nil
}

// InTx runs the whole transaction as a single job.
func (r *Runner) InTx(ctx context.Context, fn func(plan.TxWriter) error) error {
	return r.submit(ctx, "apply_plan", func(ctx context.Context) error {
		return r.store.InTx(ctx, fn)
	})
}

// AllYears returns every stored year.
func (r *Runner) AllYears(ctx context.Context) ([]sqlite.Year, error) {
	return call(ctx, r, "all_years", r.store.AllYears)
}

// FindEvents returns events matching f.
func (r *Runner) FindEvents(ctx context.Context, f sqlite.EventFilter) ([]sqlite.Event, error) {
	return call(ctx, r, "find_events", func(ctx context.Context) ([]sqlite.Event, error) {
		return r.store.FindEvents(ctx, f)
	})
}

// GetEvent returns one event.
func (r *Runner) GetEvent(ctx context.Context, id string) (sqlite.Event, error) {
	return call(ctx, r, "get_event", func(ctx context.Context) (sqlite.Event, error) {
		return r.store.GetEvent(ctx, id)
	})
}

// SetScores overwrites an event's scores.
func (r *Runner) SetScores(ctx context.Context, id, scores string) error {
	return r.submit(ctx, "set_scores", func(ctx context.Context) error {
		return r.store.SetScores(ctx, id, scores)
	})
}

// CountEvents returns the number of events.
func (r *Runner) CountEvents(ctx context.Context) (int, error) {
	return call(ctx, r, "count_events", r.store.CountEvents)
}

// CountYears returns the number of years.
func (r *Runner) CountYears(ctx context.Context) (int, error) {
	return call(ctx, r, "count_years", r.store.CountYears)
}

// FindUserByEmail looks a user up by email.
func (r *Runner) FindUserByEmail(ctx context.Context, email string) (sqlite.User, error) {
	return call(ctx, r, "find_user", func(ctx context.Context) (sqlite.User, error) {
		return r.store.FindUserByEmail(ctx, email)
	})
}

// FindUserByID looks a user up by id.
func (r *Runner) FindUserByID(ctx context.Context, id int64) (sqlite.User, error) {
	return call(ctx, r, "find_user", func(ctx context.Context) (sqlite.User, error) {
		return r.store.FindUserByID(ctx, id)
	})
}

// GetOrCreateUser finds or creates a user by email.
func (r *Runner) GetOrCreateUser(ctx context.Context, email string) (sqlite.User, error) {
	return call(ctx, r, "get_or_create_user", func(ctx context.Context) (sqlite.User, error) {
		return r.store.GetOrCreateUser(ctx, email)
	})
}

// InsertUser creates a user.
func (r *Runner) InsertUser(ctx context.Context, u sqlite.User) (sqlite.User, error) {
	return call(ctx, r, "insert_user", func(ctx context.Context) (sqlite.User, error) {
		return r.store.InsertUser(ctx, u)
	})
}

// AllUsers lists users.
func (r *Runner) AllUsers(ctx context.Context) ([]sqlite.User, error) {
	return call(ctx, r, "all_users", r.store.AllUsers)
}

// UpdateUser rewrites a user.
func (r *Runner) UpdateUser(ctx context.Context, u sqlite.User) error {
	return r.submit(ctx, "update_user", func(ctx context.Context) error {
		return r.store.UpdateUser(ctx, u)
	})
}

// DeleteUser removes a user.
func (r *Runner) DeleteUser(ctx context.Context, id int64) error {
	return r.submit(ctx, "delete_user", func(ctx context.Context) error {
		return r.store.DeleteUser(ctx, id)
	})
}

// CountUsers returns the number of users.
func (r *Runner) CountUsers(ctx context.Context) (int, error) {
	return call(ctx, r, "count_users", r.store.CountUsers)
}

// NewSession creates a session for u.
func (r *Runner) NewSession(ctx context.Context, u sqlite.User) (sqlite.Session, error) {
	return call(ctx, r, "new_session", func(ctx context.Context) (sqlite.Session, error) {
		return r.store.NewSession(ctx, u)
	})
}

// VerifySession checks a session id.
func (r *Runner) VerifySession(ctx context.Context, id string) (sqlite.VerifiedSession, error) {
	return call(ctx, r, "verify_session", func(ctx context.Context) (sqlite.VerifiedSession, error) {
		return r.store.VerifySession(ctx, id)
	})
}

// DeleteSession removes a session.
func (r *Runner) DeleteSession(ctx context.Context, id string) error {
	return r.submit(ctx, "delete_session", func(ctx context.Context) error {
		return r.store.DeleteSession(ctx, id)
	})
}

// Query runs a read-only console statement.
func (r *Runner) Query(ctx context.Context, query string) (sqlite.QueryResult, error) {
	return call(ctx, r, "query", func(ctx context.Context) (sqlite.QueryResult, error) {
		return r.store.Query(ctx, query)
	})
}
