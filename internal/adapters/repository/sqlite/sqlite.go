// Package sqlite persists the schedule, scores, users and sessions in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/sportsday/internal/domain/plan"
)

// Year is a stored year row.
type Year struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is a stored event row. Scores is the raw JSON object.
type Event struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	YearID    string `json:"year_id"`
	GenderID  string `json:"gender_id"`
	FilterKey string `json:"filter_key"`
	Scores    string `json:"scores"`
}

// EventFilter narrows FindEvents. Empty fields match everything.
type EventFilter struct {
	YearID    string
	FilterKey string
	GenderID  string
}

// User is an account allowed to sign in.
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	HasAdmin    bool   `json:"has_admin"`
	HasSetScore bool   `json:"has_set_score"`
}

// Session is a persisted login.
type Session struct {
	ID          string
	UserID      int64
	HasAdmin    bool
	HasSetScore bool
	CreatedAt   time.Time
}

// VerifiedSession is the outcome of looking up a session id.
type VerifiedSession struct {
	ID          string
	Verified    bool
	HasAdmin    bool
	HasSetScore bool
}

// Store handles all database operations.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps statements serialized and lets PRAGMA query_only
	// apply to the console connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS years (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			year_id TEXT NOT NULL REFERENCES years(id),
			gender_id TEXT NOT NULL,
			filter_key TEXT NOT NULL,
			scores TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_year ON events(year_id)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			has_admin INTEGER NOT NULL DEFAULT 0,
			has_set_score INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS user_sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			has_admin INTEGER NOT NULL DEFAULT 0,
			has_set_score INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON user_sessions(user_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// --- Years & events ---

// AllYears returns years in insertion order.
func (s *Store) AllYears(ctx context.Context) ([]Year, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM years ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query years: %w", err)
	}
	defer rows.Close()

	years := []Year{}
	for rows.Next() {
		var y Year
		if err := rows.Scan(&y.ID, &y.Name); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// AllEvents returns every event in insertion order.
func (s *Store) AllEvents(ctx context.Context) ([]Event, error) {
	return s.FindEvents(ctx, EventFilter{})
}

// FindEvents returns the events matching every non-empty field of f.
func (s *Store) FindEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	query := `SELECT id, name, year_id, gender_id, filter_key, scores FROM events`
	var (
		where []string
		args  []any
	)
	if f.YearID != "" {
		where = append(where, "year_id = ?")
		args = append(args, f.YearID)
	}
	if f.FilterKey != "" {
		where = append(where, "filter_key = ?")
		args = append(args, f.FilterKey)
	}
	if f.GenderID != "" {
		where = append(where, "gender_id = ?")
		args = append(args, f.GenderID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Name, &e.YearID, &e.GenderID, &e.FilterKey, &e.Scores); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetEvent returns one event or ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (Event, error) {
	var e Event
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, year_id, gender_id, filter_key, scores FROM events WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &e.YearID, &e.GenderID, &e.FilterKey, &e.Scores)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, fmt.Errorf("event %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// SetScores overwrites the scores JSON of an event.
func (s *Store) SetScores(ctx context.Context, id, scores string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE events SET scores = ? WHERE id = ?`, scores, id)
	if err != nil {
		return fmt.Errorf("set scores: %w", err)
	}
	return expectRow(res, "event", id)
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	return s.count(ctx, "events")
}

// CountYears returns the number of stored years.
func (s *Store) CountYears(ctx context.Context) (int, error) {
	return s.count(ctx, "years")
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// --- Transactions ---

// Tx writes schedule rows inside a database transaction.
type Tx struct {
	tx *sql.Tx
}

// InTx runs fn in one transaction. The transaction commits when fn returns
// nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(plan.TxWriter) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeleteAllEvents removes every event.
func (t *Tx) DeleteAllEvents(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM events`)
	return err
}

// DeleteAllYears removes every year.
func (t *Tx) DeleteAllYears(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM years`)
	return err
}

// InsertYear inserts one year row.
func (t *Tx) InsertYear(ctx context.Context, y plan.YearPlan) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO years(id, name) VALUES (?, ?)`, y.ID, y.Name)
	return err
}

// InsertEvent inserts one event row under yearID.
func (t *Tx) InsertEvent(ctx context.Context, yearID string, e plan.EventPlan) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO events(id, name, year_id, gender_id, filter_key, scores) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, yearID, e.GenderID, e.FilterKey, e.Scores)
	return err
}

// --- Users ---

const userColumns = `id, email, has_admin, has_set_score`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.HasAdmin, &u.HasSetScore)
	return u, err
}

// FindUserByEmail returns the user with email or ErrNotFound.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// FindUserByID returns the user with id or ErrNotFound.
func (s *Store) FindUserByID(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// GetOrCreateUser returns the user with email, creating one without
// permissions when absent.
func (s *Store) GetOrCreateUser(ctx context.Context, email string) (User, error) {
	u, err := s.FindUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	return s.InsertUser(ctx, User{Email: email})
}

// InsertUser stores u and returns it with its assigned id.
func (s *Store) InsertUser(ctx context.Context, u User) (User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(email, has_admin, has_set_score) VALUES (?, ?, ?)`,
		u.Email, u.HasAdmin, u.HasSetScore)
	if err != nil {
		if isUniqueConstraintError(err) {
			return User{}, fmt.Errorf("user %q: %w", u.Email, ErrDuplicate)
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return u, nil
}

// AllUsers returns users ordered by id.
func (s *Store) AllUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser rewrites a user and the permissions cached on its sessions.
func (s *Store) UpdateUser(ctx context.Context, u User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET email = ?, has_admin = ?, has_set_score = ? WHERE id = ?`,
		u.Email, u.HasAdmin, u.HasSetScore, u.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("user %q: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if err := expectRow(res, "user", fmt.Sprint(u.ID)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE user_sessions SET has_admin = ?, has_set_score = ? WHERE user_id = ?`,
		u.HasAdmin, u.HasSetScore, u.ID); err != nil {
		return fmt.Errorf("update sessions: %w", err)
	}
	return tx.Commit()
}

// DeleteUser removes a user and all of its sessions.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := expectRow(res, "user", fmt.Sprint(id)); err != nil {
		return err
	}
	return tx.Commit()
}

// CountUsers returns the number of users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, "users")
}

// --- Sessions ---

// NewSession stores a fresh session for u carrying its current permissions.
func (s *Store) NewSession(ctx context.Context, u User) (Session, error) {
	sess := Session{
		ID:          uuid.NewString(),
		UserID:      u.ID,
		HasAdmin:    u.HasAdmin,
		HasSetScore: u.HasSetScore,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_sessions(id, user_id, has_admin, has_set_score, created_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.HasAdmin, sess.HasSetScore, sess.CreatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// VerifySession looks up id. Unknown ids yield Verified=false, not an error.
func (s *Store) VerifySession(ctx context.Context, id string) (VerifiedSession, error) {
	vs := VerifiedSession{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT has_admin, has_set_score FROM user_sessions WHERE id = ?`, id,
	).Scan(&vs.HasAdmin, &vs.HasSetScore)
	if errors.Is(err, sql.ErrNoRows) {
		return vs, nil
	}
	if err != nil {
		return VerifiedSession{}, fmt.Errorf("verify session: %w", err)
	}
	vs.Verified = true
	return vs, nil
}

// DeleteSession removes a session. Deleting an unknown id is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
