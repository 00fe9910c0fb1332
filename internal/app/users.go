package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/sportsday/internal/adapters/repository"
	"github.com/okian/sportsday/internal/adapters/repository/sqlite"
	"github.com/okian/sportsday/pkg/logger"
	"github.com/okian/sportsday/pkg/metrics"
)

// User is a sign-in account.
type User = sqlite.User

// Session is a persisted login.
type Session = sqlite.Session

// VerifiedSession is the outcome of checking a session id.
type VerifiedSession = sqlite.VerifiedSession

// QueryResult is the output of an admin console statement.
type QueryResult = sqlite.QueryResult

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

func (s *Service) bootstrapAdmin(ctx context.Context, store repository.Store) error {
	u, err := store.GetOrCreateUser(ctx, s.adminEmail)
	if err != nil {
		return err
	}
	if u.HasAdmin && u.HasSetScore {
		return nil
	}
	u.HasAdmin = true
	u.HasSetScore = true
	if err := store.UpdateUser(ctx, u); err != nil {
		return err
	}
	s.logger.Info(ctx, "admin account ready", logger.String("email", u.Email))
	return nil
}

// Users lists every account.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	return store.AllUsers(ctx)
}

// User returns one account.
func (s *Service) User(ctx context.Context, id int64) (User, error) {
	store, _, err := s.deps()
	if err != nil {
		return User{}, err
	}
	return store.FindUserByID(ctx, id)
}

// CreateUser adds an account.
func (s *Service) CreateUser(ctx context.Context, u User) (User, error) {
	store, _, err := s.deps()
	if err != nil {
		return User{}, err
	}
	u.Email = normalizeEmail(u.Email)
	if !validEmail(u.Email) {
		return User{}, fmt.Errorf("%w: email %q", ErrInvalidUser, u.Email)
	}
	return store.InsertUser(ctx, u)
}

// UpdateUser rewrites an account. Permissions on existing sessions follow.
func (s *Service) UpdateUser(ctx context.Context, u User) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	u.Email = normalizeEmail(u.Email)
	if !validEmail(u.Email) {
		return fmt.Errorf("%w: email %q", ErrInvalidUser, u.Email)
	}
	return store.UpdateUser(ctx, u)
}

// DeleteUser removes an account and its sessions.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	return store.DeleteUser(ctx, id)
}

// Login checks the shared secret, then finds or creates the account for
// email and opens a new session for it.
func (s *Service) Login(ctx context.Context, email, secret string) (Session, User, error) {
	store, _, err := s.deps()
	if err != nil {
		return Session{}, User{}, err
	}
	if s.loginSecret == "" {
		return Session{}, User{}, ErrLoginDisabled
	}
	email = normalizeEmail(email)
	if !validEmail(email) || subtle.ConstantTimeCompare([]byte(secret), []byte(s.loginSecret)) != 1 {
		metrics.RecordSession("login_failed")
		return Session{}, User{}, ErrBadLogin
	}

	u, err := store.GetOrCreateUser(ctx, email)
	if err != nil {
		return Session{}, User{}, err
	}
	sess, err := store.NewSession(ctx, u)
	if err != nil {
		return Session{}, User{}, err
	}
	metrics.RecordSession("login")
	s.logger.Info(ctx, "user signed in", logger.String("email", u.Email))
	return sess, u, nil
}

// VerifySession checks a session id. Unknown ids are unverified, not errors.
func (s *Service) VerifySession(ctx context.Context, id string) (VerifiedSession, error) {
	store, _, err := s.deps()
	if err != nil {
		return VerifiedSession{}, err
	}
	if id == "" {
		return VerifiedSession{}, nil
	}
	vs, err := store.VerifySession(ctx, id)
	if err != nil {
		return VerifiedSession{}, err
	}
	metrics.RecordSession("verify")
	return vs, nil
}

// Logout ends a session.
func (s *Service) Logout(ctx context.Context, id string) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	if err := store.DeleteSession(ctx, id); err != nil {
		return err
	}
	metrics.RecordSession("logout")
	return nil
}

// Query runs a read-only statement from the admin console.
func (s *Service) Query(ctx context.Context, query string) (QueryResult, error) {
	store, _, err := s.deps()
	if err != nil {
		return QueryResult{}, err
	}
	res, err := store.Query(ctx, query)
	if err != nil && !errors.Is(err, repository.ErrReadOnly) {
		s.logger.Warn(ctx, "console query failed", logger.Error(err))
	}
	return res, err
}
