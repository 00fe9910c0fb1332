// Package session keeps the signed-in user's session id in a signed cookie
// and resolves it against the session table on every request.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/okian/sportsday/internal/adapters/repository/sqlite"
	"github.com/okian/sportsday/pkg/logger"
)

const (
	defaultCookieName = "sportsday_session"
	defaultLifetime   = 7 * 24 * time.Hour
)

// ErrInvalidConfig indicates missing or malformed cookie keys.
var ErrInvalidConfig = errors.New("session: invalid config")

// Config controls cookie encoding.
type Config struct {
	CookieName string
	HashKey    []byte
	// BlockKey enables encryption when set; it must be 16, 24 or 32 bytes.
	BlockKey []byte
	Secure   bool
	Lifetime time.Duration
}

// Data is the cookie payload.
type Data struct {
	ID       string    `json:"id"`
	Email    string    `json:"email,omitempty"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Principal is the resolved caller of a request.
type Principal struct {
	SessionID   string
	Email       string
	Verified    bool
	HasAdmin    bool
	HasSetScore bool
}

// CanSetScores reports whether the caller may enter scores.
func (p Principal) CanSetScores() bool {
	return p.Verified && (p.HasSetScore || p.HasAdmin)
}

// IsAdmin reports whether the caller may use the admin console.
func (p Principal) IsAdmin() bool {
	return p.Verified && p.HasAdmin
}

// Verifier resolves session ids.
type Verifier interface {
	VerifySession(ctx context.Context, id string) (sqlite.VerifiedSession, error)
}

// Manager encodes and decodes session cookies.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
}

// NewManager builds a Manager from cfg.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime.Seconds()))

	return &Manager{cfg: cfg, codec: codec}, nil
}

// Save writes d as the session cookie.
func (m *Manager) Save(w http.ResponseWriter, d Data) error {
	if d.IssuedAt.IsZero() {
		d.IssuedAt = time.Now().UTC()
	}
	encoded, err := m.codec.Encode(m.cfg.CookieName, d)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     "/",
		Secure:   m.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.cfg.Lifetime.Seconds()),
	})
	return nil
}

// Load decodes the session cookie. ok is false when it is absent or invalid.
func (m *Manager) Load(r *http.Request) (Data, bool) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return Data{}, false
	}
	var d Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &d); err != nil {
		return Data{}, false
	}
	return d, d.ID != ""
}

// Destroy clears the session cookie.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Secure:   m.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

type principalKey struct{}

// FromContext returns the principal stored by Middleware.
func FromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// Middleware resolves the cookie session against v and stores the resulting
// Principal in the request context. Requests without a valid session get an
// unverified principal.
func (m *Manager) Middleware(v Verifier) func(http.Handler) http.Handler {
	log := logger.Get().Named("session")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var p Principal
			if d, ok := m.Load(r); ok {
				p.SessionID = d.ID
				p.Email = d.Email
				vs, err := v.VerifySession(r.Context(), d.ID)
				if err != nil {
					log.Warn(r.Context(), "session verification failed", logger.Error(err))
				} else {
					p.Verified = vs.Verified
					p.HasAdmin = vs.HasAdmin
					p.HasSetScore = vs.HasSetScore
				}
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
