// Package site serves the server-rendered pages: the public scoreboard and
// results, score entry for signed-in scorers and the admin console.
package site

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/sportsday/internal/adapters/http/session"
	service "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/internal/domain/schedule"
	"github.com/okian/sportsday/internal/domain/scores"
	"github.com/okian/sportsday/pkg/logger"
)

// Error constants
var (
	ErrTemplate = errors.New("site template failed")
	ErrRender   = errors.New("site render failed")
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Dependencies required by the pages.
type Dependencies interface {
	Schedule() (*schedule.Configuration, error)
	Years(ctx context.Context) ([]service.Year, error)
	Events(ctx context.Context, f service.EventFilter) ([]service.Event, error)
	SetScores(ctx context.Context, eventID string, sc scores.Scores) (service.Event, error)
	Scoreboard(ctx context.Context) (service.Scoreboard, error)

	Rebuild(ctx context.Context) (service.RebuildReport, error)
	LastRebuild() (service.RebuildReport, bool)
	GetStats() map[string]interface{}
	Logs() *logger.Collector
	Query(ctx context.Context, query string) (service.QueryResult, error)

	Users(ctx context.Context) ([]service.User, error)
	User(ctx context.Context, id int64) (service.User, error)
	CreateUser(ctx context.Context, u service.User) (service.User, error)
	UpdateUser(ctx context.Context, u service.User) error
	DeleteUser(ctx context.Context, id int64) error

	Login(ctx context.Context, email, secret string) (service.Session, service.User, error)
	Logout(ctx context.Context, id string) error
}

var _ Dependencies = (*service.Service)(nil)

// Site renders the HTML pages.
type Site struct {
	deps     Dependencies
	sessions *session.Manager
	pages    map[string]*template.Template
	logger   logger.Logger
}

// page is the view model every template receives.
type page struct {
	Title     string
	Principal session.Principal
	Flash     string
	Error     string
	Data      any
}

// New parses the embedded templates and returns a Site.
func New(deps Dependencies, sessions *session.Manager) (*Site, error) {
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Site{
		deps:     deps,
		sessions: sessions,
		pages:    pages,
		logger:   logger.Get().Named("site"),
	}, nil
}

// parseTemplates builds one template set per page so every page can define
// its own "content" block on top of the shared layout.
func parseTemplates() (map[string]*template.Template, error) {
	funcMap := template.FuncMap{
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
	}
	base, err := template.New("_root").Funcs(funcMap).ParseFS(templateFS, "templates/layout.tmpl", "templates/partials.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	files, err := fs.Glob(templateFS, "templates/page_*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no page templates embedded", ErrTemplate)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, f := range files {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
		}
		if _, err := t.ParseFS(templateFS, f); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, f, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(path.Base(f), "page_"), ".tmpl")
		pages[name] = t
	}
	return pages, nil
}

// Register attaches the page routes to r. The session middleware must run
// before them.
func (s *Site) Register(r chi.Router) {
	r.Get("/", s.handleIndex)
	r.Get("/scoreboard", s.handleScoreboard)
	r.Get("/scoreboard/partial", s.handleScoreboardPartial)
	r.Get("/results", s.handleResults)

	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireScorer)
		r.Get("/set-scores", s.handleSetScoresForm)
		r.Post("/set-scores", s.handleSetScores)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/", s.handleAdmin)
		r.Post("/rebuild", s.handleRebuild)

		r.Get("/users", s.handleUsers)
		r.Get("/users/new", s.handleUserNew)
		r.Post("/users", s.handleUserCreate)
		r.Get("/users/{id}/edit", s.handleUserEdit)
		r.Post("/users/{id}", s.handleUserUpdate)
		r.Post("/users/{id}/delete", s.handleUserDelete)

		r.Get("/logs", s.handleLogs)
		r.Post("/logs/clear", s.handleLogsClear)

		r.Get("/sqlite", s.handleSQLite)
		r.Post("/sqlite/execute", s.handleSQLiteExecute)
	})
}

// render executes the base layout for a page into a buffer so a template
// error never leaves a half written response.
func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	t, ok := s.pages[name]
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: unknown page %q", ErrRender, name))
		return
	}
	p.Principal = session.FromContext(r.Context())

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", p); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %s: %w", ErrRender, name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError shows the error page with status and a short title.
func (s *Site) renderError(w http.ResponseWriter, r *http.Request, status int, title string) {
	s.render(w, r, status, "error", page{Title: title})
}

func (s *Site) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), "page failed",
		logger.String("path", r.URL.Path),
		logger.Error(err),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (s *Site) requireScorer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := session.FromContext(r.Context())
		if !p.Verified {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !p.CanSetScores() {
			s.renderError(w, r, http.StatusForbidden, "You cannot enter scores")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Site) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := session.FromContext(r.Context())
		if !p.Verified {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !p.IsAdmin() {
			s.renderError(w, r, http.StatusForbidden, "Admins only")
			return
		}
		next.ServeHTTP(w, r)
	})
}
