package site

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/sportsday/internal/adapters/http/session"
	service "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/pkg/logger"
)

type loginData struct {
	Email string
}

func (s *Site) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Verified {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", page{Title: "Sign in", Data: loginData{}})
}

func (s *Site) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login", page{Title: "Sign in", Error: "Could not read the form.", Data: loginData{}})
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	secret := r.PostFormValue("secret")

	sess, u, err := s.deps.Login(r.Context(), email, secret)
	switch {
	case errors.Is(err, service.ErrBadLogin):
		s.render(w, r, http.StatusUnauthorized, "login", page{Title: "Sign in", Error: "Unknown email or wrong secret.", Data: loginData{Email: email}})
		return
	case errors.Is(err, service.ErrLoginDisabled):
		s.render(w, r, http.StatusForbidden, "login", page{Title: "Sign in", Error: "Signing in is disabled.", Data: loginData{Email: email}})
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}

	if err := s.sessions.Save(w, session.Data{ID: sess.ID, Email: u.Email}); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Site) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := session.FromContext(r.Context())
	if p.SessionID != "" {
		if err := s.deps.Logout(r.Context(), p.SessionID); err != nil {
			s.logger.Warn(r.Context(), "logout failed", logger.Error(err))
		}
	}
	s.sessions.Destroy(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
