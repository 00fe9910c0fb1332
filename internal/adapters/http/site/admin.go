package site

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/sportsday/internal/adapters/repository"
	service "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/pkg/logger"
)

type statRow struct {
	Key   string
	Value any
}

type adminData struct {
	HasReport bool
	Report    service.RebuildReport
	Stats     []statRow
}

func (s *Site) handleAdmin(w http.ResponseWriter, r *http.Request) {
	report, ok := s.deps.LastRebuild()
	stats := s.deps.GetStats()
	rows := make([]statRow, 0, len(stats))
	for k, v := range stats {
		rows = append(rows, statRow{Key: k, Value: v})
	}
	slices.SortFunc(rows, func(a, b statRow) int { return strings.Compare(a.Key, b.Key) })

	p := page{Title: "Admin", Data: adminData{HasReport: ok, Report: report, Stats: rows}}
	switch r.URL.Query().Get("rebuild") {
	case "ok":
		p.Flash = "Schedule rebuilt."
	case "failed":
		p.Error = "Rebuild failed; the stored schedule was left unchanged."
	}
	s.render(w, r, http.StatusOK, "admin", p)
}

func (s *Site) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Rebuild(r.Context()); err != nil {
		s.logger.Warn(r.Context(), "rebuild from admin failed", logger.Error(err))
		http.Redirect(w, r, "/admin?rebuild=failed", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin?rebuild=ok", http.StatusSeeOther)
}

type userFormData struct {
	Action string
	User   service.User
}

func userFromForm(r *http.Request) service.User {
	return service.User{
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		HasAdmin:    r.PostFormValue("has_admin") == "on",
		HasSetScore: r.PostFormValue("has_set_score") == "on",
	}
}

func userID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (s *Site) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Users(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "admin_users", page{Title: "Users", Data: users})
}

func (s *Site) handleUserNew(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "admin_user_form", page{
		Title: "New user",
		Data:  userFormData{Action: "/admin/users", User: service.User{HasSetScore: true}},
	})
}

func (s *Site) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form")
		return
	}
	u := userFromForm(r)
	if _, err := s.deps.CreateUser(r.Context(), u); err != nil {
		status, msg := userError(err)
		if status == http.StatusInternalServerError {
			s.fail(w, r, err)
			return
		}
		s.render(w, r, status, "admin_user_form", page{
			Title: "New user",
			Error: msg,
			Data:  userFormData{Action: "/admin/users", User: u},
		})
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (s *Site) handleUserEdit(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "User not found")
		return
	}
	u, err := s.deps.User(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "admin_user_form", page{
		Title: "Edit user",
		Data:  userFormData{Action: fmt.Sprintf("/admin/users/%d", u.ID), User: u},
	})
}

func (s *Site) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "User not found")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form")
		return
	}
	u := userFromForm(r)
	u.ID = id
	if err := s.deps.UpdateUser(r.Context(), u); err != nil {
		status, msg := userError(err)
		if status == http.StatusInternalServerError {
			s.fail(w, r, err)
			return
		}
		s.render(w, r, status, "admin_user_form", page{
			Title: "Edit user",
			Error: msg,
			Data:  userFormData{Action: fmt.Sprintf("/admin/users/%d", id), User: u},
		})
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (s *Site) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "User not found")
		return
	}
	if err := s.deps.DeleteUser(r.Context(), id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func userError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidUser):
		return http.StatusBadRequest, "Enter a valid email address."
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict, "A user with that email already exists."
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "User not found."
	default:
		return http.StatusInternalServerError, ""
	}
}

func (s *Site) handleLogs(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "admin_logs", page{Title: "Logs", Data: s.deps.Logs().Entries()})
}

func (s *Site) handleLogsClear(w http.ResponseWriter, r *http.Request) {
	s.deps.Logs().Clear()
	http.Redirect(w, r, "/admin/logs", http.StatusSeeOther)
}

type sqliteData struct {
	Query  string
	Ran    bool
	Result service.QueryResult
}

func (s *Site) handleSQLite(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "admin_sqlite", page{
		Title: "SQLite console",
		Data:  sqliteData{Query: "SELECT id, name FROM years"},
	})
}

func (s *Site) handleSQLiteExecute(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form")
		return
	}
	q := r.PostFormValue("query")
	res, err := s.deps.Query(r.Context(), q)
	if err != nil {
		s.render(w, r, http.StatusBadRequest, "admin_sqlite", page{
			Title: "SQLite console",
			Error: err.Error(),
			Data:  sqliteData{Query: q},
		})
		return
	}
	s.render(w, r, http.StatusOK, "admin_sqlite", page{
		Title: "SQLite console",
		Data:  sqliteData{Query: q, Ran: true, Result: res},
	})
}
