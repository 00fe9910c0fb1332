package api

import (
	"net/http"

	"github.com/okian/sportsday/internal/adapters/http/session"
	service "github.com/okian/sportsday/internal/app"
)

// AdminHandler serves administrative API calls.
type AdminHandler struct {
	deps Dependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps Dependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

type rebuildFailure struct {
	errorResponse
	Report service.RebuildReport `json:"report"`
}

// HandleRebuild handles POST /api/admin/rebuild. A failed rebuild answers
// 500 with the report so the caller sees which step failed.
func (h *AdminHandler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	const op = "api.rebuild"
	p := session.FromContext(r.Context())
	if !p.Verified {
		writeServiceError(w, op, NewKind(op, ErrUnauthorized))
		return
	}
	if !p.IsAdmin() {
		writeServiceError(w, op, NewKind(op, ErrForbidden))
		return
	}

	report, err := h.deps.Rebuild(r.Context())
	if err != nil {
		if report.StartedAt.IsZero() {
			writeServiceError(w, op, err)
			return
		}
		writeJSON(w, http.StatusInternalServerError, rebuildFailure{
			errorResponse: errorResponse{Code: "rebuild_failed", Message: err.Error()},
			Report:        report,
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}
