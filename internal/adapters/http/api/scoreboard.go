package api

import (
	"net/http"

	service "github.com/okian/sportsday/internal/app"
)

// ScoreboardHandler serves the aggregated views.
type ScoreboardHandler struct {
	deps Dependencies
}

// NewScoreboardHandler creates a new scoreboard handler.
func NewScoreboardHandler(deps Dependencies) *ScoreboardHandler {
	return &ScoreboardHandler{deps: deps}
}

// HandleScoreboard handles GET /api/scoreboard requests.
func (h *ScoreboardHandler) HandleScoreboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.scoreboard"
	sb, err := h.deps.Scoreboard(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

// HandleResults handles GET /api/results requests.
func (h *ScoreboardHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.results"
	res, err := h.deps.Results(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if res == nil {
		res = []service.Result{}
	}
	writeJSON(w, http.StatusOK, res)
}
