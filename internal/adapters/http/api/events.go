package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/sportsday/internal/adapters/http/session"
	service "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/internal/domain/scores"
)

const maxScoresBody = 64 << 10

// EventsHandler serves the schedule and score entry.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleListYears handles GET /api/years requests.
func (h *EventsHandler) HandleListYears(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_years"
	years, err := h.deps.Years(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if years == nil {
		years = []service.Year{}
	}
	writeJSON(w, http.StatusOK, years)
}

// HandleListEvents handles GET /api/events. The year, activity and group
// query parameters narrow the list.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	q := r.URL.Query()
	events, err := h.deps.Events(r.Context(), service.EventFilter{
		YearID:    strings.TrimSpace(q.Get("year")),
		FilterKey: strings.TrimSpace(q.Get("activity")),
		GenderID:  strings.TrimSpace(q.Get("group")),
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if events == nil {
		events = []service.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleGetEvent handles GET /api/events/{id} requests.
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	ev, err := h.deps.Event(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandlePutScores handles PUT /api/events/{id}/scores. The body is a JSON
// object of form id to points; forms left out are stored as zero.
func (h *EventsHandler) HandlePutScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_scores"
	p := session.FromContext(r.Context())
	if !p.Verified {
		writeServiceError(w, op, NewKind(op, ErrUnauthorized))
		return
	}
	if !p.CanSetScores() {
		writeServiceError(w, op, NewKind(op, ErrForbidden))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScoresBody))
	if err != nil {
		writeServiceError(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(string(body)) == "" {
		writeServiceError(w, op, WrapKind(op, ErrBadRequest, errors.New("empty body")))
		return
	}
	sc, err := scores.Parse(string(body))
	if err != nil {
		writeServiceError(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}

	ev, err := h.deps.SetScores(r.Context(), chi.URLParam(r, "id"), sc)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
