package site

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/sportsday/internal/adapters/http/session"
	"github.com/okian/sportsday/internal/adapters/repository"
	service "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/internal/domain/schedule"
	"github.com/okian/sportsday/internal/domain/scores"
	"github.com/okian/sportsday/pkg/logger"
)

const scoreFieldPrefix = "score_"

type setScoresData struct {
	Filter     service.EventFilter
	Query      template.URL
	Years      []service.Year
	Activities []schedule.Event
	Genders    []string
	Forms      []schedule.Form
	Tiers      []schedule.Score
	Events     []service.Event
}

func filterQuery(f service.EventFilter) url.Values {
	q := url.Values{}
	if f.YearID != "" {
		q.Set("year", f.YearID)
	}
	if f.FilterKey != "" {
		q.Set("activity", f.FilterKey)
	}
	if f.GenderID != "" {
		q.Set("group", f.GenderID)
	}
	return q
}

func (s *Site) setScoresPage(w http.ResponseWriter, r *http.Request, status int, f service.EventFilter, flash, errMsg string) {
	cfg, err := s.deps.Schedule()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	years, err := s.deps.Years(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := s.deps.Events(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := setScoresData{
		Filter:     f,
		Query:      template.URL(filterQuery(f).Encode()), //nolint:gosec // built from url.Values
		Years:      years,
		Activities: cfg.Events,
		Genders:    cfg.Genders,
		Forms:      cfg.Forms,
		Tiers:      cfg.Scores,
		Events:     events,
	}
	s.render(w, r, status, "set_scores", page{Title: "Set scores", Flash: flash, Error: errMsg, Data: data})
}

func (s *Site) handleSetScoresForm(w http.ResponseWriter, r *http.Request) {
	flash := ""
	if saved := r.URL.Query().Get("saved"); saved != "" {
		flash = fmt.Sprintf("Scores saved for %s.", saved)
	}
	s.setScoresPage(w, r, http.StatusOK, eventFilter(r), flash, "")
}

// parseScoreForm reads score_<form> fields. Blank fields count as zero.
func parseScoreForm(form url.Values) (scores.Scores, error) {
	out := scores.Scores{}
	for key, vals := range form {
		formID, ok := strings.CutPrefix(key, scoreFieldPrefix)
		if !ok || len(vals) == 0 {
			continue
		}
		v := strings.TrimSpace(vals[0])
		if v == "" {
			out[formID] = 0
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: form %q has value %q", scores.ErrMalformed, formID, v)
		}
		out[formID] = n
	}
	return out, nil
}

func (s *Site) handleSetScores(w http.ResponseWriter, r *http.Request) {
	f := eventFilter(r)
	if err := r.ParseForm(); err != nil {
		s.setScoresPage(w, r, http.StatusBadRequest, f, "", "Could not read the form.")
		return
	}
	eventID := strings.TrimSpace(r.PostFormValue("event_id"))
	if eventID == "" {
		s.setScoresPage(w, r, http.StatusBadRequest, f, "", "No event selected.")
		return
	}
	sc, err := parseScoreForm(r.PostForm)
	if err != nil {
		s.setScoresPage(w, r, http.StatusBadRequest, f, "", "Scores must be whole numbers.")
		return
	}

	ev, err := s.deps.SetScores(r.Context(), eventID, sc)
	switch {
	case errors.Is(err, service.ErrInvalidScores):
		s.setScoresPage(w, r, http.StatusBadRequest, f, "", err.Error())
		return
	case errors.Is(err, repository.ErrNotFound):
		s.setScoresPage(w, r, http.StatusNotFound, f, "", fmt.Sprintf("Event %s no longer exists.", eventID))
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "scores entered",
		logger.String("event", ev.ID),
		logger.String("by", session.FromContext(r.Context()).Email),
	)

	q := filterQuery(f)
	q.Set("saved", ev.ID)
	http.Redirect(w, r, "/set-scores?"+q.Encode(), http.StatusSeeOther)
}
