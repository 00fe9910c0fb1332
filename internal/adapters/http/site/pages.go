package site

import (
	"html/template"
	"net/http"
	"strings"

	service "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/internal/domain/schedule"
	"github.com/okian/sportsday/pkg/logger"
)

type indexData struct {
	Loaded     bool
	Notes      template.HTML
	Years      []schedule.Year
	Forms      []schedule.Form
	EventCount int
}

func (s *Site) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{}
	if cfg, err := s.deps.Schedule(); err == nil && cfg != nil {
		data.Loaded = true
		data.Years = cfg.Years
		data.Forms = cfg.Forms
		notes, err := renderMarkdown(cfg.Notes)
		if err != nil {
			s.logger.Warn(r.Context(), "notes not rendered", logger.Error(err))
		}
		data.Notes = notes
		if events, err := s.deps.Events(r.Context(), service.EventFilter{}); err == nil {
			data.EventCount = len(events)
		}
	}
	s.render(w, r, http.StatusOK, "index", page{Title: "Home", Data: data})
}

func (s *Site) handleScoreboard(w http.ResponseWriter, r *http.Request) {
	sb, err := s.deps.Scoreboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "scoreboard", page{Title: "Scoreboard", Data: sb})
}

// handleScoreboardPartial renders only the table, for in-page refreshes.
func (s *Site) handleScoreboardPartial(w http.ResponseWriter, r *http.Request) {
	sb, err := s.deps.Scoreboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf strings.Builder
	if err := s.pages["scoreboard"].ExecuteTemplate(&buf, "board", sb); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}

type resultsData struct {
	Filter  service.EventFilter
	Years   []schedule.Year
	Genders []string
	Forms   []schedule.Form
	Results []service.Result
}

func eventFilter(r *http.Request) service.EventFilter {
	q := r.URL.Query()
	return service.EventFilter{
		YearID:    strings.TrimSpace(q.Get("year")),
		FilterKey: strings.TrimSpace(q.Get("activity")),
		GenderID:  strings.TrimSpace(q.Get("group")),
	}
}

func (s *Site) handleResults(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.deps.Schedule()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f := eventFilter(r)
	events, err := s.deps.Events(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := resultsData{
		Filter:  f,
		Years:   cfg.Years,
		Genders: cfg.Genders,
		Forms:   cfg.Forms,
		Results: make([]service.Result, 0, len(events)),
	}
	for _, e := range events {
		data.Results = append(data.Results, service.Result{
			EventID: e.ID,
			Name:    e.Name,
			Year:    e.YearName,
			Group:   e.GenderID,
			Scores:  e.Scores,
			Total:   e.Scores.Total(),
		})
	}
	s.render(w, r, http.StatusOK, "results", page{Title: "Results", Data: data})
}
