// Package plan expands a schedule configuration into concrete year and event
// rows and replaces the stored schedule with them.
package plan

import (
	"github.com/okian/sportsday/internal/domain/schedule"
	"github.com/okian/sportsday/internal/domain/scores"
)

// Plan is the expanded schedule, one YearPlan per configured year.
type Plan struct {
	Years []YearPlan
}

// YearPlan holds the events scheduled for one year.
type YearPlan struct {
	ID     string
	Name   string
	Events []EventPlan
}

// EventPlan is one scheduled (year, gender, event) entry.
type EventPlan struct {
	// ID is "{year}-{gender}-{event}".
	ID       string
	Name     string
	GenderID string
	// FilterKey is the configured event id, used to filter by activity.
	FilterKey string
	// Scores is the initial JSON scores object: every form id mapped to 0.
	Scores string
}

// EventID formats the composite id of a scheduled event.
func EventID(yearID, genderID, eventID string) string {
	return yearID + schedule.IDSeparator + genderID + schedule.IDSeparator + eventID
}

// EmptyScores returns the JSON object mapping every form id to zero, or "{}"
// when there are no forms.
func EmptyScores(forms []schedule.Form) string {
	s := make(scores.Scores, len(forms))
	for _, f := range forms {
		s[f.ID] = 0
	}
	return s.String()
}

// Build expands cfg. It has no side effects and only reads cfg, so it is safe
// to call concurrently. Events follow configuration event order, then gender order.
func Build(cfg *schedule.Configuration) Plan {
	empty := EmptyScores(cfg.Forms)

	p := Plan{Years: make([]YearPlan, 0, len(cfg.Years))}
	for _, year := range cfg.Years {
		yp := YearPlan{ID: year.ID, Name: year.Name, Events: []EventPlan{}}
		for _, event := range cfg.Events {
			if !event.IsApplicableToYear(year.ID) {
				continue
			}
			for _, gender := range cfg.Genders {
				if !event.IsApplicableToGender(gender) {
					continue
				}
				yp.Events = append(yp.Events, EventPlan{
					ID:        EventID(year.ID, gender, event.ID),
					Name:      event.Name,
					GenderID:  gender,
					FilterKey: event.ID,
					Scores:    empty,
				})
			}
		}
		p.Years = append(p.Years, yp)
	}
	return p
}

// EventCount returns the number of scheduled events across all years.
func (p Plan) EventCount() int {
	n := 0
	for _, y := range p.Years {
		n += len(y.Events)
	}
	return n
}

// EventIDs returns every composite event id in plan order.
func (p Plan) EventIDs() []string {
	ids := make([]string, 0, p.EventCount())
	for _, y := range p.Years {
		for _, e := range y.Events {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
