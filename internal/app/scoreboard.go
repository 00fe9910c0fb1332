package service

import (
	"context"

	"github.com/okian/sportsday/internal/domain/schedule"
	"github.com/okian/sportsday/internal/domain/scores"
)

// Scoreboard is the year by form points table.
type Scoreboard struct {
	Forms      []schedule.Form `json:"forms"`
	Rows       []ScoreboardRow `json:"rows"`
	FormTotals []int64         `json:"form_totals"`
	GrandTotal int64           `json:"grand_total"`
}

// ScoreboardRow holds one year's points per form, in form order.
type ScoreboardRow struct {
	YearID   string  `json:"year_id"`
	YearName string  `json:"year_name"`
	Cells    []int64 `json:"cells"`
	Total    int64   `json:"total"`
}

// Result is one event line on the results page.
type Result struct {
	EventID string        `json:"event_id"`
	Name    string        `json:"name"`
	Year    string        `json:"year"`
	Group   string        `json:"group"`
	Scores  scores.Scores `json:"scores"`
	Total   int64         `json:"total"`
}

// Scoreboard sums every stored event's scores per year and form.
func (s *Service) Scoreboard(ctx context.Context) (Scoreboard, error) {
	store, cfg, err := s.deps()
	if err != nil {
		return Scoreboard{}, err
	}
	years, err := store.AllYears(ctx)
	if err != nil {
		return Scoreboard{}, err
	}
	events, err := s.Events(ctx, EventFilter{})
	if err != nil {
		return Scoreboard{}, err
	}

	formIDs := cfg.FormIDs()
	board := scores.NewBoard(formIDs)
	for _, e := range events {
		board.Add(e.YearID, e.Scores)
	}

	sb := Scoreboard{
		Forms:      append([]schedule.Form(nil), cfg.Forms...),
		Rows:       make([]ScoreboardRow, 0, len(years)),
		FormTotals: make([]int64, len(formIDs)),
		GrandTotal: board.GrandTotal,
	}
	for i, f := range formIDs {
		sb.FormTotals[i] = board.FormTotals[f]
	}
	for _, y := range years {
		row := ScoreboardRow{
			YearID:   y.ID,
			YearName: y.Name,
			Cells:    make([]int64, len(formIDs)),
			Total:    board.YearTotals[y.ID],
		}
		for i, f := range formIDs {
			row.Cells[i] = board.Cell(y.ID, f)
		}
		sb.Rows = append(sb.Rows, row)
	}
	return sb, nil
}

// Results lists every stored event with its year name, group and scores.
func (s *Service) Results(ctx context.Context) ([]Result, error) {
	events, err := s.Events(ctx, EventFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(events))
	for _, e := range events {
		out = append(out, Result{
			EventID: e.ID,
			Name:    e.Name,
			Year:    e.YearName,
			Group:   e.GenderID,
			Scores:  e.Scores,
			Total:   e.Scores.Total(),
		})
	}
	return out, nil
}
