package service

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/okian/sportsday/internal/adapters/repository/sqlite"
	"github.com/okian/sportsday/internal/domain/schedule"
	"github.com/okian/sportsday/internal/domain/scores"
	"github.com/okian/sportsday/pkg/logger"
	"github.com/okian/sportsday/pkg/metrics"
)

// Year is a stored year.
type Year = sqlite.Year

// EventFilter narrows Events by year, activity (configured event id) and
// group (gender). Empty fields match everything.
type EventFilter = sqlite.EventFilter

// Event is a scheduled event with decoded scores.
type Event struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	YearID    string        `json:"year_id"`
	YearName  string        `json:"year_name"`
	GenderID  string        `json:"gender_id"`
	FilterKey string        `json:"filter_key"`
	Scores    scores.Scores `json:"scores"`
}

// ScoreUpdate is published on the scores channel after a successful write.
type ScoreUpdate struct {
	EventID string        `json:"event_id"`
	Scores  scores.Scores `json:"scores"`
}

func toEvent(cfg *schedule.Configuration, row sqlite.Event) Event {
	e := Event{
		ID:        row.ID,
		Name:      row.Name,
		YearID:    row.YearID,
		YearName:  cfg.YearName(row.YearID),
		GenderID:  row.GenderID,
		FilterKey: row.FilterKey,
	}
	s, err := scores.Parse(row.Scores)
	if err != nil {
		metrics.RecordErrorByComponent("service", "malformed_scores")
		s = scores.Scores{}
	}
	e.Scores = s.Normalize(cfg.FormIDs())
	return e
}

// Years returns the stored years in schedule order.
func (s *Service) Years(ctx context.Context) ([]Year, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	return store.AllYears(ctx)
}

// Events returns the stored events matching f in schedule order.
func (s *Service) Events(ctx context.Context, f EventFilter) ([]Event, error) {
	store, cfg, err := s.deps()
	if err != nil {
		return nil, err
	}
	rows, err := store.FindEvents(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, toEvent(cfg, row))
	}
	return out, nil
}

// Event returns one stored event.
func (s *Service) Event(ctx context.Context, id string) (Event, error) {
	store, cfg, err := s.deps()
	if err != nil {
		return Event{}, err
	}
	row, err := store.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	return toEvent(cfg, row), nil
}

// SetScores replaces the scores of one event. Forms missing from sc are
// stored as zero; unknown forms and negative values are rejected.
func (s *Service) SetScores(ctx context.Context, eventID string, sc scores.Scores) (Event, error) {
	store, cfg, err := s.deps()
	if err != nil {
		return Event{}, err
	}

	formIDs := cfg.FormIDs()
	if err := sc.Validate(formIDs); err != nil {
		metrics.RecordScoreUpdateError("validation")
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidScores, err)
	}
	normalized := sc.Normalize(formIDs)

	if err := store.SetScores(ctx, eventID, normalized.String()); err != nil {
		metrics.RecordScoreUpdateError("storage")
		return Event{}, err
	}
	metrics.RecordScoreUpdate()

	s.logger.Debug(ctx, "scores updated",
		logger.String("event", eventID),
		logger.Any("scores", normalized),
	)

	if msg, err := json.Marshal(ScoreUpdate{EventID: eventID, Scores: normalized}); err == nil {
		s.hub.Publish(ChannelScores, string(msg))
	}

	return s.Event(ctx, eventID)
}
