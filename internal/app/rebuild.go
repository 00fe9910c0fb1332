package service

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/sportsday/internal/domain/plan"
	"github.com/okian/sportsday/internal/domain/schedule"
	"github.com/okian/sportsday/pkg/logger"
	"github.com/okian/sportsday/pkg/metrics"
)

// RebuildReport describes one schedule rebuild.
type RebuildReport struct {
	Version    string        `json:"version"`
	Years      int           `json:"years"`
	Events     int           `json:"events"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Err        string        `json:"error,omitempty"`
}

// OK reports whether the rebuild succeeded.
func (r RebuildReport) OK() bool { return r.Err == "" }

// Rebuild reloads the schedule document, expands it and replaces every
// stored year and event. Scores entered so far are discarded. When any step
// fails the stored schedule and the loaded configuration stay as they were.
func (s *Service) Rebuild(ctx context.Context) (RebuildReport, error) {
	store, _, err := s.deps()
	if err != nil {
		return RebuildReport{}, err
	}

	report := RebuildReport{StartedAt: time.Now().UTC()}
	finish := func(err error) (RebuildReport, error) {
		report.FinishedAt = time.Now().UTC()
		report.Duration = report.FinishedAt.Sub(report.StartedAt)
		if err != nil {
			report.Err = err.Error()
		}
		metrics.RecordPlanRebuild(err == nil, float64(report.Duration.Milliseconds()))

		s.mu.Lock()
		last := report
		s.lastReport = &last
		s.mu.Unlock()
		return report, err
	}

	cfg, err := schedule.LoadFile(s.schedulePath)
	if err != nil {
		s.logger.Error(ctx, "schedule rebuild aborted: configuration unusable", logger.Error(err))
		metrics.RecordErrorByComponent("rebuild", "config")
		return finish(fmt.Errorf("load schedule: %w", err))
	}
	report.Version = cfg.Version

	p := plan.Build(cfg)
	report.Years = len(p.Years)
	report.Events = p.EventCount()

	if err := plan.Apply(ctx, store, p); err != nil {
		s.logger.Error(ctx, "schedule rebuild failed: storage",
			logger.Error(err),
			logger.Int("years", report.Years),
			logger.Int("events", report.Events),
		)
		metrics.RecordErrorByComponent("rebuild", "storage")
		return finish(fmt.Errorf("apply plan: %w", err))
	}

	s.mu.Lock()
	s.schedule = cfg
	s.mu.Unlock()

	metrics.UpdatePlanSize(report.Years, report.Events)
	s.logger.Info(ctx, "schedule rebuilt",
		logger.String("version", cfg.Version),
		logger.Int("years", report.Years),
		logger.Int("events", report.Events),
	)

	if msg, err := json.Marshal(map[string]any{
		"version": cfg.Version,
		"years":   report.Years,
		"events":  report.Events,
	}); err == nil {
		s.hub.Publish(ChannelSchedule, string(msg))
	}

	return finish(nil)
}

// LastRebuild returns the most recent rebuild report, if any.
func (s *Service) LastRebuild() (RebuildReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastReport == nil {
		return RebuildReport{}, false
	}
	return *s.lastReport, true
}

// Preview expands the schedule document without touching storage.
func Preview(path string) (plan.Plan, *schedule.Configuration, error) {
	cfg, err := schedule.LoadFile(path)
	if err != nil {
		return plan.Plan{}, nil, err
	}
	return plan.Build(cfg), cfg, nil
}
