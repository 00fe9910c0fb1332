package plan_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/sportsday/internal/domain/plan"
	"github.com/okian/sportsday/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

type row struct {
	yearID string
	plan.EventPlan
}

// memStore is a transactional in-memory writer. Work happens on a copy that
// replaces the live state only when the callback succeeds.
type memStore struct {
	years  map[string]string
	events map[string]row
	calls  []string

	failStep string
	failID   string
	txErr    error
}

func newMemStore() *memStore {
	return &memStore{years: map[string]string{}, events: map[string]row{}}
}

type memTx struct {
	s      *memStore
	years  map[string]string
	events map[string]row
}

func (m *memStore) InTx(_ context.Context, fn func(plan.TxWriter) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	tx := &memTx{s: m, years: map[string]string{}, events: map[string]row{}}
	for k, v := range m.years {
		tx.years[k] = v
	}
	for k, v := range m.events {
		tx.events[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.years, m.events = tx.years, tx.events
	return nil
}

func (t *memTx) fail(step, id string) error {
	t.s.calls = append(t.s.calls, step)
	if t.s.failStep == step && (t.s.failID == "" || t.s.failID == id) {
		return errors.New("disk full")
	}
	return nil
}

func (t *memTx) DeleteAllEvents(context.Context) error {
	if err := t.fail(plan.StepDeleteEvents, ""); err != nil {
		return err
	}
	t.events = map[string]row{}
	return nil
}

func (t *memTx) DeleteAllYears(context.Context) error {
	if err := t.fail(plan.StepDeleteYears, ""); err != nil {
		return err
	}
	if len(t.events) > 0 {
		return errors.New("FOREIGN KEY constraint failed")
	}
	t.years = map[string]string{}
	return nil
}

func (t *memTx) InsertYear(_ context.Context, y plan.YearPlan) error {
	if err := t.fail(plan.StepInsertYear, y.ID); err != nil {
		return err
	}
	t.years[y.ID] = y.Name
	return nil
}

func (t *memTx) InsertEvent(_ context.Context, yearID string, e plan.EventPlan) error {
	if err := t.fail(plan.StepInsertEvent, e.ID); err != nil {
		return err
	}
	if _, ok := t.years[yearID]; !ok {
		return errors.New("FOREIGN KEY constraint failed")
	}
	t.events[e.ID] = row{yearID: yearID, EventPlan: e}
	return nil
}

func configWith(years ...string) *schedule.Configuration {
	cfg := &schedule.Configuration{
		Genders: []string{"boys"},
		Forms:   []schedule.Form{{ID: "f1"}},
		Events:  []schedule.Event{{ID: "sprint", Name: "Sprint", ApplicableYears: schedule.All(), ApplicableGenders: schedule.All()}},
	}
	for _, y := range years {
		cfg.Years = append(cfg.Years, schedule.Year{ID: y, Name: y})
	}
	return cfg
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		store := newMemStore()

		Convey("When a plan is applied", func() {
			err := plan.Apply(ctx, store, plan.Build(configWith("year7", "year8")))

			Convey("Then deletes run events first and rows are inserted year by year", func() {
				So(err, ShouldBeNil)
				So(store.calls, ShouldResemble, []string{
					plan.StepDeleteEvents, plan.StepDeleteYears,
					plan.StepInsertYear, plan.StepInsertEvent,
					plan.StepInsertYear, plan.StepInsertEvent,
				})
				So(len(store.years), ShouldEqual, 2)
				So(store.events["year8-boys-sprint"].yearID, ShouldEqual, "year8")
				So(store.events["year8-boys-sprint"].Scores, ShouldEqual, `{"f1":0}`)
			})
		})
	})

	Convey("Given a store holding plan A with entered scores", t, func() {
		store := newMemStore()
		So(plan.Apply(ctx, store, plan.Build(configWith("year7", "year9"))), ShouldBeNil)
		r := store.events["year7-boys-sprint"]
		r.Scores = `{"f1":12}`
		store.events["year7-boys-sprint"] = r

		Convey("When plan B is applied", func() {
			err := plan.Apply(ctx, store, plan.Build(configWith("year7", "year8")))

			Convey("Then only B's rows remain and scores are reset", func() {
				So(err, ShouldBeNil)
				_, hasYear9 := store.years["year9"]
				So(hasYear9, ShouldBeFalse)
				So(len(store.events), ShouldEqual, 2)
				So(store.events["year7-boys-sprint"].Scores, ShouldEqual, `{"f1":0}`)
			})
		})

		Convey("When an insert fails partway", func() {
			store.calls = nil
			store.failStep = plan.StepInsertEvent
			store.failID = "year8-boys-sprint"
			err := plan.Apply(ctx, store, plan.Build(configWith("year7", "year8")))

			Convey("Then the error names the step and row", func() {
				So(errors.Is(err, plan.ErrStorage), ShouldBeTrue)
				var se *plan.StorageError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Step, ShouldEqual, plan.StepInsertEvent)
				So(se.ID, ShouldEqual, "year8-boys-sprint")
				So(se.Error(), ShouldContainSubstring, "disk full")
			})

			Convey("Then plan A is still stored", func() {
				_, hasYear9 := store.years["year9"]
				So(hasYear9, ShouldBeTrue)
				So(store.events["year7-boys-sprint"].Scores, ShouldEqual, `{"f1":12}`)
			})
		})

		Convey("When the delete step fails", func() {
			store.failStep = plan.StepDeleteEvents
			err := plan.Apply(ctx, store, plan.Build(configWith("year8")))

			Convey("Then the failure is reported at delete_events", func() {
				var se *plan.StorageError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Step, ShouldEqual, plan.StepDeleteEvents)
				So(se.ID, ShouldBeEmpty)
			})
		})

		Convey("When the transaction cannot start", func() {
			store.txErr = errors.New("database is locked")
			err := plan.Apply(ctx, store, plan.Build(configWith("year8")))

			Convey("Then it is reported as a transaction storage error", func() {
				var se *plan.StorageError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Step, ShouldEqual, plan.StepTransaction)
				So(errors.Is(err, plan.ErrStorage), ShouldBeTrue)
			})
		})
	})
}
