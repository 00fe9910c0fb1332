package plan_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/okian/sportsday/internal/domain/plan"
	"github.com/okian/sportsday/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

func sprintConfig() *schedule.Configuration {
	return &schedule.Configuration{
		Version: "1.0.0",
		Genders: []string{"boys", "girls"},
		Years:   []schedule.Year{{ID: "year7", Name: "Year 7"}},
		Forms:   []schedule.Form{{ID: "f1", Name: "F1"}, {ID: "f2", Name: "F2"}},
		Events: []schedule.Event{{
			ID:                "sprint",
			Name:              "100m Sprint",
			ApplicableYears:   schedule.All(),
			ApplicableGenders: schedule.All(),
		}},
	}
}

func TestBuild(t *testing.T) {
	Convey("Given one year, two genders and an all/all sprint", t, func() {
		p := plan.Build(sprintConfig())

		Convey("Then one year plan holds both genders in order", func() {
			So(len(p.Years), ShouldEqual, 1)
			So(p.Years[0].ID, ShouldEqual, "year7")
			So(p.Years[0].Name, ShouldEqual, "Year 7")
			So(p.EventIDs(), ShouldResemble, []string{"year7-boys-sprint", "year7-girls-sprint"})
			e := p.Years[0].Events[0]
			So(e.Name, ShouldEqual, "100m Sprint")
			So(e.GenderID, ShouldEqual, "boys")
			So(e.FilterKey, ShouldEqual, "sprint")
		})

		Convey("Then every event starts with zero scores for exactly the configured forms", func() {
			for _, e := range p.Years[0].Events {
				var got map[string]int64
				So(json.Unmarshal([]byte(e.Scores), &got), ShouldBeNil)
				So(got, ShouldResemble, map[string]int64{"f1": 0, "f2": 0})
			}
		})
	})

	Convey("Given N years, G genders and an all/all event", t, func() {
		cfg := sprintConfig()
		cfg.Years = append(cfg.Years, schedule.Year{ID: "year8", Name: "Year 8"}, schedule.Year{ID: "year9", Name: "Year 9"})
		cfg.Genders = append(cfg.Genders, "mixed")
		p := plan.Build(cfg)

		Convey("Then there are N year plans each with G events", func() {
			So(len(p.Years), ShouldEqual, 3)
			for _, y := range p.Years {
				So(len(y.Events), ShouldEqual, 3)
			}
			So(p.EventCount(), ShouldEqual, 9)
		})
	})

	Convey("Given the year and gender scenario with an include-only relay", t, func() {
		cfg := sprintConfig()
		cfg.Years = []schedule.Year{{ID: "year7", Name: "Year 7"}, {ID: "year8", Name: "Year 8"}}
		cfg.Genders = []string{"boys", "girls", "mixed"}
		cfg.Events = append(cfg.Events, schedule.Event{
			ID:                "relay",
			Name:              "Relay",
			ApplicableYears:   schedule.Include("year8"),
			ApplicableGenders: schedule.All(),
		})
		p := plan.Build(cfg)

		Convey("Then the relay only appears under year8, after every sprint", func() {
			So(p.EventCount(), ShouldEqual, 9)
			for _, e := range p.Years[0].Events {
				So(e.FilterKey, ShouldNotEqual, "relay")
			}
			So(p.Years[1].Events[3].ID, ShouldEqual, "year8-boys-relay")
			So(p.Years[1].Events[5].ID, ShouldEqual, "year8-mixed-relay")
		})
	})

	Convey("Given an event excluding one gender", t, func() {
		cfg := sprintConfig()
		cfg.Genders = []string{"boys", "girls", "mixed"}
		cfg.Events[0].ApplicableGenders = schedule.Exclude("mixed")
		p := plan.Build(cfg)

		Convey("Then every other gender gets the event", func() {
			So(p.EventIDs(), ShouldResemble, []string{"year7-boys-sprint", "year7-girls-sprint"})
		})
	})

	Convey("Given empty inputs", t, func() {
		Convey("When there are no years", func() {
			cfg := sprintConfig()
			cfg.Years = nil
			So(plan.Build(cfg).Years, ShouldBeEmpty)
		})

		Convey("When there are no events", func() {
			cfg := sprintConfig()
			cfg.Events = nil
			p := plan.Build(cfg)
			So(len(p.Years), ShouldEqual, 1)
			So(p.Years[0].Events, ShouldBeEmpty)
		})

		Convey("When there are no genders", func() {
			cfg := sprintConfig()
			cfg.Genders = nil
			p := plan.Build(cfg)
			So(len(p.Years), ShouldEqual, 1)
			So(p.EventCount(), ShouldEqual, 0)
		})

		Convey("When there are no forms", func() {
			So(plan.EmptyScores(nil), ShouldEqual, "{}")
		})
	})

	Convey("Given concurrent builders over one configuration", t, func() {
		cfg := sprintConfig()
		want := plan.Build(cfg)
		results := make([]plan.Plan, 8)
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = plan.Build(cfg)
			}(i)
		}
		wg.Wait()

		Convey("Then every result is identical", func() {
			for _, r := range results {
				So(r, ShouldResemble, want)
			}
		})
	})
}

func TestEventID(t *testing.T) {
	Convey("Given year7, mixed and event1", t, func() {
		Convey("Then the composite id joins them with dashes", func() {
			So(plan.EventID("year7", "mixed", "event1"), ShouldEqual, "year7-mixed-event1")
		})

		Convey("Then every part is delimited by the separator the loader forbids in ids", func() {
			id := plan.EventID("year7", "mixed", "event1")
			So(strings.Split(id, schedule.IDSeparator), ShouldResemble, []string{"year7", "mixed", "event1"})
		})
	})
}
