package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/internal/domain/scores"
	"github.com/okian/sportsday/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

const testSchedule = `
version: "2024.1"
genders: [boys, girls]
scores:
  - name: "1st"
    value: 10
    default: true
years:
  - id: y7
    name: "Year 7"
  - id: y8
    name: "Year 8"
forms:
  - id: red
    name: "Red"
    colour: "#ff0000"
  - id: blue
    name: "Blue"
    colour: "#0000ff"
events:
  - id: sprint
    name: "Sprint"
    applicable_years:
      type: all
    applicable_genders:
      type: all
  - id: relay
    name: "Relay"
    applicable_years:
      type: include
      ids: [y8]
    applicable_genders:
      type: include
      ids: [girls]
`

func writeSchedule(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "schedule.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write schedule: %v", err)
	}
	return path
}

func newService(t *testing.T, opts ...service.Option) (*service.Service, string) {
	t.Helper()
	dir := t.TempDir()
	schedulePath := writeSchedule(t, dir, testSchedule)
	base := []service.Option{
		service.WithDBPath(filepath.Join(dir, "db.sqlite")),
		service.WithSchedulePath(schedulePath),
		service.WithLoginSecret("letmein"),
	}
	svc := service.New(append(base, opts...)...)
	return svc, schedulePath
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Hub(), ShouldNotBeNil)
			So(svc.Logs(), ShouldNotBeNil)
		})

		Convey("Then operations fail until it is started", func() {
			_, err := svc.Years(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Rebuild(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service with a valid schedule", t, func() {
		svc, _ := newService(t,
			service.WithWorkerCount(2),
			service.WithQueueSize(32),
			service.WithRebuildOnStart(true),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := svc.Start(ctx)

		Convey("Then it should start and populate the schedule", func() {
			So(err, ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["totalEvents"], ShouldEqual, 5)

			report, ok := svc.LastRebuild()
			So(ok, ShouldBeTrue)
			So(report.OK(), ShouldBeTrue)
			So(report.Years, ShouldEqual, 2)
			So(report.Events, ShouldEqual, 5)
			So(report.Version, ShouldEqual, "2024.1")
		})

		Convey("Then stopping twice is safe", func() {
			svc.Stop()
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a service whose schedule is missing", t, func() {
		svc := service.New(
			service.WithDBPath(filepath.Join(t.TempDir(), "db.sqlite")),
			service.WithSchedulePath(filepath.Join(t.TempDir(), "missing.yaml")),
		)

		Convey("Then Start fails", func() {
			So(svc.Start(context.Background()), ShouldNotBeNil)
		})
	})
}

func TestService_Rebuild(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc, schedulePath := newService(t)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		report, err := svc.Rebuild(ctx)
		So(err, ShouldBeNil)
		So(report.Events, ShouldEqual, 5)

		Convey("Events follow event then gender order with zeroed scores", func() {
			events, err := svc.Events(ctx, service.EventFilter{YearID: "y8"})
			So(err, ShouldBeNil)
			ids := make([]string, 0, len(events))
			for _, e := range events {
				ids = append(ids, e.ID)
			}
			So(ids, ShouldResemble, []string{"y8-boys-sprint", "y8-girls-sprint", "y8-girls-relay"})
			So(events[0].Scores, ShouldResemble, scores.Scores{"red": 0, "blue": 0})
			So(events[0].YearName, ShouldEqual, "Year 8")
		})

		Convey("A broken schedule file leaves stored data alone and is reported", func() {
			_, err := svc.SetScores(ctx, "y7-boys-sprint", map[string]int64{"red": 3})
			So(err, ShouldBeNil)

			So(os.WriteFile(schedulePath, []byte("version: [oops"), 0o600), ShouldBeNil)
			report, err := svc.Rebuild(ctx)
			So(err, ShouldNotBeNil)
			So(report.OK(), ShouldBeFalse)

			last, ok := svc.LastRebuild()
			So(ok, ShouldBeTrue)
			So(last.Err, ShouldNotBeEmpty)

			e, err := svc.Event(ctx, "y7-boys-sprint")
			So(err, ShouldBeNil)
			So(e.Scores["red"], ShouldEqual, 3)
		})

		Convey("Rebuilding publishes on the schedule channel", func() {
			sub, err := svc.Hub().Subscribe(service.ChannelSchedule)
			So(err, ShouldBeNil)
			_, err = svc.Rebuild(ctx)
			So(err, ShouldBeNil)
			So(<-sub.Messages(), ShouldContainSubstring, `"events":5`)
		})
	})
}

func TestService_SetScores(t *testing.T) {
	Convey("Given a rebuilt service", t, func() {
		ctx := context.Background()
		svc, _ := newService(t, service.WithRebuildOnStart(true))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Valid scores are stored with missing forms zeroed and published", func() {
			sub, err := svc.Hub().Subscribe(service.ChannelScores)
			So(err, ShouldBeNil)

			e, err := svc.SetScores(ctx, "y8-girls-relay", map[string]int64{"blue": 7})
			So(err, ShouldBeNil)
			So(e.Scores, ShouldResemble, scores.Scores{"red": 0, "blue": 7})

			So(<-sub.Messages(), ShouldEqual, `{"event_id":"y8-girls-relay","scores":{"blue":7,"red":0}}`)
		})

		Convey("Unknown forms and negative values are rejected", func() {
			_, err := svc.SetScores(ctx, "y8-girls-relay", map[string]int64{"green": 1})
			So(errors.Is(err, service.ErrInvalidScores), ShouldBeTrue)

			_, err = svc.SetScores(ctx, "y8-girls-relay", map[string]int64{"red": -1})
			So(errors.Is(err, service.ErrInvalidScores), ShouldBeTrue)
		})

		Convey("Unknown events are not found", func() {
			_, err := svc.SetScores(ctx, "y9-boys-sprint", map[string]int64{"red": 1})
			So(err, ShouldNotBeNil)
		})

		Convey("The scoreboard sums per year and form", func() {
			_, _ = svc.SetScores(ctx, "y7-boys-sprint", map[string]int64{"red": 10, "blue": 8})
			_, _ = svc.SetScores(ctx, "y7-girls-sprint", map[string]int64{"red": 8, "blue": 10})
			_, _ = svc.SetScores(ctx, "y8-girls-relay", map[string]int64{"blue": 5})

			sb, err := svc.Scoreboard(ctx)
			So(err, ShouldBeNil)
			So(len(sb.Forms), ShouldEqual, 2)
			So(len(sb.Rows), ShouldEqual, 2)
			So(sb.Rows[0].YearID, ShouldEqual, "y7")
			So(sb.Rows[0].Cells, ShouldResemble, []int64{18, 18})
			So(sb.Rows[0].Total, ShouldEqual, 36)
			So(sb.Rows[1].Cells, ShouldResemble, []int64{0, 5})
			So(sb.FormTotals, ShouldResemble, []int64{18, 23})
			So(sb.GrandTotal, ShouldEqual, 41)

			results, err := svc.Results(ctx)
			So(err, ShouldBeNil)
			So(len(results), ShouldEqual, 5)
			So(results[0].Year, ShouldEqual, "Year 7")
			So(results[0].Group, ShouldEqual, "boys")
			So(results[0].Total, ShouldEqual, 18)
		})
	})
}

func TestService_UsersAndSessions(t *testing.T) {
	Convey("Given a started service with an admin email", t, func() {
		ctx := context.Background()
		svc, _ := newService(t, service.WithAdminEmail(" Head@School.example "))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("The admin account is bootstrapped", func() {
			users, err := svc.Users(ctx)
			So(err, ShouldBeNil)
			So(len(users), ShouldEqual, 1)
			So(users[0].Email, ShouldEqual, "head@school.example")
			So(users[0].HasAdmin, ShouldBeTrue)
		})

		Convey("Login requires the shared secret", func() {
			_, _, err := svc.Login(ctx, "coach@school.example", "wrong")
			So(errors.Is(err, service.ErrBadLogin), ShouldBeTrue)

			sess, u, err := svc.Login(ctx, "coach@school.example", "letmein")
			So(err, ShouldBeNil)
			So(u.HasSetScore, ShouldBeFalse)

			vs, err := svc.VerifySession(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(vs.Verified, ShouldBeTrue)

			So(svc.Logout(ctx, sess.ID), ShouldBeNil)
			vs, _ = svc.VerifySession(ctx, sess.ID)
			So(vs.Verified, ShouldBeFalse)
		})

		Convey("Empty session ids are unverified", func() {
			vs, err := svc.VerifySession(ctx, "")
			So(err, ShouldBeNil)
			So(vs.Verified, ShouldBeFalse)
		})

		Convey("Users can be created, promoted and deleted", func() {
			u, err := svc.CreateUser(ctx, service.User{Email: "Scorer@School.example"})
			So(err, ShouldBeNil)
			So(u.Email, ShouldEqual, "scorer@school.example")

			u.HasSetScore = true
			So(svc.UpdateUser(ctx, u), ShouldBeNil)
			got, err := svc.User(ctx, u.ID)
			So(err, ShouldBeNil)
			So(got.HasSetScore, ShouldBeTrue)

			So(svc.DeleteUser(ctx, u.ID), ShouldBeNil)
			_, err = svc.User(ctx, u.ID)
			So(err, ShouldNotBeNil)

			_, err = svc.CreateUser(ctx, service.User{Email: "not-an-email"})
			So(errors.Is(err, service.ErrInvalidUser), ShouldBeTrue)
		})

		Convey("The console only runs read-only statements", func() {
			res, err := svc.Query(ctx, "SELECT email FROM users")
			So(err, ShouldBeNil)
			So(res.Rows, ShouldResemble, [][]string{{"head@school.example"}})

			_, err = svc.Query(ctx, "DELETE FROM users")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a service without a login secret", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		svc := service.New(
			service.WithDBPath(filepath.Join(dir, "db.sqlite")),
			service.WithSchedulePath(writeSchedule(t, dir, testSchedule)),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		_, _, err := svc.Login(ctx, "a@b.example", "")
		So(errors.Is(err, service.ErrLoginDisabled), ShouldBeTrue)
	})
}
