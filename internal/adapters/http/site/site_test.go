package site_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sportsday/internal/adapters/http/session"
	"github.com/okian/sportsday/internal/adapters/http/site"
	service "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/internal/domain/scores"
	"github.com/okian/sportsday/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const testSchedule = `
version: "2024.1"
notes: |
  **Welcome** to sports day.
  <script>alert(1)</script>
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

const (
	adminEmail = "head@school.example"
	secret     = "letmein"
)

type harness struct {
	svc     *service.Service
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	schedulePath := filepath.Join(dir, "schedule.yaml")
	if err := os.WriteFile(schedulePath, []byte(testSchedule), 0o600); err != nil {
		t.Fatalf("write schedule: %v", err)
	}
	svc := service.New(
		service.WithDBPath(filepath.Join(dir, "db.sqlite")),
		service.WithSchedulePath(schedulePath),
		service.WithRebuildOnStart(true),
		service.WithAdminEmail(adminEmail),
		service.WithLoginSecret(secret),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)

	sessions, err := session.NewManager(session.Config{HashKey: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	s, err := site.New(svc, sessions)
	if err != nil {
		t.Fatalf("site: %v", err)
	}
	r := chi.NewRouter()
	r.Use(sessions.Middleware(svc))
	s.Register(r)
	return &harness{svc: svc, handler: r}
}

func (h *harness) get(path string, c *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if c != nil {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func (h *harness) post(path string, form url.Values, c *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c != nil {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func (h *harness) login(email string) *http.Cookie {
	w := h.post("/login", url.Values{"email": {email}, "secret": {secret}}, nil)
	So(w.Code, ShouldEqual, http.StatusSeeOther)
	cookies := w.Result().Cookies()
	So(cookies, ShouldHaveLength, 1)
	return cookies[0]
}

func TestPublicPages(t *testing.T) {
	Convey("Given a running site", t, func() {
		h := newHarness(t)

		Convey("The index renders sanitized notes", func() {
			w := h.get("/", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			body := w.Body.String()
			So(body, ShouldContainSubstring, "<strong>Welcome</strong>")
			So(body, ShouldNotContainSubstring, "alert(1)")
			So(body, ShouldContainSubstring, "5 scheduled events")
		})

		Convey("The scoreboard and its partial render", func() {
			w := h.get("/scoreboard", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "Year 8")

			w = h.get("/scoreboard/partial", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldStartWith, `<table id="scoreboard">`)
		})

		Convey("Results can be filtered by group", func() {
			w := h.get("/results?group=girls", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "Relay")

			w = h.get("/results?group=boys", nil)
			So(w.Body.String(), ShouldNotContainSubstring, "Relay")
		})

		Convey("Protected pages redirect anonymous visitors", func() {
			for _, p := range []string{"/set-scores", "/admin", "/admin/users"} {
				w := h.get(p, nil)
				So(w.Code, ShouldEqual, http.StatusSeeOther)
				So(w.Header().Get("Location"), ShouldEqual, "/login")
			}
		})
	})
}

func TestLogin(t *testing.T) {
	Convey("Given a running site", t, func() {
		h := newHarness(t)

		Convey("A wrong secret is refused", func() {
			w := h.post("/login", url.Values{"email": {adminEmail}, "secret": {"nope"}}, nil)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(w.Body.String(), ShouldContainSubstring, "wrong secret")
		})

		Convey("A new account may sign in but not enter scores", func() {
			c := h.login("parent@school.example")
			So(h.get("/", c).Body.String(), ShouldContainSubstring, "parent@school.example")
			So(h.get("/set-scores", c).Code, ShouldEqual, http.StatusForbidden)
			So(h.get("/admin", c).Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("Signing out ends the session", func() {
			c := h.login(adminEmail)
			So(h.get("/admin", c).Code, ShouldEqual, http.StatusOK)

			w := h.post("/logout", nil, c)
			So(w.Code, ShouldEqual, http.StatusSeeOther)
			So(h.get("/admin", c).Code, ShouldEqual, http.StatusSeeOther)
		})
	})
}

func TestSetScores(t *testing.T) {
	Convey("Given an admin session", t, func() {
		h := newHarness(t)
		c := h.login(adminEmail)

		Convey("The form lists filtered events", func() {
			w := h.get("/set-scores?year=y8&group=girls", c)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := w.Body.String()
			So(body, ShouldContainSubstring, `value="y8-girls-relay"`)
			So(body, ShouldNotContainSubstring, `value="y7-boys-sprint"`)
		})

		Convey("Posting scores stores them and redirects back", func() {
			form := url.Values{"event_id": {"y8-girls-relay"}, "score_blue": {"7"}, "score_red": {""}}
			w := h.post("/set-scores?year=y8", form, c)
			So(w.Code, ShouldEqual, http.StatusSeeOther)
			So(w.Header().Get("Location"), ShouldEqual, "/set-scores?saved=y8-girls-relay&year=y8")

			ev, err := h.svc.Event(context.Background(), "y8-girls-relay")
			So(err, ShouldBeNil)
			So(ev.Scores, ShouldResemble, scores.Scores{"blue": 7, "red": 0})
		})

		Convey("Non-numeric scores are rejected", func() {
			form := url.Values{"event_id": {"y8-girls-relay"}, "score_blue": {"lots"}}
			So(h.post("/set-scores", form, c).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Unknown forms are rejected", func() {
			form := url.Values{"event_id": {"y8-girls-relay"}, "score_green": {"1"}}
			So(h.post("/set-scores", form, c).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Unknown events are 404", func() {
			form := url.Values{"event_id": {"y9-boys-sprint"}, "score_blue": {"1"}}
			So(h.post("/set-scores", form, c).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAdminPages(t *testing.T) {
	Convey("Given an admin session", t, func() {
		h := newHarness(t)
		c := h.login(adminEmail)

		Convey("The index shows the last rebuild", func() {
			w := h.get("/admin", c)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "2024.1")
		})

		Convey("Rebuild redirects with the outcome", func() {
			w := h.post("/admin/rebuild", nil, c)
			So(w.Code, ShouldEqual, http.StatusSeeOther)
			So(w.Header().Get("Location"), ShouldEqual, "/admin?rebuild=ok")
		})

		Convey("Users can be created, edited and deleted", func() {
			w := h.post("/admin/users", url.Values{"email": {"Scorer@School.example"}, "has_set_score": {"on"}}, c)
			So(w.Code, ShouldEqual, http.StatusSeeOther)

			users, err := h.svc.Users(context.Background())
			So(err, ShouldBeNil)
			var created service.User
			for _, u := range users {
				if u.Email == "scorer@school.example" {
					created = u
				}
			}
			So(created.ID, ShouldBeGreaterThan, 0)
			So(created.HasSetScore, ShouldBeTrue)
			So(h.get("/admin/users", c).Body.String(), ShouldContainSubstring, "scorer@school.example")

			w = h.post("/admin/users", url.Values{"email": {"scorer@school.example"}}, c)
			So(w.Code, ShouldEqual, http.StatusConflict)

			w = h.post("/admin/users", url.Values{"email": {"not-an-email"}}, c)
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			path := "/admin/users/" + strconv.FormatInt(created.ID, 10)
			So(h.get(path+"/edit", c).Code, ShouldEqual, http.StatusOK)
			w = h.post(path, url.Values{"email": {"scorer@school.example"}, "has_admin": {"on"}}, c)
			So(w.Code, ShouldEqual, http.StatusSeeOther)
			u, err := h.svc.User(context.Background(), created.ID)
			So(err, ShouldBeNil)
			So(u.HasAdmin, ShouldBeTrue)
			So(u.HasSetScore, ShouldBeFalse)

			So(h.post(path+"/delete", nil, c).Code, ShouldEqual, http.StatusSeeOther)
			So(h.get(path+"/edit", c).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("The console runs reads and refuses writes", func() {
			w := h.post("/admin/sqlite/execute", url.Values{"query": {"SELECT name FROM years"}}, c)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "Year 7")

			w = h.post("/admin/sqlite/execute", url.Values{"query": {"DELETE FROM years"}}, c)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			years, err := h.svc.Years(context.Background())
			So(err, ShouldBeNil)
			So(years, ShouldHaveLength, 2)
		})

		Convey("Logs render and clear", func() {
			h.svc.Logs().Add(0, "hello from the test", "test")
			w := h.get("/admin/logs", c)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "hello from the test")

			So(h.post("/admin/logs/clear", nil, c).Code, ShouldEqual, http.StatusSeeOther)
			So(h.svc.Logs().Len(), ShouldEqual, 0)
		})
	})
}
