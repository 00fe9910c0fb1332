package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { _ = Sync() }()

		Convey("Get and Named return usable loggers", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("service"), ShouldNotBeNil)
			So(func() { Named("service").Info(context.Background(), "started", String("db", "./db.sqlite")) }, ShouldNotPanic)
		})

		Convey("A collector sees what the global logger writes", func() {
			c := NewCollector(4)
			So(InitWithCollector(c), ShouldBeNil)
			Named("rebuild").Warn(context.Background(), "schedule missing")
			So(c.Len(), ShouldEqual, 1)
			So(c.Entries()[0].Module, ShouldEqual, "rebuild")
			So(c.Entries()[0].Level, ShouldEqual, "WARN")
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given a collector-backed global logger", t, func() {
		c := NewCollector(10)
		So(InitWithCollector(c), ShouldBeNil)
		defer func() { _ = SetLevelString("info") }()

		Convey("Debug records are dropped at info level", func() {
			Get().Debug(context.Background(), "hidden")
			So(c.Len(), ShouldEqual, 0)
		})

		Convey("Raising to debug lets them through", func() {
			So(SetLevelString(" DEBUG "), ShouldBeNil)
			Get().Debug(context.Background(), "shown")
			So(c.Len(), ShouldEqual, 1)
		})

		Convey("Warning is accepted as an alias", func() {
			So(SetLevelString("warning"), ShouldBeNil)
			Get().Info(context.Background(), "quiet")
			So(c.Len(), ShouldEqual, 0)
		})

		Convey("Unknown levels are refused", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})
	})
}

func TestFields(t *testing.T) {
	Convey("Given a standalone logger writing text", t, func() {
		var buf bytes.Buffer
		log := New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		Convey("Fields and the caller are rendered", func() {
			log.Error(context.Background(), "apply failed",
				String("step", "insert_event"),
				Int("events", 12),
				Bool("rolled_back", true),
				Error(errors.New("disk full")),
			)
			out := buf.String()
			So(out, ShouldContainSubstring, "step=insert_event")
			So(out, ShouldContainSubstring, "events=12")
			So(out, ShouldContainSubstring, "rolled_back=true")
			So(out, ShouldContainSubstring, `error="disk full"`)
			So(out, ShouldContainSubstring, "logger_test.go:")
		})
	})
}
