package schedule_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/sportsday/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

const validDocument = `
version: "1.0.0"
notes: |
  # Welcome
genders:
  - boys
  - girls
  - mixed
scores:
  - name: "1st"
    value: 10
    default: true
  - name: "2nd"
    value: 8
    default: false
years:
  - id: year7
    name: "Year 7"
  - id: year8
    name: "Year 8"
forms:
  - id: form1
    name: "Form 1"
    colour: "#ff0000"
events:
  - id: sprint
    name: "100m Sprint"
    applicable_years:
      type: all
    applicable_genders:
      type: all
  - id: relay
    name: "Relay"
    applicable_years:
      type: include
      ids: [year8]
    applicable_genders:
      type: exclude
      ids: [mixed]
`

func TestLoad(t *testing.T) {
	Convey("Given a valid schedule document", t, func() {
		cfg, err := schedule.Load(strings.NewReader(validDocument))

		Convey("Then every section is populated in order", func() {
			So(err, ShouldBeNil)
			So(cfg.Version, ShouldEqual, "1.0.0")
			So(cfg.Notes, ShouldStartWith, "# Welcome")
			So(cfg.Genders, ShouldResemble, []string{"boys", "girls", "mixed"})
			So(len(cfg.Scores), ShouldEqual, 2)
			So(cfg.Scores[0], ShouldResemble, schedule.Score{Name: "1st", Value: 10, Default: true})
			So(cfg.Years[1].ID, ShouldEqual, "year8")
			So(cfg.Forms[0].Colour, ShouldEqual, "#ff0000")
			So(cfg.Events[0].ApplicableYears, ShouldResemble, schedule.All())
			So(cfg.Events[1].ApplicableYears, ShouldResemble, schedule.Include("year8"))
			So(cfg.Events[1].ApplicableGenders, ShouldResemble, schedule.Exclude("mixed"))
		})
	})

	Convey("Given documents missing a required top-level field", t, func() {
		eventsAt := strings.Index(validDocument, "events:")
		cases := map[string]string{
			"version": strings.Replace(validDocument, "version: \"1.0.0\"\n", "", 1),
			"genders": strings.Replace(validDocument, "genders:\n  - boys\n  - girls\n  - mixed\n", "", 1),
			"events":  validDocument[:eventsAt],
		}

		for field, doc := range cases {
			Convey("When "+field+" is left out", func() {
				So(strings.Contains(doc, "\n"+field+":"), ShouldBeFalse)
				cfg, err := schedule.Load(strings.NewReader(doc))

				Convey("Then the missing field is named", func() {
					So(errors.Is(err, schedule.ErrConfigParse), ShouldBeTrue)
					So(err.Error(), ShouldContainSubstring, "missing field "+field)
					So(cfg, ShouldBeNil)
				})
			})
		}
	})

	Convey("Given documents that must be rejected as parse errors", t, func() {
		cases := map[string]string{
			"syntax error":        "version: [",
			"empty document":      "",
			"unknown top field":   validDocument + "\nextra: true\n",
			"missing rule type":   strings.Replace(validDocument, "      type: all\n    applicable_genders:\n      type: all\n  - id: relay", "      {}\n    applicable_genders:\n      type: all\n  - id: relay", 1),
			"unknown rule type":   strings.Replace(validDocument, "type: include", "type: maybe", 1),
			"include without ids": strings.Replace(validDocument, "      ids: [year8]\n", "", 1),
			"ids on all rule":     strings.Replace(validDocument, "      type: all\n    applicable_genders:\n      type: all\n  - id: relay", "      type: all\n      ids: [year7]\n    applicable_genders:\n      type: all\n  - id: relay", 1),
			"missing form colour": strings.Replace(validDocument, "    colour: \"#ff0000\"\n", "", 1),
			"missing score value": strings.Replace(validDocument, "    value: 8\n", "", 1),
			"duplicate year":      strings.Replace(validDocument, "id: year8", "id: year7", 1),
			"separator in id":     strings.Replace(validDocument, "- id: sprint", "- id: sprint"+schedule.IDSeparator+"100", 1),
			"unknown rule id":     strings.Replace(validDocument, "ids: [year8]", "ids: [year13]", 1),
			"duplicate gender":    strings.Replace(validDocument, "  - mixed\n", "  - boys\n", 1),
		}

		for name, doc := range cases {
			Convey("When the document has "+name, func() {
				cfg, err := schedule.Load(strings.NewReader(doc))

				Convey("Then a ConfigParse error is returned and no configuration", func() {
					So(err, ShouldNotBeNil)
					So(errors.Is(err, schedule.ErrConfigParse), ShouldBeTrue)
					So(cfg, ShouldBeNil)
				})
			})
		}
	})

	Convey("Given a document with empty lists", t, func() {
		doc := "version: \"2\"\ngenders: []\nscores: []\nyears: []\nforms: []\nevents: []\n"
		cfg, err := schedule.Load(strings.NewReader(doc))

		Convey("Then it loads as an empty configuration", func() {
			So(err, ShouldBeNil)
			So(cfg.Years, ShouldBeEmpty)
			So(cfg.Events, ShouldBeEmpty)
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a schedule file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "schedule.yaml")
		So(os.WriteFile(path, []byte(validDocument), 0o600), ShouldBeNil)

		Convey("When it is loaded", func() {
			cfg, err := schedule.LoadFile(path)

			Convey("Then it parses", func() {
				So(err, ShouldBeNil)
				So(len(cfg.Events), ShouldEqual, 2)
			})
		})
	})

	Convey("Given the sample schedule shipped at the repository root", t, func() {
		cfg, err := schedule.LoadFile(filepath.Join("..", "..", "..", "config.yaml"))

		Convey("Then it loads and validates", func() {
			So(err, ShouldBeNil)
			So(cfg.Years, ShouldNotBeEmpty)
			So(cfg.Forms, ShouldNotBeEmpty)
			So(cfg.Events, ShouldNotBeEmpty)
			So(len(cfg.Scores), ShouldEqual, 5)
		})
	})

	Convey("Given a path that does not exist", t, func() {
		cfg, err := schedule.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))

		Convey("Then an IO error is returned", func() {
			So(errors.Is(err, schedule.ErrIO), ShouldBeTrue)
			So(errors.Is(err, schedule.ErrConfigParse), ShouldBeFalse)
			So(cfg, ShouldBeNil)
		})
	})
}
