// Package schedule models the declarative sports-day schedule: years, genders,
// forms, scoring tiers and events with their applicability rules.
//
// A Configuration is loaded once per rebuild and treated as immutable
// afterwards; all methods are safe for concurrent readers.
package schedule

import (
	"slices"
	"strings"
)

// IDSeparator joins year, gender and event ids into composite event ids.
// Configured ids must not contain it.
const IDSeparator = "-"

// RuleKind enumerates the applicability policies.
type RuleKind string

const (
	RuleAll     RuleKind = "all"
	RuleNone    RuleKind = "none"
	RuleInclude RuleKind = "include"
	RuleExclude RuleKind = "exclude"
)

// Rule decides whether an event applies to a year or gender id.
// IDs is only meaningful for RuleInclude and RuleExclude.
type Rule struct {
	Kind RuleKind
	IDs  []string
}

// All returns a rule that always applies.
func All() Rule { return Rule{Kind: RuleAll} }

// None returns a rule that never applies.
func None() Rule { return Rule{Kind: RuleNone} }

// Include returns a rule that applies only to the given ids.
func Include(ids ...string) Rule { return Rule{Kind: RuleInclude, IDs: slices.Clone(ids)} }

// Exclude returns a rule that applies to every id except the given ones.
func Exclude(ids ...string) Rule { return Rule{Kind: RuleExclude, IDs: slices.Clone(ids)} }

// Applies evaluates the rule against id. Unknown kinds never apply.
func (r Rule) Applies(id string) bool {
	switch r.Kind {
	case RuleAll:
		return true
	case RuleNone:
		return false
	case RuleInclude:
		return slices.Contains(r.IDs, id)
	case RuleExclude:
		return !slices.Contains(r.IDs, id)
	default:
		return false
	}
}

// String renders the rule for display, e.g. "include: year7, year8".
func (r Rule) String() string {
	if len(r.IDs) == 0 {
		return string(r.Kind)
	}
	return string(r.Kind) + ": " + strings.Join(r.IDs, ", ")
}

// Score is a points tier offered when entering results.
type Score struct {
	Name    string `yaml:"name" json:"name"`
	Value   int64  `yaml:"value" json:"value"`
	Default bool   `yaml:"default" json:"default"`
}

// Year is a school year taking part.
type Year struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Form is a team that accumulates points.
type Form struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Colour string `yaml:"colour" json:"colour"`
}

// Event is an activity with its year and gender applicability.
type Event struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	ApplicableYears   Rule   `json:"-"`
	ApplicableGenders Rule   `json:"-"`
}

// IsApplicableToYear reports whether the event runs for yearID.
func (e Event) IsApplicableToYear(yearID string) bool {
	return e.ApplicableYears.Applies(yearID)
}

// IsApplicableToGender reports whether the event runs for genderID.
func (e Event) IsApplicableToGender(genderID string) bool {
	return e.ApplicableGenders.Applies(genderID)
}

// Configuration is the complete schedule definition.
type Configuration struct {
	Version string
	// Notes is optional markdown shown on the landing page.
	Notes   string
	Genders []string
	Scores  []Score
	Years   []Year
	Forms   []Form
	Events  []Event
}

// YearName returns the display name of a year, or the id itself when unknown.
func (c *Configuration) YearName(id string) string {
	for _, y := range c.Years {
		if y.ID == id {
			return y.Name
		}
	}
	return id
}

// Form looks up a form by id.
func (c *Configuration) Form(id string) (Form, bool) {
	for _, f := range c.Forms {
		if f.ID == id {
			return f, true
		}
	}
	return Form{}, false
}

// FormIDs returns form ids in configuration order.
func (c *Configuration) FormIDs() []string {
	ids := make([]string, len(c.Forms))
	for i, f := range c.Forms {
		ids[i] = f.ID
	}
	return ids
}

// Event looks up an event by id.
func (c *Configuration) Event(id string) (Event, bool) {
	for _, e := range c.Events {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}

// DefaultScore returns the first tier flagged as default.
func (c *Configuration) DefaultScore() (Score, bool) {
	for _, s := range c.Scores {
		if s.Default {
			return s, true
		}
	}
	return Score{}, false
}
