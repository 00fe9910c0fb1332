package schedule

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// document mirrors the YAML layout. Pointers distinguish absent fields from zero values.
type document struct {
	Version *string     `yaml:"version"`
	Notes   string      `yaml:"notes"`
	Genders *[]string   `yaml:"genders"`
	Scores  *[]scoreDoc `yaml:"scores"`
	Years   *[]yearDoc  `yaml:"years"`
	Forms   *[]formDoc  `yaml:"forms"`
	Events  *[]eventDoc `yaml:"events"`
}

type scoreDoc struct {
	Name    *string `yaml:"name"`
	Value   *int64  `yaml:"value"`
	Default *bool   `yaml:"default"`
}

type yearDoc struct {
	ID   *string `yaml:"id"`
	Name *string `yaml:"name"`
}

type formDoc struct {
	ID     *string `yaml:"id"`
	Name   *string `yaml:"name"`
	Colour *string `yaml:"colour"`
}

type eventDoc struct {
	ID                *string `yaml:"id"`
	Name              *string `yaml:"name"`
	ApplicableYears   *Rule   `yaml:"applicable_years"`
	ApplicableGenders *Rule   `yaml:"applicable_genders"`
}

// UnmarshalYAML decodes the tagged form {type: include, ids: [...]}.
func (r *Rule) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: rule must be a mapping", n.Line)
	}
	var (
		kind   string
		ids    []string
		hasIDs bool
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "type":
			if err := val.Decode(&kind); err != nil {
				return fmt.Errorf("line %d: rule type: %w", val.Line, err)
			}
		case "ids":
			if err := val.Decode(&ids); err != nil {
				return fmt.Errorf("line %d: rule ids: %w", val.Line, err)
			}
			hasIDs = true
		default:
			return fmt.Errorf("line %d: field %s not found in rule", key.Line, key.Value)
		}
	}

	switch RuleKind(kind) {
	case RuleAll, RuleNone:
		if hasIDs {
			return fmt.Errorf("line %d: rule %q does not take ids", n.Line, kind)
		}
		*r = Rule{Kind: RuleKind(kind)}
	case RuleInclude, RuleExclude:
		if !hasIDs {
			return fmt.Errorf("line %d: rule %q requires ids", n.Line, kind)
		}
		*r = Rule{Kind: RuleKind(kind), IDs: ids}
	case "":
		return fmt.Errorf("line %d: rule is missing type", n.Line)
	default:
		return fmt.Errorf("line %d: unknown rule type %q", n.Line, kind)
	}
	return nil
}

// LoadFile reads and parses the schedule at path.
func LoadFile(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return Load(bytes.NewReader(data))
}

// Load parses a schedule document. Unknown fields, missing required fields
// and inconsistent ids are rejected; no partially populated Configuration is returned.
func Load(r io.Reader) (*Configuration, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrConfigParse)
		}
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}

	cfg, err := doc.configuration()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (d *document) configuration() (*Configuration, error) {
	switch {
	case d.Version == nil:
		return nil, errors.New("missing field version")
	case d.Genders == nil:
		return nil, errors.New("missing field genders")
	case d.Scores == nil:
		return nil, errors.New("missing field scores")
	case d.Years == nil:
		return nil, errors.New("missing field years")
	case d.Forms == nil:
		return nil, errors.New("missing field forms")
	case d.Events == nil:
		return nil, errors.New("missing field events")
	}

	cfg := &Configuration{
		Version: *d.Version,
		Notes:   d.Notes,
		Genders: append([]string(nil), *d.Genders...),
		Scores:  make([]Score, 0, len(*d.Scores)),
		Years:   make([]Year, 0, len(*d.Years)),
		Forms:   make([]Form, 0, len(*d.Forms)),
		Events:  make([]Event, 0, len(*d.Events)),
	}

	for i, s := range *d.Scores {
		if s.Name == nil || s.Value == nil || s.Default == nil {
			return nil, fmt.Errorf("scores[%d]: name, value and default are required", i)
		}
		cfg.Scores = append(cfg.Scores, Score{Name: *s.Name, Value: *s.Value, Default: *s.Default})
	}
	for i, y := range *d.Years {
		if y.ID == nil || y.Name == nil {
			return nil, fmt.Errorf("years[%d]: id and name are required", i)
		}
		cfg.Years = append(cfg.Years, Year{ID: *y.ID, Name: *y.Name})
	}
	for i, f := range *d.Forms {
		if f.ID == nil || f.Name == nil || f.Colour == nil {
			return nil, fmt.Errorf("forms[%d]: id, name and colour are required", i)
		}
		cfg.Forms = append(cfg.Forms, Form{ID: *f.ID, Name: *f.Name, Colour: *f.Colour})
	}
	for i, e := range *d.Events {
		if e.ID == nil || e.Name == nil {
			return nil, fmt.Errorf("events[%d]: id and name are required", i)
		}
		if e.ApplicableYears == nil || e.ApplicableGenders == nil {
			return nil, fmt.Errorf("events[%d]: applicable_years and applicable_genders are required", i)
		}
		cfg.Events = append(cfg.Events, Event{
			ID:                *e.ID,
			Name:              *e.Name,
			ApplicableYears:   *e.ApplicableYears,
			ApplicableGenders: *e.ApplicableGenders,
		})
	}
	return cfg, nil
}

// Validate rejects empty or duplicate ids, ids containing the composite id
// separator, and rules that name unknown years or genders.
func (c *Configuration) Validate() error {
	years := make(map[string]struct{}, len(c.Years))
	for _, y := range c.Years {
		if err := checkID("year", y.ID, years); err != nil {
			return err
		}
	}
	genders := make(map[string]struct{}, len(c.Genders))
	for _, g := range c.Genders {
		if err := checkID("gender", g, genders); err != nil {
			return err
		}
	}
	forms := make(map[string]struct{}, len(c.Forms))
	for _, f := range c.Forms {
		if strings.TrimSpace(f.ID) == "" {
			return fmt.Errorf("%w: form id must not be empty", ErrConfigParse)
		}
		if _, dup := forms[f.ID]; dup {
			return fmt.Errorf("%w: duplicate form id %q", ErrConfigParse, f.ID)
		}
		forms[f.ID] = struct{}{}
	}
	events := make(map[string]struct{}, len(c.Events))
	for _, e := range c.Events {
		if err := checkID("event", e.ID, events); err != nil {
			return err
		}
		if err := checkRule(e.ID, "applicable_years", e.ApplicableYears, years); err != nil {
			return err
		}
		if err := checkRule(e.ID, "applicable_genders", e.ApplicableGenders, genders); err != nil {
			return err
		}
	}
	return nil
}

func checkID(kind, id string, seen map[string]struct{}) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s id must not be empty", ErrConfigParse, kind)
	}
	if strings.Contains(id, IDSeparator) {
		return fmt.Errorf("%w: %s id %q must not contain %q", ErrConfigParse, kind, id, IDSeparator)
	}
	if _, dup := seen[id]; dup {
		return fmt.Errorf("%w: duplicate %s id %q", ErrConfigParse, kind, id)
	}
	seen[id] = struct{}{}
	return nil
}

func checkRule(eventID, field string, r Rule, known map[string]struct{}) error {
	switch r.Kind {
	case RuleAll, RuleNone:
		return nil
	case RuleInclude, RuleExclude:
		for _, id := range r.IDs {
			if _, ok := known[id]; !ok {
				return fmt.Errorf("%w: event %q %s references unknown id %q", ErrConfigParse, eventID, field, id)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: event %q %s has unknown rule type %q", ErrConfigParse, eventID, field, r.Kind)
	}
}
