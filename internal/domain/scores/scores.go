// Package scores holds the typed form-to-points mapping stored with every
// scheduled event, and the totals derived from it.
package scores

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Scores maps form id to points.
type Scores map[string]int64

// Parse decodes a stored scores blob. Values may be JSON integers or strings
// holding integers; anything else is rejected.
func Parse(raw string) (Scores, error) {
	if strings.TrimSpace(raw) == "" {
		return Scores{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	out := make(Scores, len(fields))
	for form, v := range fields {
		var n int64
		if err := json.Unmarshal(v, &n); err == nil {
			out[form] = n
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("%w: form %q has value %s", ErrMalformed, form, v)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: form %q has value %q", ErrMalformed, form, s)
		}
		out[form] = n
	}
	return out, nil
}

// String encodes the scores as a JSON object with keys in sorted order.
func (s Scores) String() string {
	if len(s) == 0 {
		return "{}"
	}
	b, err := json.Marshal(map[string]int64(s))
	if err != nil {
		// map[string]int64 always encodes
		return "{}"
	}
	return string(b)
}

// Validate checks that every form is known and no score is negative.
func (s Scores) Validate(formIDs []string) error {
	known := make(map[string]struct{}, len(formIDs))
	for _, id := range formIDs {
		known[id] = struct{}{}
	}
	for form, v := range s {
		if _, ok := known[form]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownForm, form)
		}
		if v < 0 {
			return fmt.Errorf("%w: form %q has %d", ErrNegative, form, v)
		}
	}
	return nil
}

// Normalize returns a copy holding every form in formIDs, missing ones set to zero.
func (s Scores) Normalize(formIDs []string) Scores {
	out := make(Scores, len(formIDs))
	for _, id := range formIDs {
		out[id] = s[id]
	}
	return out
}

// Total sums all points.
func (s Scores) Total() int64 {
	var t int64
	for _, v := range s {
		t += v
	}
	return t
}
