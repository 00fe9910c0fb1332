package scores

// Board accumulates event scores into per-year and per-form totals.
// Only forms passed to NewBoard are counted.
type Board struct {
	forms      []string
	known      map[string]struct{}
	YearForm   map[string]Scores
	YearTotals map[string]int64
	FormTotals map[string]int64
	GrandTotal int64
}

// NewBoard creates an empty board over formIDs.
func NewBoard(formIDs []string) *Board {
	b := &Board{
		forms:      append([]string(nil), formIDs...),
		known:      make(map[string]struct{}, len(formIDs)),
		YearForm:   make(map[string]Scores),
		YearTotals: make(map[string]int64),
		FormTotals: make(map[string]int64, len(formIDs)),
	}
	for _, id := range formIDs {
		b.known[id] = struct{}{}
		b.FormTotals[id] = 0
	}
	return b
}

// Add folds one event's scores into yearID.
func (b *Board) Add(yearID string, s Scores) {
	year, ok := b.YearForm[yearID]
	if !ok {
		year = make(Scores, len(b.forms))
		b.YearForm[yearID] = year
	}
	for form, v := range s {
		if _, ok := b.known[form]; !ok {
			continue
		}
		year[form] += v
		b.YearTotals[yearID] += v
		b.FormTotals[form] += v
		b.GrandTotal += v
	}
}

// Cell returns the total for a year and form.
func (b *Board) Cell(yearID, formID string) int64 {
	return b.YearForm[yearID][formID]
}

// Forms returns the form ids in board order.
func (b *Board) Forms() []string {
	return append([]string(nil), b.forms...)
}
