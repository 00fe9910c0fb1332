package loadsim

import (
	"fmt"
)

// verifyScoreboard checks that the year totals and the grand total equal the
// sums of the scores the server accepted.
func verifyScoreboard(events []Event, applied []Update, board Scoreboard) error {
	final := expectedScores(events, applied)

	yearOf := make(map[string]string, len(events))
	for _, e := range events {
		yearOf[e.ID] = e.YearID
	}

	want := make(map[string]int64)
	var grand int64
	for id, sc := range final {
		t := sc.Total()
		want[yearOf[id]] += t
		grand += t
	}

	for _, row := range board.Rows {
		if row.Total != want[row.YearID] {
			return fmt.Errorf("%w: year %s total %d, expected %d", ErrMismatch, row.YearID, row.Total, want[row.YearID])
		}
		delete(want, row.YearID)
	}
	for year, t := range want {
		if t != 0 {
			return fmt.Errorf("%w: year %s missing from scoreboard, expected %d", ErrMismatch, year, t)
		}
	}
	if board.GrandTotal != grand {
		return fmt.Errorf("%w: grand total %d, expected %d", ErrMismatch, board.GrandTotal, grand)
	}
	return nil
}
