package loadsim

import (
	"math/rand/v2"

	"github.com/okian/sportsday/internal/domain/scores"
)

// generateUpdates picks n random (event, scores) pairs. The same seed always
// yields the same sequence.
func generateUpdates(seed uint64, events []Event, forms []Form, n int, maxScore int64) []Update {
	if len(events) == 0 || n <= 0 {
		return nil
	}
	if maxScore <= 0 {
		maxScore = 1
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x5eed))

	updates := make([]Update, n)
	for i := range updates {
		ev := events[rng.IntN(len(events))]
		sc := make(scores.Scores, len(forms))
		for _, f := range forms {
			sc[f.ID] = rng.Int64N(maxScore + 1)
		}
		updates[i] = Update{Seq: i, EventID: ev.ID, Scores: sc}
	}
	return updates
}

// partition deals updates to workers so every update for one event lands on
// the same worker, in generation order. That keeps the last write per event
// well defined no matter how the workers interleave.
func partition(updates []Update, workers int) [][]Update {
	if workers < 1 {
		workers = 1
	}
	owner := make(map[string]int)
	out := make([][]Update, workers)
	next := 0
	for _, u := range updates {
		w, ok := owner[u.EventID]
		if !ok {
			w = next % workers
			owner[u.EventID] = w
			next++
		}
		out[w] = append(out[w], u)
	}
	return out
}

// expectedScores applies updates, in order, on top of the initial event
// scores.
func expectedScores(events []Event, updates []Update) map[string]scores.Scores {
	final := make(map[string]scores.Scores, len(events))
	for _, e := range events {
		final[e.ID] = e.Scores
	}
	for _, u := range updates {
		final[u.EventID] = u.Scores
	}
	return final
}
