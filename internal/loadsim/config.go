// Package loadsim drives a running sportsday server the way a room full of
// scorers would: it signs in, fires concurrent score updates at the API and
// checks that the scoreboard adds up afterwards.
package loadsim

import (
	"time"

	"github.com/okian/sportsday/internal/domain/scores"
)

// Config holds configuration for a simulation run
type Config struct {
	BaseURL  string        // Base URL of the server
	Email    string        // Account used to sign in
	Secret   string        // Shared login secret
	Updates  int           // Number of score updates to send
	Workers  int           // Number of concurrent workers
	MaxScore int64         // Upper bound for a generated score
	Timeout  time.Duration // HTTP request timeout
	Seed     uint64        // Seed for the update generator
	Watch    bool          // Count websocket notifications while running
	Verbose  bool          // Log every update
}

// Event is the subset of an API event the simulator needs.
type Event struct {
	ID     string        `json:"id"`
	YearID string        `json:"year_id"`
	Scores scores.Scores `json:"scores"`
}

// Form is a scoring form as listed on the scoreboard.
type Form struct {
	ID string `json:"id"`
}

// Row is one year of the scoreboard.
type Row struct {
	YearID string `json:"year_id"`
	Total  int64  `json:"total"`
}

// Scoreboard is the API scoreboard response.
type Scoreboard struct {
	Forms      []Form  `json:"forms"`
	Rows       []Row   `json:"rows"`
	FormTotals []int64 `json:"form_totals"`
	GrandTotal int64   `json:"grand_total"`
}

// Update is one PUT of scores for an event.
type Update struct {
	Seq     int
	EventID string
	Scores  scores.Scores
}

// Stats holds run statistics
type Stats struct {
	UpdatesGenerated  int
	UpdatesSubmitted  int
	UpdatesSuccessful int
	UpdatesRejected   int
	UpdatesFailed     int
	Notifications     int
	GrandTotal        int64
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
