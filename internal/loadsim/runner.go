package loadsim

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sportsday/pkg/logger"
)

// Error constants
var (
	ErrNoEvents = errors.New("server has no scheduled events")
	ErrMismatch = errors.New("scoreboard does not match submitted scores")
)

// percentageMultiplier converts a ratio into a percentage.
const percentageMultiplier = 100

// Run executes the complete simulation.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{
		StartTime: time.Now(),
	}
	log := logger.Get().Named("loadsim")

	log.Info(ctx, "starting score simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("updates", config.Updates),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("watch", config.Watch))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check server health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("health check failed: %w", err)
	}

	// Step 2: Sign in
	if err := client.Login(ctx, config.Email, config.Secret); err != nil {
		return stats, err
	}

	// Step 3: Load the schedule
	events, err := client.Events(ctx)
	if err != nil {
		return stats, err
	}
	if len(events) == 0 {
		return stats, ErrNoEvents
	}
	board, err := client.Scoreboard(ctx)
	if err != nil {
		return stats, err
	}

	// Step 4: Generate updates
	updates := generateUpdates(config.Seed, events, board.Forms, config.Updates, config.MaxScore)
	stats.UpdatesGenerated = len(updates)

	var notes *watcher
	if config.Watch {
		notes, err = startWatcher(ctx, config.BaseURL)
		if err != nil {
			log.Warn(ctx, "websocket watch disabled", logger.Error(err))
		}
	}

	// Step 5: Submit updates concurrently
	applied := submitUpdates(ctx, client, config, updates, stats)

	if notes != nil {
		stats.Notifications = notes.stop()
	}

	// Step 6: Verify totals
	board, err = client.Scoreboard(ctx)
	if err != nil {
		return stats, err
	}
	stats.GrandTotal = board.GrandTotal
	if err := verifyScoreboard(events, applied, board); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// submitUpdates runs one worker per partition and returns the updates the
// server accepted, in generation order.
func submitUpdates(ctx context.Context, client *HTTPClient, config *Config, updates []Update, stats *Stats) []Update {
	log := logger.Get().Named("loadsim")
	ok := make([]bool, len(updates))

	var (
		successful int64
		rejected   int64
		failed     int64
		wg         sync.WaitGroup
	)
	for _, batch := range partition(updates, config.Workers) {
		wg.Add(1)
		go func(batch []Update) {
			defer wg.Done()
			for _, u := range batch {
				if ctx.Err() != nil {
					return
				}
				err := client.PutScores(ctx, u)
				var se *StatusError
				switch {
				case err == nil:
					ok[u.Seq] = true
					atomic.AddInt64(&successful, 1)
				case errors.As(err, &se) && se.Status < http.StatusInternalServerError:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
				if config.Verbose || err != nil {
					log.Debug(ctx, "score update",
						logger.String("event", u.EventID),
						logger.Any("scores", u.Scores),
						logger.Error(err))
				}
			}
		}(batch)
	}
	wg.Wait()

	stats.UpdatesSuccessful = int(successful)
	stats.UpdatesRejected = int(rejected)
	stats.UpdatesFailed = int(failed)
	stats.UpdatesSubmitted = stats.UpdatesSuccessful + stats.UpdatesRejected + stats.UpdatesFailed

	applied := make([]Update, 0, stats.UpdatesSuccessful)
	for i, u := range updates {
		if ok[i] {
			applied = append(applied, u)
		}
	}
	return applied
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, updatesPerSecond float64

	if stats.UpdatesSubmitted > 0 {
		successRate = float64(stats.UpdatesSuccessful) / float64(stats.UpdatesSubmitted) * percentageMultiplier
	}

	if stats.Duration > 0 {
		updatesPerSecond = float64(stats.UpdatesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("updatesGenerated", stats.UpdatesGenerated),
		logger.Int("updatesSubmitted", stats.UpdatesSubmitted),
		logger.Int("updatesSuccessful", stats.UpdatesSuccessful),
		logger.Int("updatesRejected", stats.UpdatesRejected),
		logger.Int("updatesFailed", stats.UpdatesFailed),
		logger.Int("notifications", stats.Notifications),
		logger.Any("grandTotal", stats.GrandTotal),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("updatesPerSecond", updatesPerSecond))
}
