// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the site.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/sportsday/internal/adapters/mq/pubsub"
	jobqueue "github.com/okian/sportsday/internal/adapters/mq/queue"
	workerpool "github.com/okian/sportsday/internal/adapters/mq/worker"
	"github.com/okian/sportsday/internal/adapters/repository"
	"github.com/okian/sportsday/internal/adapters/repository/sqlite"
	"github.com/okian/sportsday/internal/domain/schedule"
	"github.com/okian/sportsday/pkg/logger"
	"github.com/okian/sportsday/pkg/metrics"
)

// Live update channels.
const (
	ChannelScores   = "scores"
	ChannelSchedule = "schedule"
)

// Service implements the scoreboard operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	db    *sqlite.Store
	store repository.Store
	queue *jobqueue.InMemoryQueue
	pool  *workerpool.Pool
	hub   *pubsub.Hub

	collector *logger.Collector

	// Configuration
	dbPath         string
	schedulePath   string
	workerCount    int
	queueSize      int
	storeTimeout   time.Duration
	rebuildOnStart bool
	adminEmail     string
	loginSecret    string

	// State
	started    bool
	schedule   *schedule.Configuration
	lastReport *RebuildReport

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:       "./db.sqlite",
		schedulePath: "./config.yaml",
		workerCount:  1,
		queueSize:    1024,
		storeTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.hub == nil {
		s.hub = pubsub.NewHub()
	}
	if s.collector == nil {
		s.collector = logger.NewCollector(1000)
	}

	return s
}

// Start opens the database, starts the storage workers and loads the schedule.
func (s *Service) Start(ctx context.Context) error {
	store, started, err := s.open(ctx)
	if err != nil || !started {
		return err
	}

	if s.adminEmail != "" {
		if err := s.bootstrapAdmin(ctx, store); err != nil {
			s.logger.Error(ctx, "failed to bootstrap admin", logger.Error(err))
		}
	}

	if s.rebuildOnStart {
		if _, err := s.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild on start: %w", err)
		}
	}

	return nil
}

// open initializes the components. started is false when the service was
// already running.
func (s *Service) open(ctx context.Context) (repository.Store, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil, false, nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting sportsday service...",
		logger.String("db", s.dbPath),
		logger.String("schedule", s.schedulePath),
	)

	cfg, err := schedule.LoadFile(s.schedulePath)
	if err != nil {
		metrics.RecordErrorByComponent("service", "schedule_load")
		return nil, false, fmt.Errorf("load schedule: %w", err)
	}

	db, err := sqlite.New(s.dbPath)
	if err != nil {
		metrics.RecordErrorByComponent("service", "db_open")
		return nil, false, fmt.Errorf("open database: %w", err)
	}

	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue)
	s.pool.Start(context.WithoutCancel(ctx))

	s.db = db
	s.store = repository.NewRunner(db, s.pool, repository.WithTimeout(s.storeTimeout))
	s.schedule = cfg
	s.started = true

	s.logger.Info(ctx, "sportsday service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("forms", len(cfg.Forms)),
	)

	return s.store, true, nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping sportsday service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	s.hub.Close()

	s.started = false
	s.logger.Info(ctx, "sportsday service stopped")
}

// Hub returns the live update hub.
func (s *Service) Hub() *pubsub.Hub {
	return s.hub
}

// Logs returns the in-memory log collector.
func (s *Service) Logs() *logger.Collector {
	return s.collector
}

// Schedule returns the schedule the stored rows were built from.
func (s *Service) Schedule() (*schedule.Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.schedule, nil
}

func (s *Service) deps() (repository.Store, *schedule.Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.schedule, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"logEntries":  s.collector.Len(),
		"subscribers": s.hub.Subscribers(ChannelScores),
	}

	if s.started {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)

		if n, err := s.store.CountEvents(ctx); err == nil {
			stats["totalEvents"] = n
			metrics.UpdateEventCount(n)
		}
		if n, err := s.store.CountUsers(ctx); err == nil {
			stats["totalUsers"] = n
			metrics.UpdateUserCount(n)
		}
		if s.lastReport != nil {
			stats["lastRebuild"] = s.lastReport.FinishedAt
			stats["lastRebuildOK"] = s.lastReport.Err == ""
		}
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
