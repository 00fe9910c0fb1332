package service

import (
	"time"

	"github.com/okian/sportsday/internal/adapters/mq/pubsub"
	"github.com/okian/sportsday/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of storage workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the storage job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDBPath sets the SQLite database file.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithSchedulePath sets the schedule document location.
func WithSchedulePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.schedulePath = path
		}
	}
}

// WithRebuildOnStart replaces the stored schedule during Start.
func WithRebuildOnStart(rebuild bool) Option {
	return func(s *Service) {
		s.rebuildOnStart = rebuild
	}
}

// WithStoreTimeout bounds each storage call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithAdminEmail names the account promoted to admin at startup.
func WithAdminEmail(email string) Option {
	return func(s *Service) {
		s.adminEmail = normalizeEmail(email)
	}
}

// WithLoginSecret sets the shared secret required to sign in.
func WithLoginSecret(secret string) Option {
	return func(s *Service) {
		s.loginSecret = secret
	}
}

// WithHub injects the live update hub.
func WithHub(h *pubsub.Hub) Option {
	return func(s *Service) {
		if h != nil {
			s.hub = h
		}
	}
}

// WithCollector injects the log collector shown in the admin console.
func WithCollector(c *logger.Collector) Option {
	return func(s *Service) {
		if c != nil {
			s.collector = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
