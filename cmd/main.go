package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"

	"github.com/okian/sportsday/internal/adapters/http/api"
	"github.com/okian/sportsday/internal/adapters/http/session"
	"github.com/okian/sportsday/internal/adapters/http/site"
	"github.com/okian/sportsday/internal/adapters/http/swagger"
	"github.com/okian/sportsday/internal/adapters/mq/pubsub"
	app "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/internal/config"
	"github.com/okian/sportsday/pkg/logger"
	"github.com/okian/sportsday/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
	sessionKeyLength          = 32
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Logs are teed into the collector shown on /admin/logs.
	collector := logger.NewCollector(cfg.LogBufferSize)
	if err := logger.InitWithCollector(collector); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, collector, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "sportsday exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, collector *logger.Collector, log logger.Logger) error {
	svc := newService(cfg, collector, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	sessions, err := newSessionManager(ctx, cfg, log)
	if err != nil {
		return err
	}

	handler, err := newRouter(cfg, svc, sessions)
	if err != nil {
		return err
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

func newService(cfg *config.Config, collector *logger.Collector, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithCollector(collector),
		app.WithHub(pubsub.NewHub(pubsub.WithBufferSize(cfg.HubBufferSize))),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDBPath(cfg.DBPath),
		app.WithSchedulePath(cfg.SchedulePath),
		app.WithRebuildOnStart(cfg.RebuildOnStart),
		app.WithAdminEmail(cfg.AdminEmail),
		app.WithLoginSecret(cfg.LoginSecret),
	)
}

// newSessionManager builds the cookie codec. Without a configured hash key a
// random one is generated, so sessions do not survive a restart.
func newSessionManager(ctx context.Context, cfg *config.Config, log logger.Logger) (*session.Manager, error) {
	hashKey := []byte(cfg.SessionHashKey)
	if len(hashKey) == 0 {
		log.Warn(ctx, "session_hash_key not set; using a random key for this run")
		hashKey = securecookie.GenerateRandomKey(sessionKeyLength)
	}
	m, err := session.NewManager(session.Config{
		HashKey:  hashKey,
		BlockKey: []byte(cfg.SessionBlockKey),
	})
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	return m, nil
}

// newRouter mounts the API, documentation and pages on one chi router.
func newRouter(cfg *config.Config, svc *app.Service, sessions *session.Manager) (http.Handler, error) {
	pages, err := site.New(svc, sessions)
	if err != nil {
		return nil, fmt.Errorf("site: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(sessions.Middleware(svc))

	api.NewServer(svc, svc, svc.Hub(), api.WithAllowedOrigins(cfg.AllowedOrigins())).Register(r)
	swagger.Register(r)
	pages.Register(r)

	return r, nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the queue, event and user gauges.
			_ = svc.GetStats()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
