// Package api declares the JSON API, live update socket and route
// registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"

	"github.com/okian/sportsday/internal/adapters/mq/pubsub"
	service "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/internal/domain/scores"
	"github.com/okian/sportsday/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Years(ctx context.Context) ([]service.Year, error)
	Events(ctx context.Context, f service.EventFilter) ([]service.Event, error)
	Event(ctx context.Context, id string) (service.Event, error)
	SetScores(ctx context.Context, eventID string, sc scores.Scores) (service.Event, error)

	Scoreboard(ctx context.Context) (service.Scoreboard, error)
	Results(ctx context.Context) ([]service.Result, error)

	Rebuild(ctx context.Context) (service.RebuildReport, error)
}

// Subscriber hands out live update subscriptions.
type Subscriber interface {
	Subscribe(channel string) (*pubsub.Subscription, error)
	Unsubscribe(sub *pubsub.Subscription)
}

var _ Subscriber = (*pubsub.Hub)(nil)

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	eventsHandler     *EventsHandler
	scoreboardHandler *ScoreboardHandler
	adminHandler      *AdminHandler
	socketHandler     *SocketHandler

	allowedOrigins []string
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, hub Subscriber, opts ...Option) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		eventsHandler:     NewEventsHandler(deps),
		scoreboardHandler: NewScoreboardHandler(deps),
		adminHandler:      NewAdminHandler(deps),
		socketHandler:     NewSocketHandler(hub),
		allowedOrigins:    []string{"http://localhost:*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to r. Handlers expect the session
// middleware to run before them.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/ws/{channel}", s.socketHandler.Handle)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		r.Get("/years", MetricsMiddleware(s.eventsHandler.HandleListYears, "years"))
		r.Get("/events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "events"))
		r.Get("/events/{id}", MetricsMiddleware(s.eventsHandler.HandleGetEvent, "event"))
		r.Put("/events/{id}/scores", MetricsMiddleware(s.eventsHandler.HandlePutScores, "scores"))
		r.Get("/scoreboard", MetricsMiddleware(s.scoreboardHandler.HandleScoreboard, "scoreboard"))
		r.Get("/results", MetricsMiddleware(s.scoreboardHandler.HandleResults, "results"))
		r.Post("/admin/rebuild", MetricsMiddleware(s.adminHandler.HandleRebuild, "rebuild"))
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func logError(op string, err error) {
	logger.Get().Error(context.Background(), "request failed",
		logger.String("op", op),
		logger.Error(err),
	)
}
