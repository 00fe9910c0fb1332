package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/sportsday/internal/adapters/mq/worker"
	"github.com/okian/sportsday/internal/adapters/repository"
	service "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/internal/domain/scores"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("sign in required")
	ErrForbidden    = errors.New("permission denied")
	ErrBackpressure = errors.New("backpressure")
)

// WrapKind tags err with an operation name and an API error kind.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind returns kind tagged with an operation name.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// classify maps service and storage errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidScores),
		errors.Is(err, scores.ErrMalformed),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, worker.ErrPoolClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		// internals are logged, not echoed
		logError(op, err)
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}
