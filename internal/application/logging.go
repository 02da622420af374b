package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	switch {
	case errors.Is(err, ErrUnknownActivity):
		return "unknown_activity"
	case errors.Is(err, ErrNoFeasibleRoom):
		return "no_feasible_room"
	case errors.Is(err, scheduler.ErrBadInstant):
		return "bad_instant"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrNotFound), errors.Is(err, knowledge.ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return "not_found"
	case errors.Is(err, persistence.ErrCorruptSnapshot):
		return "corrupt_snapshot"
	}

	return "unexpected"
}
