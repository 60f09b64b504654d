// Package logging configures log/slog for datatable.
//
// Request-scoped loggers carry chi's request id so that controller
// transitions logged while serving a request can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup builds a logger on stdout and installs it as the slog default.
//
// Level is one of debug, info, warn (or warning) and error; anything else
// logs at info. Format "json" selects the JSON handler, anything else text.
func Setup(level, format string) *slog.Logger {
	logger := New(os.Stdout, level, format)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w without touching the default.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// FromContext returns the default logger, tagged with the request id
// when ctx carries one.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := middleware.GetReqID(ctx); id != "" {
		return logger.With("request_id", id)
	}
	return logger
}

// WithFields is FromContext plus extra attributes.
//
//	logging.WithFields(r.Context(), "table", key).Warn("stale save")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
