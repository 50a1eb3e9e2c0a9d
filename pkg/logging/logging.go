package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

const serviceName = "skyplanner"

type ctxKey struct{}

// New builds the process-wide JSON logger. Every line carries the service
// name so planner logs stay distinguishable from the proxied backend's once
// they land in the same aggregator.
func New(level string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h).With("service", serviceName)
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values fall
// back to info rather than erroring; a typo in an env var should not take
// the server down.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IntoContext threads a request-scoped logger down to services and repos.
func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger, or the process default when called
// outside a request (migrations, shutdown paths).
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
