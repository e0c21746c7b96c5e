package log

import (
	"context"

	"github.com/rs/zerolog"
)

// WithLogger attaches logger to ctx. zerolog does not store disabled
// loggers, so Ctx falls back to the global logger for those.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// Ctx returns the logger attached to ctx, or the global logger.
func Ctx(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return L()
}
