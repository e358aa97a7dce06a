package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/internal/persist"
	"github.com/utafrali/storefront/pkg/logger"
)

const tracerName = "github.com/utafrali/storefront/internal/persist/redis"

type slowOpConfig struct {
	threshold time.Duration
	logger    *slog.Logger
}

// trace starts a client span for one Redis command. The returned function
// ends it; a missing key is not recorded as an error.
func (s *Storage) trace(ctx context.Context, command, key string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "redis."+command,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", command),
			attribute.String("storefront.storage_key", key),
		),
	)

	return ctx, func(err error) {
		if err != nil && !errors.Is(err, persist.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if s.slow.threshold <= 0 || s.slow.logger == nil {
			return
		}
		if elapsed := time.Since(start); elapsed >= s.slow.threshold {
			logger.WithContext(ctx, s.slow.logger).Warn("slow redis command",
				slog.String("command", command),
				slog.String("key", key),
				slog.Duration("duration", elapsed),
			)
		}
	}
}
