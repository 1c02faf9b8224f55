package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/honeynil/storefront-api/internal/infrastructure/observability"
	pkgerrors "github.com/honeynil/storefront-api/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// instrument starts a span for a repository method and returns a finisher
// that records the outcome in the span and in the repository metrics.
func instrument(ctx context.Context, tracerName, method string) (context.Context, trace.Span, func(*error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, method)
	start := time.Now()

	return ctx, span, func(errp *error) {
		status := "success"
		if err := *errp; err != nil {
			switch {
			case stderrors.Is(err, pkgerrors.ErrUserNotFound), stderrors.Is(err, pkgerrors.ErrProductNotFound):
				status = "not_found"
			default:
				status = "error"
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}
		observability.RepositoryCalls.WithLabelValues(method, status).Inc()
		observability.RepositoryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		span.End()
	}
}
