package observability

import (
	"context"
	"fmt"

	"github.com/honeynil/storefront-api/internal/config"
	"github.com/honeynil/storefront-api/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Setup initializes logs, metrics and traces for the process. The returned
// shutdown flushes pending spans and the logger.
func Setup(ctx context.Context, serviceName string, cfg *config.Config) (*zap.Logger, func(context.Context) error, error) {
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	if err := observability.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	tracerShutdown, err := observability.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		_ = logger.Sync()
		return tracerShutdown(ctx)
	}
	return logger, shutdown, nil
}
