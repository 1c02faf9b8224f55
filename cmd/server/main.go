package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/storefront-api/internal/api"
	"github.com/honeynil/storefront-api/internal/config"
	"github.com/honeynil/storefront-api/internal/handler"
	"github.com/honeynil/storefront-api/internal/infrastructure/auth"
	"github.com/honeynil/storefront-api/internal/infrastructure/kafka"
	infraobs "github.com/honeynil/storefront-api/internal/infrastructure/observability"
	"github.com/honeynil/storefront-api/internal/infrastructure/redis"
	"github.com/honeynil/storefront-api/internal/observability"
	"github.com/honeynil/storefront-api/internal/repository/cache"
	core "github.com/honeynil/storefront-api/internal/repository/postgres"
	service "github.com/honeynil/storefront-api/internal/services"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const serviceName = "storefront-api"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("storefront-api: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Логи, метрики, трейсы
	logger, shutdownObs, err := observability.Setup(ctx, serviceName, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownObs(context.Background()); err != nil {
			logger.Warn("observability shutdown failed", zap.Error(err))
		}
	}()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	redisClient, err := redis.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.UserEventsTopic, logger)
	defer producer.Close()

	userRepo := cache.NewCachedUserRepository(
		core.NewPostgresUserRepository(db, logger), redisClient, cfg.PrincipalCacheTTL, logger)
	productRepo := core.NewPostgresProductRepository(db, logger)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	guard := auth.NewMiddleware(
		auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		auth.NewPrincipalResolver(userRepo, cfg.AuthLookupTimeout),
		logger,
	)

	h := handler.NewHandler(
		service.NewAuthService(userRepo, issuer, logger),
		service.NewAccountService(userRepo, producer, logger),
		service.NewCatalogService(productRepo, redisClient, logger),
		logger,
	)
	router := api.NewRouter(h, guard, map[string]api.Pinger{
		"postgres": db.PingContext,
		"redis":    redisClient.Ping,
	}, logger)

	// Kafka-консьюмер инвалидирует кэш принципалов
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.UserEventsTopic, serviceName, userRepo, logger)
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		consumer.Consume(consumerCtx)
	}()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	metricsServer := infraobs.NewMetricsServer(cfg.MetricsAddr, prometheus.DefaultGatherer)

	errCh := make(chan error, 2)
	for _, srv := range []*http.Server{server, metricsServer} {
		go func(srv *http.Server) {
			logger.Info("starting http server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server on %s failed: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range []*http.Server{server, metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}
	stopConsumer()
	if err := consumer.Close(); err != nil {
		logger.Warn("failed to close kafka consumer", zap.Error(err))
	}
	<-consumerDone

	logger.Info("server stopped")
	return runErr
}
