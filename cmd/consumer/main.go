package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/config"
	"github.com/BarkinBalci/channel-attribution-service/internal/consumer"
	"github.com/BarkinBalci/channel-attribution-service/internal/idempotency"
	"github.com/BarkinBalci/channel-attribution-service/internal/logger"
	"github.com/BarkinBalci/channel-attribution-service/internal/metrics"
	"github.com/BarkinBalci/channel-attribution-service/internal/queue/sqs"
	"github.com/BarkinBalci/channel-attribution-service/internal/repository/clickhouse"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, "consumer")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting consumer service",
		zap.String("environment", cfg.Service.Environment))

	ctx := context.Background()

	// Initialize ClickHouse client
	chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func() {
		if err := chClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}()

	// Initialize repository
	repo := clickhouse.NewRepository(chClient, log)

	// Initialize schema (create tables if not exist)
	if err := repo.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}
	log.Info("Database schema initialized")

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	// Idempotency is optional; a nil Deduplicator disables it
	var dedup consumer.Deduplicator
	if cfg.Valkey.IdempotencyEnabled && cfg.Valkey.Host != "" {
		redisClient := idempotency.NewRedisClient(cfg.Valkey)
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Valkey client", zap.Error(err))
			}
		}()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("Valkey unreachable at startup", zap.Error(err))
		}
		dedup = idempotency.NewRedisDeduplicator(redisClient, cfg.Valkey, log)
		log.Info("Touchpoint idempotency enabled",
			zap.String("host", cfg.Valkey.Host),
			zap.Bool("fail_open", cfg.Valkey.IdempotencyFailOpen))
	}

	m := metrics.New()

	// Initialize consumer
	c := consumer.NewConsumer(cfg, sqsClient, repo, dedup, m, log)

	// Start health check and metrics endpoints
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := repo.Ping(r.Context()); err != nil {
				log.Warn("Health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		mux.Handle("/internal/metrics", m.Handler())

		addr := ":" + cfg.Consumer.HealthCheckPort
		log.Info("Health check server starting", zap.String("address", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	// Start consumer
	consumerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("Consumer starting")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Start(consumerCtx); err != nil {
			log.Error("Consumer error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-done:
	}

	log.Info("Shutting down consumer gracefully")
	cancel()
	<-done
}
