package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/attribution"
	"github.com/BarkinBalci/channel-attribution-service/internal/config"
	"github.com/BarkinBalci/channel-attribution-service/internal/handler"
	"github.com/BarkinBalci/channel-attribution-service/internal/logger"
	"github.com/BarkinBalci/channel-attribution-service/internal/markov"
	"github.com/BarkinBalci/channel-attribution-service/internal/metrics"
	"github.com/BarkinBalci/channel-attribution-service/internal/queue/sqs"
	"github.com/BarkinBalci/channel-attribution-service/internal/repository/clickhouse"
	"github.com/BarkinBalci/channel-attribution-service/internal/service"
)

const shutdownTimeout = 30 * time.Second

// @title Channel Attribution Service API
// @version 1.0
// @description API for ingesting marketing touchpoints and computing multi-touch attribution
// @BasePath /
// @schemes http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, "api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	ctx := context.Background()

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	// Initialize ClickHouse client
	clickhouseClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func(clickhouseClient *clickhouse.Client) {
		if err := clickhouseClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}(clickhouseClient)

	repo := clickhouse.NewRepository(clickhouseClient, log)
	if err := repo.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}

	m := metrics.New()

	solver := markov.NewSolver(markov.SolverConfig{
		Workers: cfg.Attribution.MarkovWorkers,
		OnSolve: m.ObserveSolve,
	}, log)

	touchpointService := service.NewTouchpointService(sqsClient, log)
	attributionService := service.NewAttributionService(
		repo,
		repo,
		attribution.Models(markov.NewModel(solver)),
		m,
		cfg.Attribution,
		log,
	)

	h := handler.NewHandler(touchpointService, attributionService, m.Handler(), log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Service.APIPort),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down API server gracefully")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("API server shutdown error", zap.Error(err))
	}
}
