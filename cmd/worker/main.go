package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodgram-api/config"
	"foodgram-api/internal/database"
	"foodgram-api/internal/jobs"
	"foodgram-api/internal/logging"
	"foodgram-api/internal/storage"
	"foodgram-api/internal/telemetry"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Options{
		Development: cfg.IsDevelopment(),
		Level:       cfg.LogLevel,
		Service:     cfg.OTelServiceName + "-worker",
	})

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName: cfg.OTelServiceName + "-worker",
		Endpoint:    cfg.OTelEndpoint,
		Environment: cfg.Environment,
	})
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logging.Logger().Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Options{
		URL:             cfg.DatabaseURL,
		LogSQL:          cfg.IsDevelopment(),
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close(db)

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize image storage")
	}

	server := jobs.NewServer(cfg.RedisAddr(), cfg.WorkerConcurrency, db, store)

	go func() {
		if err := server.Start(); err != nil {
			logging.Logger().Fatal().Err(err).Msg("failed to start worker")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger().Info().Msg("shutting down worker")
	server.Shutdown()
}
