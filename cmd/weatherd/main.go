package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-report-store/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/weather-report-store/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-report-store/internal/adapter/kafka"
	mongoadapter "github.com/couchcryptid/weather-report-store/internal/adapter/mongo"
	"github.com/couchcryptid/weather-report-store/internal/aggregate"
	"github.com/couchcryptid/weather-report-store/internal/config"
	"github.com/couchcryptid/weather-report-store/internal/materialize"
	"github.com/couchcryptid/weather-report-store/internal/observability"
	"github.com/couchcryptid/weather-report-store/internal/report"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := mongoadapter.Connect(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to connect to store", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	queries := aggregate.NewQueries(store, clock, logger, metrics)
	stations := cache.NewCachedStationDirectory(cache.NewStoreDirectory(store), cfg.StationCacheSize, metrics)
	reports := report.NewService(store, queries, stations, clock, logger, metrics)

	// Extremes publishing is feature-flagged via KAFKA_ENABLED.
	var writer *kafkaadapter.Writer
	var publisher materialize.ExtremesPublisher
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, clock, logger)
		publisher = writer
		logger.Info("extremes publishing enabled", "topic", cfg.KafkaExtremesTopic)
	} else {
		logger.Info("extremes publishing disabled")
	}

	runner := materialize.New(queries, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.AllReady(store, runner), logger)
	srv.MountAPI(queries, reports, clock)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start materialization schedule.
	go func() {
		if err := runner.Run(ctx, cfg.MaterializeInterval); err != nil {
			logger.Error("materialize scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
