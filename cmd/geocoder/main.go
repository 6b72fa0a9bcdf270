package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/address-geocoder/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/address-geocoder/internal/adapter/kafka"
	"github.com/couchcryptid/address-geocoder/internal/app"
	"github.com/couchcryptid/address-geocoder/internal/config"
	"github.com/couchcryptid/address-geocoder/internal/observability"
	"github.com/couchcryptid/address-geocoder/internal/pipeline"
)

func main() {
	// A missing .env is fine; the environment wins over the file.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize geocoder", "error", err, "cache_backend", cfg.CacheBackend)
		os.Exit(1)
	}
	logger.Info("geocode cache ready", "backend", cfg.CacheBackend, "retention", cfg.CacheRetention)

	var ready app.Readiness
	if rc, ok := components.Store.(app.ReadinessChecker); ok {
		ready = append(ready, rc)
	}

	// Batch pipeline (feature-flagged via BATCH_ENABLED).
	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		p      *pipeline.Pipeline
	)
	if cfg.BatchEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		geocoder := pipeline.NewGeocoder(components.Service, logger)
		p = pipeline.New(reader, geocoder, writer, logger, metrics, cfg.BatchSize)
		ready = append(ready, p)
		logger.Info("batch geocoding enabled",
			"source_topic", cfg.KafkaSourceTopic,
			"sink_topic", cfg.KafkaSinkTopic,
			"batch_size", cfg.BatchSize,
		)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, components.Service, ready, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := components.Close(); err != nil {
		logger.Error("cache store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
