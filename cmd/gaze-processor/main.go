package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosight/gazetrace/internal/analysis"
	"github.com/gosight/gazetrace/internal/config"
	"github.com/gosight/gazetrace/internal/consumer"
	"github.com/gosight/gazetrace/internal/processor"
	"github.com/gosight/gazetrace/internal/server"
	"github.com/gosight/gazetrace/internal/storage"
	"github.com/gosight/gazetrace/internal/trial"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/gazetrace.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}

	log.Info().
		Strs("kafka_brokers", cfg.Kafka.Brokers).
		Str("clickhouse_addr", cfg.ClickHouse.Addr).
		Str("redis_addr", cfg.Redis.Addr).
		Int("batch_size", cfg.Batch.Size).
		Dur("flush_interval", cfg.Batch.FlushInterval).
		Int("max_open_trials", cfg.Batch.MaxOpenTrials).
		Msg("Configuration loaded")

	// Initialize ClickHouse
	ch, err := storage.NewClickHouse(cfg.ClickHouse)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to ClickHouse")
	}
	defer ch.Close()
	log.Info().Msg("Connected to ClickHouse")

	opts := []processor.Option{
		processor.WithAnalysis(analysis.Options{CheckOrder: cfg.Analysis.CheckOrder}),
	}

	// Initialize trial aggregator
	if cfg.Redis.Addr != "" {
		agg := trial.NewAggregator(cfg.Redis)
		if err := agg.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Redis is not reachable, trial progress may be incomplete")
		} else if stale, err := agg.OpenTrials(context.Background()); err == nil && len(stale) > 0 {
			// Counters left by a previous run, their buffered records are gone.
			log.Warn().Strs("trial_ids", stale).Msg("Found trials with live counters from a previous run")
		}
		defer agg.Close()
		opts = append(opts, processor.WithTracker(agg))
		log.Info().Msg("Trial aggregator initialized")
	}

	// Analysis notices are optional
	if notifier := processor.NewKafkaNotifier(cfg.Kafka); notifier != nil {
		defer notifier.Close()
		opts = append(opts, processor.WithNotifier(notifier))
	}

	trialProcessor := processor.NewTrialProcessor(ch, cfg.Batch, opts...)

	// Create Kafka consumer
	kafkaConsumer, err := consumer.NewKafkaConsumer(cfg.Kafka, trialProcessor)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Kafka consumer")
	}

	// Health and metrics
	r := chi.NewRouter()
	r.Get("/health", server.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: r,
	}

	go func() {
		log.Info().Int("port", cfg.Server.HTTPPort).Msg("Starting metrics server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	// Start consuming
	ctx, cancel := context.WithCancel(context.Background())
	go kafkaConsumer.Start(ctx)

	log.Info().Msg("Gaze processor started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	kafkaConsumer.Close()

	// Analyse whatever is still open
	trialProcessor.Stop()
	httpServer.Shutdown(context.Background())

	log.Info().Msg("Shutdown complete")
}
