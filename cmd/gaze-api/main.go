package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosight/gazetrace/internal/analysis"
	"github.com/gosight/gazetrace/internal/config"
	"github.com/gosight/gazetrace/internal/server"
	"github.com/gosight/gazetrace/internal/source"
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
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log.Info().Str("source", cfg.Source.BaseURL).Msg("Starting gaze API...")

	client := source.NewClient(cfg.Source)

	var progress server.ProgressSource
	if cfg.Redis.Addr != "" {
		agg := trial.NewAggregator(cfg.Redis)
		defer agg.Close()
		progress = agg
		log.Info().Msg("Trial progress enabled")
	}

	h := server.NewHandler(client, progress, analysis.Options{CheckOrder: cfg.Analysis.CheckOrder})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Mount("/", h.Router())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: r,
	}

	go func() {
		log.Info().Int("port", cfg.Server.HTTPPort).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
	log.Info().Msg("Server stopped")
}
