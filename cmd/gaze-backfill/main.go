package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosight/gazetrace/internal/analysis"
	"github.com/gosight/gazetrace/internal/config"
	"github.com/gosight/gazetrace/internal/source"
	"github.com/gosight/gazetrace/internal/storage"
)

// gaze-backfill analyses every trial known to the data service and writes
// the results to ClickHouse.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/gazetrace.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ch, err := storage.NewClickHouse(cfg.ClickHouse)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to ClickHouse")
	}
	defer ch.Close()

	client := source.NewClient(cfg.Source)

	list, err := client.Trials(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list trials")
	}
	log.Info().Int("trials", len(list)).Msg("Fetching trials")

	inputs := make([]analysis.Input, 0, len(list))
	for _, m := range list {
		in, err := fetch(ctx, client, m.ID)
		if err != nil {
			log.Error().Err(err).Str("trial_id", m.ID).Msg("Skipping trial")
			continue
		}
		inputs = append(inputs, in)
	}

	opts := analysis.Options{CheckOrder: cfg.Analysis.CheckOrder}
	results, err := analysis.AnalyzeAll(ctx, inputs, opts, cfg.Analysis.Workers)
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis interrupted")
	}

	runID := uuid.New().String()
	now := time.Now()

	var failed int
	for i, res := range results {
		rows := storage.FromResult(runID, inputs[i].Meta, res, now)
		if err := write(ctx, ch, rows); err != nil {
			failed++
			log.Error().Err(err).Str("trial_id", res.TrialID).Msg("Failed to store trial")
			continue
		}
		log.Info().
			Str("trial_id", res.TrialID).
			Int("fixations", len(res.Fixations)).
			Strs("warnings", res.Warnings).
			Msg("Trial stored")
	}

	log.Info().
		Str("run_id", runID).
		Int("analysed", len(results)).
		Int("failed", failed).
		Msg("Backfill complete")
}

func fetch(ctx context.Context, client *source.Client, id string) (analysis.Input, error) {
	// Each trial is fetched once, drop it from the cache afterwards.
	defer client.Forget(id)

	meta, err := client.Meta(ctx, id)
	if err != nil {
		return analysis.Input{}, err
	}
	records, err := client.Events(ctx, id)
	if err != nil {
		return analysis.Input{}, err
	}
	fixations, err := client.Fixations(ctx, id)
	if err != nil {
		return analysis.Input{}, err
	}
	return analysis.Input{Meta: meta, Events: records, Fixations: fixations}, nil
}

func write(ctx context.Context, ch *storage.ClickHouse, rows storage.Rows) error {
	if err := ch.InsertFixations(ctx, rows.Fixations); err != nil {
		return err
	}
	if err := ch.InsertSaccades(ctx, rows.Saccades); err != nil {
		return err
	}
	if err := ch.InsertTimeline(ctx, rows.Timeline); err != nil {
		return err
	}
	return ch.UpsertTrial(ctx, rows.Trial)
}
