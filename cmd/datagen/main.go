package main

import (
	"context"
	"fmt"
	"os"

	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/datagen"
	"github.com/basekick-labs/formatbench/internal/export"
	"github.com/basekick-labs/formatbench/internal/logger"
	"github.com/basekick-labs/formatbench/internal/storage"
	"github.com/rs/zerolog"
)

// Version is set at build time
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	log.Debug().Str("version", Version).Int("num_records", cfg.Data.NumRecords).Msg("Starting datagen")

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error().Err(err).Msg("Data generation failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	gen := datagen.New(datagen.Options{Seed: cfg.Data.Seed}, logger.With(log, "datagen"))
	ds, err := gen.Generate(cfg.Data.NumRecords)
	if err != nil {
		return err
	}

	backend, err := storage.NewLocalBackend(cfg.Data.Dir, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer backend.Close()

	exporter := export.New(backend, cfg.Data, cfg.Parquet, logger.With(log, "export"))
	if _, err := exporter.Export(ctx, ds); err != nil {
		return err
	}

	log.Info().Int("rows", ds.Len()).Msgf("Running benchmark with %d rows", ds.Len())
	return nil
}
