package main

import (
	"context"
	"fmt"
	"os"

	"github.com/basekick-labs/formatbench/internal/bench"
	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/database"
	"github.com/basekick-labs/formatbench/internal/engine"
	"github.com/basekick-labs/formatbench/internal/engine/builtin"
	"github.com/basekick-labs/formatbench/internal/export"
	"github.com/basekick-labs/formatbench/internal/logger"
	"github.com/basekick-labs/formatbench/internal/storage"
	"github.com/basekick-labs/formatbench/internal/table"
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
	log.Debug().Str("version", Version).Strs("engines", cfg.Bench.Engines).Msg("Starting formatbench")

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error().Err(err).Msg("Benchmark failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	inputs, err := resolveInputs(ctx, cfg, log)
	if err != nil {
		return err
	}

	formats := make([]table.Format, 0, len(cfg.Bench.Formats))
	for _, name := range cfg.Bench.Formats {
		f, err := table.ParseFormat(name)
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}

	engines, err := builtin.Registry().Open(cfg.Bench.Engines, engine.Deps{
		Logger: logger.With(log, "engine"),
		Database: database.Config{
			MemoryLimit: cfg.Database.MemoryLimit,
			ThreadCount: cfg.Database.ThreadCount,
		},
		Parquet: cfg.Parquet,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.CloseAll(engines); err != nil {
			log.Warn().Err(err).Msg("Failed to close engines")
		}
	}()

	harness := bench.New(bench.NewPlan(engines, formats), inputs, cfg.Bench, log)
	_, err = harness.Run(ctx)
	return err
}

// resolveInputs locates the generated files and fails early when one is missing
func resolveInputs(ctx context.Context, cfg *config.Config, log zerolog.Logger) (export.Paths, error) {
	backend, err := storage.NewLocalBackend(cfg.Data.Dir, log)
	if err != nil {
		return export.Paths{}, fmt.Errorf("failed to open data directory: %w", err)
	}
	defer backend.Close()

	var paths export.Paths
	for _, name := range cfg.Bench.Formats {
		format, err := table.ParseFormat(name)
		if err != nil {
			return export.Paths{}, err
		}
		file, err := cfg.Data.FileName(string(format))
		if err != nil {
			return export.Paths{}, err
		}
		ok, err := backend.Exists(ctx, file)
		if err != nil {
			return export.Paths{}, err
		}
		if !ok {
			return export.Paths{}, fmt.Errorf("input %s not found in %s (run datagen first)", file, cfg.Data.Dir)
		}
		full, err := backend.FullPath(file)
		if err != nil {
			return export.Paths{}, err
		}
		paths.Set(format, full)
	}
	return paths, nil
}
