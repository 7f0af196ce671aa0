// Package testutil builds on-disk datasets for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/datagen"
	"github.com/basekick-labs/formatbench/internal/export"
	"github.com/basekick-labs/formatbench/internal/storage"
	"github.com/rs/zerolog"
)

// DataConfig is the input file layout used by fixtures
func DataConfig(dir string, n int) config.DataConfig {
	return config.DataConfig{
		NumRecords:  n,
		Dir:         dir,
		CSVFile:     "data.csv",
		ParquetFile: "data.parquet",
		ArrowFile:   "data.arrow",
		Seed:        1,
	}
}

// ParquetConfig mirrors the configuration defaults
func ParquetConfig() config.ParquetConfig {
	return config.ParquetConfig{
		Compression:     "snappy",
		UseDictionary:   true,
		WriteStatistics: true,
		DataPageVersion: "2.0",
	}
}

// WriteDataset generates n transactions and exports them into dir
func WriteDataset(t testing.TB, dir string, n int) export.Paths {
	t.Helper()

	logger := zerolog.Nop()
	gen := datagen.New(datagen.Options{
		Seed: 1,
		Now:  func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
	}, logger)
	ds, err := gen.Generate(n)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	backend, err := storage.NewLocalBackend(dir, logger)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	defer backend.Close()

	paths, err := export.New(backend, DataConfig(dir, n), ParquetConfig(), logger).Export(context.Background(), ds)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	return paths
}
