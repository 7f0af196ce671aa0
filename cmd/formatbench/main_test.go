package main

import (
	"context"
	"testing"

	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	want := testutil.WriteDataset(t, dir, 5)

	cfg := &config.Config{
		Data:  testutil.DataConfig(dir, 5),
		Bench: config.BenchConfig{Formats: []string{"arrow", "csv", "parquet"}},
	}
	got, err := resolveInputs(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveInputs_SubsetOfFormats(t *testing.T) {
	dir := t.TempDir()
	want := testutil.WriteDataset(t, dir, 5)

	cfg := &config.Config{
		Data:  testutil.DataConfig(dir, 5),
		Bench: config.BenchConfig{Formats: []string{"parquet"}},
	}
	got, err := resolveInputs(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, want.Parquet, got.Parquet)
	assert.Empty(t, got.CSV)
	assert.Empty(t, got.Arrow)
}

func TestResolveInputs_Missing(t *testing.T) {
	cfg := &config.Config{
		Data:  testutil.DataConfig(t.TempDir(), 5),
		Bench: config.BenchConfig{Formats: []string{"csv"}},
	}
	_, err := resolveInputs(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run datagen first")
}
