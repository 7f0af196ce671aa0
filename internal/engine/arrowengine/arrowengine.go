// Package arrowengine benchmarks the Apache Arrow Go library: inputs are
// loaded into arrow.Table values and written back with arrow's own
// CSV, Parquet (pqarrow) and IPC file writers.
package arrowengine

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/basekick-labs/formatbench/internal/columnar"
	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/engine"
	"github.com/basekick-labs/formatbench/internal/table"
	"github.com/rs/zerolog"
)

// Name is the engine's display name
const Name = "Arrow"

// Engine reads and writes through arrow-go.
type Engine struct {
	parquet config.ParquetConfig
	logger  zerolog.Logger
}

// New is an engine.Factory
func New(deps engine.Deps) (engine.Engine, error) {
	return &Engine{
		parquet: deps.Parquet,
		logger:  deps.Logger.With().Str("engine", Name).Logger(),
	}, nil
}

func (e *Engine) Name() string { return Name }
func (e *Engine) Close() error { return nil }

func (e *Engine) Codec(format table.Format) (engine.Codec, error) {
	switch format {
	case table.FormatCSV:
		return codec{e: e, read: readCSV, write: writeCSV}, nil
	case table.FormatParquet:
		return codec{e: e, read: columnar.ReadParquet, write: e.writeParquet}, nil
	case table.FormatArrow:
		return codec{e: e, read: readIPC, write: writeIPC}, nil
	default:
		return nil, engine.Unsupported(Name, format)
	}
}

// Table wraps an arrow.Table.
type Table struct {
	arrow.Table
}

func (t *Table) Schema() table.Schema { return table.SchemaFromArrow(t.Table.Schema()) }

// Arrow returns the wrapped table
func (t *Table) Arrow() arrow.Table { return t.Table }

type readFunc func(ctx context.Context, path string) (arrow.Table, error)
type writeFunc func(w *bufio.Writer, tbl arrow.Table) error

type codec struct {
	e     *Engine
	read  readFunc
	write writeFunc
}

func (c codec) Read(ctx context.Context, path string) (table.Table, error) {
	tbl, err := c.read(ctx, path)
	if err != nil {
		return nil, err
	}
	c.e.logger.Debug().
		Str("path", path).
		Int64("rows", tbl.NumRows()).
		Int64("columns", tbl.NumCols()).
		Msg("Loaded table")
	return &Table{Table: tbl}, nil
}

func (c codec) Write(ctx context.Context, t table.Table, path string) error {
	at, ok := t.(*Table)
	if !ok {
		return engine.Foreign(Name, t)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriterSize(f, 1<<20)

	if err := c.write(w, at.Table); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func readCSV(_ context.Context, path string) (arrow.Table, error) {
	return columnar.ReadCSV(path)
}

func readIPC(_ context.Context, path string) (arrow.Table, error) {
	return columnar.ReadIPC(path)
}

func writeCSV(w *bufio.Writer, tbl arrow.Table) error {
	return columnar.WriteCSV(w, tbl)
}

func writeIPC(w *bufio.Writer, tbl arrow.Table) error {
	return columnar.WriteIPC(w, tbl)
}

func (e *Engine) writeParquet(w *bufio.Writer, tbl arrow.Table) error {
	return columnar.WriteParquet(w, tbl, e.parquet)
}
