// Package frameengine benchmarks the row/column Frame: CSV through
// encoding/csv, Parquet read column chunk by column chunk with arrow-go's
// parquet/file reader and written with xitongsys/parquet-go, and Arrow IPC through arrow-go conversion.
package frameengine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/basekick-labs/formatbench/internal/columnar"
	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/engine"
	"github.com/basekick-labs/formatbench/internal/frame"
	"github.com/basekick-labs/formatbench/internal/table"
	"github.com/rs/zerolog"
)

// Name is the engine's display name
const Name = "Frame"

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
		return codec{e: e, read: frame.ReadParquet, write: e.writeParquet}, nil
	case table.FormatArrow:
		return codec{e: e, read: readArrow, write: writeArrow}, nil
	default:
		return nil, engine.Unsupported(Name, format)
	}
}

type codec struct {
	e     *Engine
	read  func(path string) (*frame.Frame, error)
	write func(w io.Writer, f *frame.Frame) error
}

func (c codec) Read(_ context.Context, path string) (table.Table, error) {
	f, err := c.read(path)
	if err != nil {
		return nil, err
	}
	c.e.logger.Debug().
		Str("path", path).
		Int("rows", f.Rows()).
		Int("columns", f.Cols()).
		Msg("Loaded frame")
	return f, nil
}

func (c codec) Write(_ context.Context, t table.Table, path string) error {
	f, ok := t.(*frame.Frame)
	if !ok {
		return engine.Foreign(Name, t)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriterSize(out, 1<<20)
	if err := c.write(w, f); err != nil {
		out.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func readCSV(path string) (*frame.Frame, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer in.Close()

	f, err := frame.ReadCSV(bufio.NewReaderSize(in, 1<<20), frame.CSVOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", path, err)
	}
	return f, nil
}

func writeCSV(w io.Writer, f *frame.Frame) error {
	return frame.WriteCSV(w, f)
}

func (e *Engine) writeParquet(w io.Writer, f *frame.Frame) error {
	return frame.WriteParquet(w, f, frame.ParquetOptions{Compression: e.parquet.Compression})
}

func readArrow(path string) (*frame.Frame, error) {
	tbl, err := columnar.ReadIPC(path)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()
	return frame.FromArrow(tbl)
}

func writeArrow(w io.Writer, f *frame.Frame) error {
	tbl := frame.ToArrow(f)
	defer tbl.Release()
	return columnar.WriteIPC(w, tbl)
}
