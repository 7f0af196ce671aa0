// Package bench times reads and writes of each (engine, format) cell.
package bench

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/engine"
	"github.com/basekick-labs/formatbench/internal/table"
	"github.com/rs/zerolog"
)

// Operation is the timed half of a cell.
type Operation string

const (
	OpRead  Operation = "read"
	OpWrite Operation = "write"
)

// Result is one timed operation.
type Result struct {
	Engine    string
	Format    table.Format
	Operation Operation
	Elapsed   time.Duration
}

// Seconds returns Elapsed as fractional seconds
func (r Result) Seconds() float64 {
	return r.Elapsed.Seconds()
}

// Cell is one (engine, format) pair of the plan.
type Cell struct {
	Engine engine.Engine
	Format table.Format
}

// NewPlan lays out cells engine-major: every format of the first engine, then the next engine
func NewPlan(engines []engine.Engine, formats []table.Format) []Cell {
	plan := make([]Cell, 0, len(engines)*len(formats))
	for _, e := range engines {
		for _, f := range formats {
			plan = append(plan, Cell{Engine: e, Format: f})
		}
	}
	return plan
}

// Inputs resolves the fixed input file of a format.
type Inputs interface {
	For(format table.Format) string
}

// Measure runs fn exactly once and reports its wall-clock duration.
// Errors are returned unchanged.
func Measure[T any](fn func() (T, error)) (T, time.Duration, error) {
	start := time.Now()
	result, err := fn()
	return result, time.Since(start), err
}

// Harness runs a plan sequentially.
type Harness struct {
	plan   []Cell
	inputs Inputs
	output config.BenchConfig
	logger zerolog.Logger
}

func New(plan []Cell, inputs Inputs, output config.BenchConfig, logger zerolog.Logger) *Harness {
	return &Harness{
		plan:   plan,
		inputs: inputs,
		output: output,
		logger: logger,
	}
}

// Run executes every cell in order: read the input, then write the table
// just read. The first failure stops the run; results gathered so far are
// returned with the error.
func (h *Harness) Run(ctx context.Context) ([]Result, error) {
	if h.output.OutputDir != "" {
		if err := os.MkdirAll(h.output.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	results := make([]Result, 0, len(h.plan)*2)
	var current engine.Engine
	for _, cell := range h.plan {
		if cell.Engine != current {
			current = cell.Engine
			h.logger.Info().Str("engine", current.Name()).Msgf("Benchmarking %s:", current.Name())
		}

		var err error
		results, err = h.runCell(ctx, cell, results)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (h *Harness) runCell(ctx context.Context, cell Cell, results []Result) ([]Result, error) {
	name := cell.Engine.Name()
	codec, err := cell.Engine.Codec(cell.Format)
	if err != nil {
		return results, err
	}

	input := h.inputs.For(cell.Format)
	tbl, elapsed, err := Measure(func() (table.Table, error) {
		return codec.Read(ctx, input)
	})
	if err != nil {
		return results, fmt.Errorf("%s %s read of %s failed: %w", name, cell.Format.DisplayName(), input, err)
	}
	defer tbl.Release()
	results = append(results, h.logResult(Result{Engine: name, Format: cell.Format, Operation: OpRead, Elapsed: elapsed}))

	output := h.output.OutputPath(name, cell.Format.Ext())
	_, elapsed, err = Measure(func() (struct{}, error) {
		return struct{}{}, codec.Write(ctx, tbl, output)
	})
	if err != nil {
		return results, fmt.Errorf("%s %s write to %s failed: %w", name, cell.Format.DisplayName(), output, err)
	}
	results = append(results, h.logResult(Result{Engine: name, Format: cell.Format, Operation: OpWrite, Elapsed: elapsed}))

	return results, nil
}

// logResult emits the timing line for r and returns it
func (h *Harness) logResult(r Result) Result {
	h.logger.Info().
		Str("engine", r.Engine).
		Str("format", r.Format.DisplayName()).
		Str("operation", string(r.Operation)).
		Float64("elapsed_seconds", r.Seconds()).
		Msgf("%s %s %s time: %.4f seconds", r.Engine, r.Format.DisplayName(), r.Operation, r.Seconds())
	return r
}
