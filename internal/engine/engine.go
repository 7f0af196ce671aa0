// Package engine defines the contract every benchmarked data-processing
// engine implements, and a registry that builds engines by name.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/database"
	"github.com/basekick-labs/formatbench/internal/table"
	"github.com/rs/zerolog"
)

var (
	// ErrUnsupportedFormat is returned by Codec for formats an engine cannot handle.
	ErrUnsupportedFormat = errors.New("format not supported by engine")
	// ErrForeignTable is returned when a codec is asked to write a table another engine produced.
	ErrForeignTable = errors.New("table was produced by another engine")
	// ErrUnknownEngine is returned by Open for names missing from the registry.
	ErrUnknownEngine = errors.New("unknown engine")
)

// Codec reads and writes one file format for one engine.
type Codec interface {
	// Read loads the whole file at path into an in-memory table
	Read(ctx context.Context, path string) (table.Table, error)
	// Write serializes t, which must come from the same engine, to path
	Write(ctx context.Context, t table.Table, path string) error
}

// Engine is a data-processing library under benchmark.
type Engine interface {
	// Name is the display name used in log lines and output file names
	Name() string
	Codec(format table.Format) (Codec, error)
	Close() error
}

// Deps carries what engine constructors may need.
type Deps struct {
	Logger   zerolog.Logger
	Database database.Config
	Parquet  config.ParquetConfig
}

// Factory builds an engine.
type Factory func(deps Deps) (Engine, error)

// Registry maps lowercase engine names to factories.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces a factory
func (r *Registry) Register(name string, f Factory) {
	r.factories[strings.ToLower(name)] = f
}

// Names returns registered names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the named engines in order. If any constructor fails,
// engines already built are closed.
func (r *Registry) Open(names []string, deps Deps) ([]Engine, error) {
	engines := make([]Engine, 0, len(names))
	for _, name := range names {
		factory, ok := r.factories[strings.ToLower(name)]
		if !ok {
			CloseAll(engines)
			return nil, fmt.Errorf("%w: %s (registered: %s)", ErrUnknownEngine, name, strings.Join(r.Names(), ", "))
		}
		e, err := factory(deps)
		if err != nil {
			CloseAll(engines)
			return nil, fmt.Errorf("failed to open engine %s: %w", name, err)
		}
		engines = append(engines, e)
	}
	return engines, nil
}

// CloseAll closes engines in reverse order and returns the first error
func CloseAll(engines []Engine) error {
	var first error
	for i := len(engines) - 1; i >= 0; i-- {
		if err := engines[i].Close(); err != nil && first == nil {
			first = fmt.Errorf("failed to close engine %s: %w", engines[i].Name(), err)
		}
	}
	return first
}

// Unsupported builds the error for a format an engine lacks
func Unsupported(engine string, format table.Format) error {
	return fmt.Errorf("%s: %w: %s", engine, ErrUnsupportedFormat, format)
}

// Foreign builds the error for a table handed to the wrong engine
func Foreign(engine string, t table.Table) error {
	return fmt.Errorf("%s: %w (%T)", engine, ErrForeignTable, t)
}
