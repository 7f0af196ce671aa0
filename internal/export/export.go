// Package export materializes a generated dataset as the CSV, Parquet and
// Arrow files the benchmark reads.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/basekick-labs/formatbench/internal/columnar"
	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/storage"
	"github.com/basekick-labs/formatbench/internal/table"
	"github.com/basekick-labs/formatbench/pkg/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Paths are the resolved locations of the exported files.
type Paths struct {
	CSV     string
	Parquet string
	Arrow   string
}

// For returns the path holding format f
func (p Paths) For(f table.Format) string {
	switch f {
	case table.FormatCSV:
		return p.CSV
	case table.FormatParquet:
		return p.Parquet
	case table.FormatArrow:
		return p.Arrow
	default:
		return ""
	}
}

// Set stores path as the location of format f. Unknown formats are ignored.
func (p *Paths) Set(f table.Format, path string) {
	switch f {
	case table.FormatCSV:
		p.CSV = path
	case table.FormatParquet:
		p.Parquet = path
	case table.FormatArrow:
		p.Arrow = path
	}
}

// Exporter writes datasets through a storage backend.
type Exporter struct {
	backend storage.Backend
	files   config.DataConfig
	parquet config.ParquetConfig
	logger  zerolog.Logger
}

// New creates an exporter. File names come from files; the backend is
// expected to be rooted at the data directory.
func New(backend storage.Backend, files config.DataConfig, parquet config.ParquetConfig, logger zerolog.Logger) *Exporter {
	return &Exporter{
		backend: backend,
		files:   files,
		parquet: parquet,
		logger:  logger,
	}
}

type target struct {
	format table.Format
	name   string
	encode func(w io.Writer, tbl arrow.Table) error
}

// Export writes all three files concurrently. Each file is replaced
// atomically. If any format fails, all three files are removed so the
// benchmark never reads inputs from two different runs.
func (x *Exporter) Export(ctx context.Context, ds models.Dataset) (Paths, error) {
	x.logger.Info().Str("backend", x.backend.Type()).Msg("Exporting data to CSV, Parquet, and Arrow formats.")

	rec := RecordFromDataset(ds)
	defer rec.Release()
	tbl := columnar.TableFromRecord(rec)
	defer tbl.Release()

	targets := []target{
		{format: table.FormatCSV, name: x.files.CSVFile, encode: columnar.WriteCSV},
		{format: table.FormatParquet, name: x.files.ParquetFile, encode: func(w io.Writer, t arrow.Table) error {
			return columnar.WriteParquet(w, t, x.parquet)
		}},
		{format: table.FormatArrow, name: x.files.ArrowFile, encode: columnar.WriteIPC},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, tg := range targets {
		g.Go(func() error {
			if err := x.writeStreaming(gctx, tg.name, func(w io.Writer) error { return tg.encode(w, tbl) }); err != nil {
				return fmt.Errorf("%s export failed: %w", tg.format.DisplayName(), err)
			}
			x.logger.Info().Str("format", string(tg.format)).Msgf("%s export complete.", tg.format.DisplayName())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		x.removeTargets(ctx, targets)
		return Paths{}, err
	}

	var paths Paths
	for _, tg := range targets {
		full, err := x.backend.FullPath(tg.name)
		if err != nil {
			return Paths{}, err
		}
		paths.Set(tg.format, full)
	}
	return paths, nil
}

// removeTargets deletes every target after a failed export
func (x *Exporter) removeTargets(ctx context.Context, targets []target) {
	for _, tg := range targets {
		if err := x.backend.Delete(ctx, tg.name); err != nil {
			x.logger.Warn().Err(err).Str("path", tg.name).Msg("Failed to remove partial export")
		}
	}
}

// writeStreaming pipes the encoder's output into the backend and returns
// only after the encoder goroutine has exited
func (x *Exporter) writeStreaming(ctx context.Context, path string, encode func(w io.Writer) error) error {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := runEncoder(pw, encode)
		pw.CloseWithError(err)
		done <- err
	}()

	err := x.backend.WriteReader(ctx, path, pr)
	// unblock the encoder if the backend stopped reading early
	pr.CloseWithError(err)
	encErr := <-done
	if err != nil {
		return err
	}
	return encErr
}

// runEncoder turns a panic inside encode into an error. The Parquet writer
// panics when its sink fails while the file header is written.
func runEncoder(w io.Writer, encode func(w io.Writer) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encoder panic: %v", r)
		}
	}()
	return encode(w)
}

// RecordFromDataset builds one Arrow record with models.TransactionSchema
func RecordFromDataset(ds models.Dataset) arrow.Record {
	b := array.NewRecordBuilder(columnar.Allocator, models.TransactionSchema)
	defer b.Release()

	n := ds.Len()
	b.Reserve(n)

	txID := b.Field(0).(*array.StringBuilder)
	userID := b.Field(1).(*array.StringBuilder)
	productID := b.Field(2).(*array.StringBuilder)
	amount := b.Field(3).(*array.Float64Builder)
	txType := b.Field(4).(*array.StringBuilder)
	date := b.Field(5).(*array.TimestampBuilder)
	desc := b.Field(6).(*array.StringBuilder)

	for _, t := range ds.Transactions {
		txID.Append(t.TransactionID)
		userID.Append(t.UserID)
		productID.Append(t.ProductID)
		amount.Append(t.Amount)
		txType.Append(t.TransactionType)
		date.Append(arrow.Timestamp(t.Date.UnixMicro()))
		desc.Append(t.Description)
	}
	return b.NewRecord()
}
