// Package columnar holds the Arrow-based codecs shared by the exporter and the engines:
// Arrow IPC files, Parquet through pqarrow, CSV through arrow/csv, and
// conversion of database/sql result sets into Arrow tables.
package columnar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/basekick-labs/formatbench/internal/config"
)

// BatchSize is the number of rows per Arrow record batch when
// streaming tables in and out of files.
const BatchSize = 10000

// Allocator is shared by every Arrow operation.
// memory.GoAllocator is safe for concurrent use.
var Allocator memory.Allocator = memory.NewGoAllocator()

// ErrEmptyCSV is returned when a CSV file has no header row.
var ErrEmptyCSV = errors.New("csv file has no header")

// ParquetProperties builds writer properties from configuration
func ParquetProperties(cfg config.ParquetConfig) *parquet.WriterProperties {
	var comp compress.Compression
	switch cfg.Compression {
	case "gzip":
		comp = compress.Codecs.Gzip
	case "zstd":
		comp = compress.Codecs.Zstd
	case "none":
		comp = compress.Codecs.Uncompressed
	default:
		comp = compress.Codecs.Snappy
	}

	opts := []parquet.WriterProperty{
		parquet.WithCompression(comp),
		parquet.WithDictionaryDefault(cfg.UseDictionary),
		parquet.WithStats(cfg.WriteStatistics),
		parquet.WithAllocator(Allocator),
	}
	if cfg.DataPageVersion == "2.0" {
		opts = append(opts, parquet.WithDataPageVersion(parquet.DataPageV2))
	}
	return parquet.NewWriterProperties(opts...)
}

// WriteParquet writes tbl as a single Parquet file to w
func WriteParquet(w io.Writer, tbl arrow.Table, cfg config.ParquetConfig) error {
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	if err := pqarrow.WriteTable(tbl, w, BatchSize, ParquetProperties(cfg), arrowProps); err != nil {
		return fmt.Errorf("failed to write parquet: %w", err)
	}
	return nil
}

// ReadParquet loads a whole Parquet file into memory
func ReadParquet(ctx context.Context, path string) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer f.Close()

	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(Allocator), pqarrow.ArrowReadProperties{BatchSize: BatchSize}, Allocator)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet %s: %w", path, err)
	}
	return tbl, nil
}

// WriteIPC writes tbl as an Arrow IPC file (Feather v2) to w
func WriteIPC(w io.Writer, tbl arrow.Table) error {
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(tbl.Schema()), ipc.WithAllocator(Allocator))
	if err != nil {
		return fmt.Errorf("failed to create arrow file writer: %w", err)
	}

	tr := array.NewTableReader(tbl, BatchSize)
	defer tr.Release()

	for tr.Next() {
		if err := fw.Write(tr.Record()); err != nil {
			fw.Close()
			return fmt.Errorf("failed to write arrow batch: %w", err)
		}
	}
	if err := tr.Err(); err != nil {
		fw.Close()
		return fmt.Errorf("failed to iterate table: %w", err)
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close arrow file writer: %w", err)
	}
	return nil
}

// ReadIPC loads a whole Arrow IPC file into memory
func ReadIPC(path string) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow file: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(Allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to read arrow file %s: %w", path, err)
	}
	defer r.Close()

	records := make([]arrow.Record, 0, r.NumRecords())
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read arrow batch %d: %w", i, err)
		}
		// The reader reuses the record on the next call
		rec.Retain()
		records = append(records, rec)
	}

	return array.NewTableFromRecords(r.Schema(), records), nil
}

// WriteCSV writes tbl as CSV with a header row
func WriteCSV(w io.Writer, tbl arrow.Table) error {
	cw := csv.NewWriter(w, tbl.Schema(), csv.WithHeader(true))

	tr := array.NewTableReader(tbl, BatchSize)
	defer tr.Release()

	for tr.Next() {
		if err := cw.Write(tr.Record()); err != nil {
			return fmt.Errorf("failed to write csv batch: %w", err)
		}
	}
	if err := tr.Err(); err != nil {
		return fmt.Errorf("failed to iterate table: %w", err)
	}

	if err := cw.Flush(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv writer error: %w", err)
	}
	return nil
}

// ReadCSV loads a CSV file with a header row, inferring column types
func ReadCSV(path string) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	r := csv.NewInferringReader(f,
		csv.WithHeader(true),
		csv.WithChunk(BatchSize),
		csv.WithAllocator(Allocator),
	)
	defer r.Release()

	var records []arrow.Record
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	for r.Next() {
		rec := r.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", path, err)
	}

	schema := r.Schema()
	if schema == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyCSV)
	}
	return array.NewTableFromRecords(schema, records), nil
}

// TableFromRecord wraps one record as a table; the caller keeps ownership of rec
func TableFromRecord(rec arrow.Record) arrow.Table {
	return array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
}
