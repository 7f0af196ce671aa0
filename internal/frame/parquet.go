package frame

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/schema"
	"github.com/basekick-labs/formatbench/internal/columnar"
	"github.com/basekick-labs/formatbench/internal/table"
	xparquet "github.com/xitongsys/parquet-go/parquet"
	pw "github.com/xitongsys/parquet-go/writer"
)

// ErrNestedParquet is returned for files with group (nested) or repeated columns.
var ErrNestedParquet = errors.New("nested parquet columns are not supported")

const readBatchRows = 1024

// leafKind describes how a physical parquet leaf maps to a frame kind.
type leafKind struct {
	kind     table.Kind
	physical parquet.Type
	unit     time.Duration // for time columns stored as integers: one tick
}

// ReadParquet loads a flat Parquet file into a frame, one column chunk at a time
func ReadParquet(path string) (*Frame, error) {
	rdr, err := file.OpenParquetFile(path, false, file.WithReadProps(parquet.NewReaderProperties(columnar.Allocator)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet %s: %w", path, err)
	}
	defer rdr.Close()

	sc := rdr.MetaData().Schema
	leaves := make([]leafKind, sc.NumColumns())
	fs := table.Schema{Fields: make([]table.Field, len(leaves))}
	for i := range leaves {
		col := sc.Column(i)
		if len(col.ColumnPath()) != 1 || col.MaxRepetitionLevel() > 0 {
			return nil, fmt.Errorf("column %s: %w", col.Path(), ErrNestedParquet)
		}
		leaves[i] = leafKindOf(col)
		fs.Fields[i] = table.Field{Name: col.Name(), Kind: leaves[i].kind}
	}

	f, err := New(fs, int(rdr.NumRows()))
	if err != nil {
		return nil, err
	}

	for rg := 0; rg < rdr.NumRowGroups(); rg++ {
		rgr := rdr.RowGroup(rg)
		for c, leaf := range leaves {
			chunk, err := rgr.Column(c)
			if err != nil {
				return nil, fmt.Errorf("row group %d column %s: %w", rg, fs.Fields[c].Name, err)
			}
			if err := readChunk(f.Column(c), chunk, leaf, sc.Column(c).MaxDefinitionLevel()); err != nil {
				return nil, fmt.Errorf("row group %d column %s: %w", rg, fs.Fields[c].Name, err)
			}
		}
	}
	if err := f.syncRows(); err != nil {
		return nil, fmt.Errorf("failed to read parquet %s: %w", path, err)
	}
	return f, nil
}

func leafKindOf(col *schema.Column) leafKind {
	phys := col.PhysicalType()
	switch lt := col.LogicalType().(type) {
	case schema.TimestampLogicalType:
		return leafKind{kind: table.KindTime, physical: phys, unit: timestampUnit(lt.TimeUnit())}
	case schema.DateLogicalType:
		return leafKind{kind: table.KindTime, physical: phys, unit: 24 * time.Hour}
	}
	switch col.ConvertedType() {
	case schema.ConvertedTypes.TimestampMillis:
		return leafKind{kind: table.KindTime, physical: phys, unit: time.Millisecond}
	case schema.ConvertedTypes.TimestampMicros:
		return leafKind{kind: table.KindTime, physical: phys, unit: time.Microsecond}
	case schema.ConvertedTypes.Date:
		return leafKind{kind: table.KindTime, physical: phys, unit: 24 * time.Hour}
	}

	switch phys {
	case parquet.Types.Boolean:
		return leafKind{kind: table.KindBool, physical: phys}
	case parquet.Types.Int32, parquet.Types.Int64:
		return leafKind{kind: table.KindInt, physical: phys}
	case parquet.Types.Int96:
		// legacy nanosecond timestamps
		return leafKind{kind: table.KindTime, physical: phys}
	case parquet.Types.Float, parquet.Types.Double:
		return leafKind{kind: table.KindFloat, physical: phys}
	default:
		// ByteArray and FixedLenByteArray are surfaced as text
		return leafKind{kind: table.KindString, physical: phys}
	}
}

func timestampUnit(u schema.TimeUnitType) time.Duration {
	switch u {
	case schema.TimeUnitMillis:
		return time.Millisecond
	case schema.TimeUnitNanos:
		return time.Nanosecond
	default:
		return time.Microsecond
	}
}

func ticksToTime(ticks int64, unit time.Duration) time.Time {
	switch unit {
	case time.Millisecond:
		return time.UnixMilli(ticks).UTC()
	case time.Microsecond:
		return time.UnixMicro(ticks).UTC()
	case time.Nanosecond:
		return time.Unix(0, ticks).UTC()
	default:
		return time.Unix(0, 0).Add(time.Duration(ticks) * unit).UTC()
	}
}

// readChunk appends every value of one column chunk to col
func readChunk(col Column, chunk file.ColumnChunkReader, leaf leafKind, maxDef int16) error {
	switch r := chunk.(type) {
	case *file.BooleanColumnChunkReader:
		return drain(r.ReadBatch, col, maxDef, func(v bool) any { return v })
	case *file.Int32ColumnChunkReader:
		if leaf.kind == table.KindTime {
			return drain(r.ReadBatch, col, maxDef, func(v int32) any { return ticksToTime(int64(v), leaf.unit) })
		}
		return drain(r.ReadBatch, col, maxDef, func(v int32) any { return int64(v) })
	case *file.Int64ColumnChunkReader:
		if leaf.kind == table.KindTime {
			return drain(r.ReadBatch, col, maxDef, func(v int64) any { return ticksToTime(v, leaf.unit) })
		}
		return drain(r.ReadBatch, col, maxDef, func(v int64) any { return v })
	case *file.Int96ColumnChunkReader:
		return drain(r.ReadBatch, col, maxDef, func(v parquet.Int96) any { return v.ToTime().UTC() })
	case *file.Float32ColumnChunkReader:
		return drain(r.ReadBatch, col, maxDef, func(v float32) any { return float64(v) })
	case *file.Float64ColumnChunkReader:
		return drain(r.ReadBatch, col, maxDef, func(v float64) any { return v })
	case *file.ByteArrayColumnChunkReader:
		return drain(r.ReadBatch, col, maxDef, func(v parquet.ByteArray) any { return string(v) })
	case *file.FixedLenByteArrayColumnChunkReader:
		return drain(r.ReadBatch, col, maxDef, func(v parquet.FixedLenByteArray) any { return string(v) })
	default:
		return fmt.Errorf("unsupported column reader %T for %s", chunk, leaf.physical)
	}
}

// drain reads a column chunk in batches. Values come back densely packed;
// definition levels below maxDef mark nulls.
func drain[T any](read func(batchSize int64, values []T, defLvls, repLvls []int16) (int64, int, error), col Column, maxDef int16, conv func(T) any) error {
	values := make([]T, readBatchRows)
	defs := make([]int16, readBatchRows)
	for {
		total, _, err := read(readBatchRows, values, defs, nil)
		if err != nil {
			return err
		}
		if total == 0 {
			return nil
		}
		next := 0
		for i := int64(0); i < total; i++ {
			if maxDef > 0 && defs[i] < maxDef {
				col.AppendNull()
				continue
			}
			if err := col.AppendValue(conv(values[next])); err != nil {
				return err
			}
			next++
		}
	}
}

// ParquetOptions configures the frame's Parquet writer.
type ParquetOptions struct {
	Compression string // snappy, gzip, zstd, none
	Parallelism int64  // marshal goroutines; default 4
}

func compressionCodec(name string) xparquet.CompressionCodec {
	switch strings.ToLower(name) {
	case "gzip":
		return xparquet.CompressionCodec_GZIP
	case "zstd":
		return xparquet.CompressionCodec_ZSTD
	case "none":
		return xparquet.CompressionCodec_UNCOMPRESSED
	default:
		return xparquet.CompressionCodec_SNAPPY
	}
}

// parquetSchemaJSON builds the JSON schema understood by the JSONWriter
func parquetSchemaJSON(s table.Schema) (string, error) {
	type field struct {
		Tag string `json:"Tag"`
	}
	type schema struct {
		Tag    string  `json:"Tag"`
		Fields []field `json:"Fields"`
	}
	sc := schema{Tag: "name=schema, repetitiontype=REQUIRED"}
	for _, fs := range s.Fields {
		tag := "name=" + fs.Name + ", repetitiontype=OPTIONAL, type="
		switch fs.Kind {
		case table.KindFloat:
			tag += "DOUBLE"
		case table.KindInt:
			tag += "INT64"
		case table.KindBool:
			tag += "BOOLEAN"
		case table.KindTime:
			tag += "INT64, convertedtype=TIMESTAMP_MICROS"
		default:
			tag += "BYTE_ARRAY, convertedtype=UTF8"
		}
		sc.Fields = append(sc.Fields, field{Tag: tag})
	}
	b, err := json.Marshal(sc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteParquet writes f to w as a single Parquet file
func WriteParquet(w io.Writer, f *Frame, opt ParquetOptions) error {
	schema, err := parquetSchemaJSON(f.Schema())
	if err != nil {
		return fmt.Errorf("failed to build parquet schema: %w", err)
	}
	np := opt.Parallelism
	if np <= 0 {
		np = 4
	}

	writer, err := pw.NewJSONWriterFromWriter(schema, w, np)
	if err != nil {
		return fmt.Errorf("parquet writer init: %w", err)
	}
	writer.CompressionType = compressionCodec(opt.Compression)

	names := f.Schema().Names()
	rec := make(map[string]any, len(names))
	for r := 0; r < f.Rows(); r++ {
		clear(rec)
		for c, name := range names {
			switch v := f.Column(c).Value(r).(type) {
			case nil:
			case time.Time:
				rec[name] = v.UnixMicro()
			default:
				rec[name] = v
			}
		}
		line, err := json.Marshal(rec)
		if err != nil {
			_ = writer.WriteStop()
			return fmt.Errorf("parquet encode row %d: %w", r, err)
		}
		if err := writer.Write(line); err != nil {
			_ = writer.WriteStop()
			return fmt.Errorf("parquet write row %d: %w", r, err)
		}
	}

	if err := writer.WriteStop(); err != nil {
		return fmt.Errorf("parquet finalize: %w", err)
	}
	return nil
}
