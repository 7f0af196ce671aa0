package frame

import (
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/basekick-labs/formatbench/internal/columnar"
	"github.com/basekick-labs/formatbench/internal/table"
)

// FromArrow copies an Arrow table into a new frame
func FromArrow(tbl arrow.Table) (*Frame, error) {
	schema := table.SchemaFromArrow(tbl.Schema())
	f, err := New(schema, int(tbl.NumRows()))
	if err != nil {
		return nil, err
	}

	tr := array.NewTableReader(tbl, columnar.BatchSize)
	defer tr.Release()

	values := make([]any, len(schema.Fields))
	for tr.Next() {
		rec := tr.Record()
		for r := 0; r < int(rec.NumRows()); r++ {
			for c, field := range schema.Fields {
				v, err := coerce(field.Kind, columnar.ValueAt(rec.Column(c), r))
				if err != nil {
					return nil, fmt.Errorf("column %s: %w", field.Name, err)
				}
				values[c] = v
			}
			if err := f.AppendRow(values); err != nil {
				return nil, err
			}
		}
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate arrow table: %w", err)
	}
	return f, nil
}

// ArrowSchema maps the frame schema to Arrow; time columns become UTC microsecond timestamps
func ArrowSchema(s table.Schema) *arrow.Schema {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		var dt arrow.DataType
		switch f.Kind {
		case table.KindBool:
			dt = arrow.FixedWidthTypes.Boolean
		case table.KindInt:
			dt = arrow.PrimitiveTypes.Int64
		case table.KindFloat:
			dt = arrow.PrimitiveTypes.Float64
		case table.KindTime:
			dt = arrow.FixedWidthTypes.Timestamp_us
		default:
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// ToArrow builds an Arrow table from f. The caller releases the result.
func ToArrow(f *Frame) arrow.Table {
	schema := ArrowSchema(f.Schema())
	b := array.NewRecordBuilder(columnar.Allocator, schema)
	defer b.Release()

	var records []arrow.Record
	for start := 0; start < f.Rows() || len(records) == 0; start += columnar.BatchSize {
		end := min(start+columnar.BatchSize, f.Rows())
		for c := 0; c < f.Cols(); c++ {
			col := f.Column(c)
			fb := b.Field(c)
			fb.Reserve(end - start)
			for r := start; r < end; r++ {
				columnar.AppendValue(fb, col.Value(r))
			}
		}
		records = append(records, b.NewRecord())
	}

	tbl := array.NewTableFromRecords(schema, records)
	for _, rec := range records {
		rec.Release()
	}
	return tbl
}

// coerce converts a value produced by columnar.ValueAt to the Go type of kind
func coerce(kind table.Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case table.KindInt:
		switch t := v.(type) {
		case int64:
			return t, nil
		case uint64:
			return int64(t), nil
		}
	case table.KindFloat:
		switch t := v.(type) {
		case float64:
			return t, nil
		case string:
			// decimals and half floats arrive in their string form
			return strconv.ParseFloat(t, 64)
		}
	case table.KindBool:
		if t, ok := v.(bool); ok {
			return t, nil
		}
	case table.KindTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	case table.KindString:
		if t, ok := v.(string); ok {
			return t, nil
		}
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("cannot store %T as %s", v, kind)
}
