// Package table defines the engine-neutral view of an in-memory dataset
// and the file formats the harness benchmarks.
package table

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Kind enumerates the logical column types engines report.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "invalid"
	}
}

// Field is one named column.
type Field struct {
	Name string
	Kind Kind
}

// Schema is an ordered list of fields.
type Schema struct {
	Fields []Field
}

// Names returns the field names in order
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s Schema) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + ":" + f.Kind.String()
	}
	return strings.Join(parts, ", ")
}

// Table is the result of an engine read. Each engine returns its own
// implementation and only accepts its own tables back on write.
type Table interface {
	Schema() Schema
	NumRows() int64
	// Release frees engine resources held by the table
	Release()
}

// KindFromArrow maps an Arrow type to a Kind
func KindFromArrow(dt arrow.DataType) Kind {
	switch dt.ID() {
	case arrow.BOOL:
		return KindBool
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return KindInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128, arrow.DECIMAL256:
		return KindFloat
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return KindTime
	case arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY:
		return KindString
	default:
		return KindString
	}
}

// SchemaFromArrow converts an Arrow schema
func SchemaFromArrow(s *arrow.Schema) Schema {
	fields := make([]Field, s.NumFields())
	for i, f := range s.Fields() {
		fields[i] = Field{Name: f.Name, Kind: KindFromArrow(f.Type)}
	}
	return Schema{Fields: fields}
}

// Format is a benchmarked file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatArrow   Format = "arrow"
)

// ParseFormat accepts the config spelling of a format
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	case FormatArrow:
		return FormatArrow, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// Ext is the file extension used for inputs and outputs
func (f Format) Ext() string {
	return string(f)
}

// DisplayName is the spelling used in timing log lines
func (f Format) DisplayName() string {
	switch f {
	case FormatCSV:
		return "CSV"
	case FormatParquet:
		return "Parquet"
	case FormatArrow:
		return "Arrow"
	default:
		return string(f)
	}
}
