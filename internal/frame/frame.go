// Package frame is a small typed, nullable, column-oriented data frame.
// It is the storage behind the Frame engine and carries its own CSV and
// Parquet codecs plus conversion to and from Arrow.
package frame

import (
	"fmt"
	"time"

	"github.com/basekick-labs/formatbench/internal/table"
)

// Column is a typed, nullable column.
type Column interface {
	Name() string
	Kind() table.Kind
	Len() int
	IsNull(i int) bool
	// Value returns the cell as bool, int64, float64, string or time.Time, nil when null
	Value(i int) any
	AppendNull()
	// AppendValue appends v, which must already have the column's Go type
	AppendValue(v any) error
}

type cell interface {
	bool | int64 | float64 | string | time.Time
}

// TypedColumn stores values of one Go type with a parallel null mask.
type TypedColumn[T cell] struct {
	name  string
	kind  table.Kind
	data  []T
	nulls []bool
}

func newColumn[T cell](name string, kind table.Kind, capacity int) *TypedColumn[T] {
	return &TypedColumn[T]{
		name:  name,
		kind:  kind,
		data:  make([]T, 0, capacity),
		nulls: make([]bool, 0, capacity),
	}
}

func (c *TypedColumn[T]) Name() string      { return c.name }
func (c *TypedColumn[T]) Kind() table.Kind  { return c.kind }
func (c *TypedColumn[T]) Len() int          { return len(c.data) }
func (c *TypedColumn[T]) IsNull(i int) bool { return c.nulls[i] }
func (c *TypedColumn[T]) Get(i int) (T, bool) {
	return c.data[i], !c.nulls[i]
}

func (c *TypedColumn[T]) Value(i int) any {
	if c.nulls[i] {
		return nil
	}
	return c.data[i]
}

func (c *TypedColumn[T]) Append(v T) {
	c.data = append(c.data, v)
	c.nulls = append(c.nulls, false)
}

func (c *TypedColumn[T]) AppendNull() {
	var zero T
	c.data = append(c.data, zero)
	c.nulls = append(c.nulls, true)
}

func (c *TypedColumn[T]) AppendValue(v any) error {
	if v == nil {
		c.AppendNull()
		return nil
	}
	t, ok := v.(T)
	if !ok {
		return fmt.Errorf("column %s expects %s, got %T", c.name, c.kind, v)
	}
	c.Append(t)
	return nil
}

// Frame is a columnar container for tabular data. It satisfies table.Table.
type Frame struct {
	schema table.Schema
	cols   []Column
	index  map[string]int // name -> col index
	nrows  int
}

// New creates an empty frame with capacity rows preallocated per column
func New(s table.Schema, capacity int) (*Frame, error) {
	f := &Frame{
		schema: s,
		cols:   make([]Column, len(s.Fields)),
		index:  make(map[string]int, len(s.Fields)),
	}
	for i, field := range s.Fields {
		switch field.Kind {
		case table.KindBool:
			f.cols[i] = newColumn[bool](field.Name, field.Kind, capacity)
		case table.KindInt:
			f.cols[i] = newColumn[int64](field.Name, field.Kind, capacity)
		case table.KindFloat:
			f.cols[i] = newColumn[float64](field.Name, field.Kind, capacity)
		case table.KindString:
			f.cols[i] = newColumn[string](field.Name, field.Kind, capacity)
		case table.KindTime:
			f.cols[i] = newColumn[time.Time](field.Name, field.Kind, capacity)
		default:
			return nil, fmt.Errorf("column %s: invalid kind %s", field.Name, field.Kind)
		}
		if _, dup := f.index[field.Name]; dup {
			return nil, fmt.Errorf("duplicate column %s", field.Name)
		}
		f.index[field.Name] = i
	}
	return f, nil
}

func (f *Frame) Schema() table.Schema { return f.schema }
func (f *Frame) NumRows() int64       { return int64(f.nrows) }
func (f *Frame) Rows() int            { return f.nrows }
func (f *Frame) Cols() int            { return len(f.cols) }

// Release is a no-op; frames live on the Go heap.
func (f *Frame) Release() {}

func (f *Frame) Column(i int) Column { return f.cols[i] }

func (f *Frame) ColumnByName(name string) (Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// AppendRow appends one value per column; nil means null.
// On error the frame is left unchanged.
func (f *Frame) AppendRow(values []any) error {
	if len(values) != len(f.cols) {
		return fmt.Errorf("row has %d values, frame has %d columns", len(values), len(f.cols))
	}
	for i, v := range values {
		if err := f.cols[i].AppendValue(v); err != nil {
			f.truncate(f.nrows)
			return err
		}
	}
	f.nrows++
	return nil
}

// Row returns a copy of row i
func (f *Frame) Row(i int) []any {
	out := make([]any, len(f.cols))
	for c, col := range f.cols {
		out[c] = col.Value(i)
	}
	return out
}

// syncRows sets the row count after columns were filled one at a time
func (f *Frame) syncRows() error {
	n := 0
	for i, c := range f.cols {
		if i == 0 {
			n = c.Len()
			continue
		}
		if c.Len() != n {
			return fmt.Errorf("column %s has %d rows, want %d", c.Name(), c.Len(), n)
		}
	}
	f.nrows = n
	return nil
}

func (f *Frame) truncate(n int) {
	for _, c := range f.cols {
		switch col := c.(type) {
		case *TypedColumn[bool]:
			col.data, col.nulls = col.data[:n], col.nulls[:n]
		case *TypedColumn[int64]:
			col.data, col.nulls = col.data[:n], col.nulls[:n]
		case *TypedColumn[float64]:
			col.data, col.nulls = col.data[:n], col.nulls[:n]
		case *TypedColumn[string]:
			col.data, col.nulls = col.data[:n], col.nulls[:n]
		case *TypedColumn[time.Time]:
			col.data, col.nulls = col.data[:n], col.nulls[:n]
		}
	}
}
