package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/basekick-labs/formatbench/internal/table"
)

// DefaultSampleRows is how many data rows feed type inference
const DefaultSampleRows = 100

// CSVTimeLayout is the layout used when writing time cells
const CSVTimeLayout = "2006-01-02 15:04:05.999999"

// Layouts accepted when inferring and parsing time cells, in order
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("csv input has no header row")

type CSVOptions struct {
	SampleRows int // rows sampled for inference; default 100
}

// ReadCSV loads CSV with a header row into a frame. Column kinds are
// inferred from a sample of rows; empty cells are null.
func ReadCSV(r io.Reader, opt CSVOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}
	// strip BOM on first header cell if present
	if len(names) > 0 {
		names[0] = strings.TrimPrefix(names[0], "\ufeff")
	}

	limit := opt.SampleRows
	if limit <= 0 {
		limit = DefaultSampleRows
	}

	var sample [][]string
	for len(sample) < limit {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", len(sample)+1, err)
		}
		sample = append(sample, append([]string(nil), rec...))
	}

	kinds := inferKinds(sample, len(names))
	schema := table.Schema{Fields: make([]table.Field, len(names))}
	for i, name := range names {
		schema.Fields[i] = table.Field{Name: name, Kind: kinds[i]}
	}

	f, err := New(schema, len(sample))
	if err != nil {
		return nil, err
	}

	row := make([]any, len(names))
	appendRecord := func(n int, rec []string) error {
		for i, field := range schema.Fields {
			v, err := parseCell(field.Kind, rec[i])
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", n, field.Name, err)
			}
			row[i] = v
		}
		return f.AppendRow(row)
	}

	for i, rec := range sample {
		if err := appendRecord(i+1, rec); err != nil {
			return nil, err
		}
	}
	for n := len(sample) + 1; ; n++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", n, err)
		}
		if err := appendRecord(n, rec); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteCSV writes f with a header row. Nulls are empty cells.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Schema().Names()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	rec := make([]string, f.Cols())
	for r := 0; r < f.Rows(); r++ {
		for c := 0; c < f.Cols(); c++ {
			rec[c] = formatCell(f.Column(c).Value(r))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", r+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func inferKinds(rows [][]string, ncol int) []table.Kind {
	kinds := make([]table.Kind, ncol)
	for c := 0; c < ncol; c++ {
		seen, ints, floats, bools, times := 0, 0, 0, 0, 0
		for _, row := range rows {
			v := strings.TrimSpace(row[c])
			if v == "" {
				continue
			}
			seen++
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				ints++
				floats++
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err == nil {
				floats++
				continue
			}
			if isBool(v) {
				bools++
				continue
			}
			if _, ok := parseTime(v); ok {
				times++
			}
		}
		switch {
		case seen == 0:
			kinds[c] = table.KindString
		case ints == seen:
			kinds[c] = table.KindInt
		case floats == seen:
			kinds[c] = table.KindFloat
		case bools == seen:
			kinds[c] = table.KindBool
		case times == seen:
			kinds[c] = table.KindTime
		default:
			kinds[c] = table.KindString
		}
	}
	return kinds
}

// parseCell converts a raw cell. Rows past the sample can still disagree
// with the inferred kind, which is an error rather than a silent null.
func parseCell(kind table.Kind, raw string) (any, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	switch kind {
	case table.KindInt:
		return strconv.ParseInt(v, 10, 64)
	case table.KindFloat:
		return strconv.ParseFloat(v, 64)
	case table.KindBool:
		return strconv.ParseBool(strings.ToLower(v))
	case table.KindTime:
		t, ok := parseTime(v)
		if !ok {
			return nil, fmt.Errorf("invalid time %q", v)
		}
		return t, nil
	default:
		return raw, nil
	}
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(CSVTimeLayout)
	default:
		return fmt.Sprint(t)
	}
}

func isBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false":
		return true
	}
	return false
}

func parseTime(v string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
