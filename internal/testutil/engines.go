package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basekick-labs/formatbench/internal/engine"
	"github.com/basekick-labs/formatbench/internal/export"
	"github.com/basekick-labs/formatbench/internal/table"
	"github.com/basekick-labs/formatbench/pkg/models"
)

// ForeignTable is a table no engine owns
type ForeignTable struct{}

func (ForeignTable) Schema() table.Schema { return table.Schema{} }
func (ForeignTable) NumRows() int64       { return 0 }
func (ForeignTable) Release()             {}

// CheckEngine reads every exported file with e, writes it back out and
// reads the output again, checking row counts and field names each time.
func CheckEngine(t *testing.T, e engine.Engine, inputs export.Paths, rows int) {
	t.Helper()
	ctx := context.Background()
	outDir := t.TempDir()
	want := models.TransactionFields()

	for _, format := range []table.Format{table.FormatCSV, table.FormatParquet, table.FormatArrow} {
		codec, err := e.Codec(format)
		if err != nil {
			t.Fatalf("%s %s: Codec() error = %v", e.Name(), format, err)
		}

		tbl, err := codec.Read(ctx, inputs.For(format))
		if err != nil {
			t.Fatalf("%s %s: Read() error = %v", e.Name(), format, err)
		}
		checkTable(t, e.Name()+" "+string(format)+" read", tbl, rows, want)

		out := filepath.Join(outDir, "out_"+strings.ToLower(e.Name())+"."+format.Ext())
		if err := codec.Write(ctx, tbl, out); err != nil {
			t.Fatalf("%s %s: Write() error = %v", e.Name(), format, err)
		}
		tbl.Release()

		again, err := codec.Read(ctx, out)
		if err != nil {
			t.Fatalf("%s %s: re-Read() error = %v", e.Name(), format, err)
		}
		checkTable(t, e.Name()+" "+string(format)+" re-read", again, rows, want)
		again.Release()

		if err := codec.Write(ctx, ForeignTable{}, out); !errors.Is(err, engine.ErrForeignTable) {
			t.Errorf("%s %s: Write(foreign) error = %v, want ErrForeignTable", e.Name(), format, err)
		}
	}

	if _, err := e.Codec(table.Format("orc")); !errors.Is(err, engine.ErrUnsupportedFormat) {
		t.Errorf("%s: Codec(orc) error = %v, want ErrUnsupportedFormat", e.Name(), err)
	}
}

func checkTable(t *testing.T, label string, tbl table.Table, rows int, want []string) {
	t.Helper()
	if got := tbl.NumRows(); got != int64(rows) {
		t.Errorf("%s: NumRows() = %d, want %d", label, got, rows)
	}
	if got := tbl.Schema().Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("%s: fields = %v, want %v", label, got, want)
	}
}
