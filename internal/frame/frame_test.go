package frame

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/basekick-labs/formatbench/internal/columnar"
	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/table"
	"github.com/basekick-labs/formatbench/internal/testutil"
	"github.com/basekick-labs/formatbench/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = table.Schema{Fields: []table.Field{
	{Name: "id", Kind: table.KindString},
	{Name: "amount", Kind: table.KindFloat},
	{Name: "qty", Kind: table.KindInt},
	{Name: "ok", Kind: table.KindBool},
	{Name: "at", Kind: table.KindTime},
}}

func sampleFrame(t *testing.T, n int) *Frame {
	t.Helper()
	f, err := New(testSchema, n)
	require.NoError(t, err)

	base := time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.UTC)
	for i := 0; i < n; i++ {
		row := []any{"id-" + string(rune('a'+i%26)), float64(i) + 0.5, int64(i), i%2 == 0, base.Add(time.Duration(i) * time.Minute)}
		if i == 3 {
			row[1] = nil
			row[4] = nil
		}
		require.NoError(t, f.AppendRow(row))
	}
	return f
}

func TestNew_InvalidKind(t *testing.T) {
	_, err := New(table.Schema{Fields: []table.Field{{Name: "x"}}}, 0)
	assert.Error(t, err)

	_, err = New(table.Schema{Fields: []table.Field{
		{Name: "x", Kind: table.KindInt},
		{Name: "x", Kind: table.KindInt},
	}}, 0)
	assert.Error(t, err)
}

func TestAppendRow(t *testing.T) {
	f := sampleFrame(t, 5)
	assert.Equal(t, int64(5), f.NumRows())

	col, ok := f.ColumnByName("amount")
	require.True(t, ok)
	assert.True(t, col.IsNull(3))
	assert.Equal(t, 2.5, col.Value(2))

	// wrong arity
	assert.Error(t, f.AppendRow([]any{"x"}))

	// type mismatch in the last column must not leave a partial row
	err := f.AppendRow([]any{"x", 1.0, int64(1), true, "not a time"})
	require.Error(t, err)
	assert.Equal(t, 5, f.Rows())
	for c := 0; c < f.Cols(); c++ {
		assert.Equal(t, 5, f.Column(c).Len(), "column %d", c)
	}
}

func TestCSV_InferAndRoundTrip(t *testing.T) {
	f := sampleFrame(t, 30)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))
	assert.True(t, strings.HasPrefix(buf.String(), "id,amount,qty,ok,at\n"))

	got, err := ReadCSV(bytes.NewReader(buf.Bytes()), CSVOptions{SampleRows: 10})
	require.NoError(t, err)

	assert.Equal(t, f.Schema(), got.Schema())
	require.Equal(t, f.Rows(), got.Rows())
	for r := 0; r < f.Rows(); r++ {
		assert.Equal(t, f.Row(r), got.Row(r), "row %d", r)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	assert.ErrorIs(t, err, ErrNoHeader)

	// qty is inferred as int from the sample; a later row disagrees
	in := "qty\n1\n2\nthree\n"
	_, err = ReadCSV(strings.NewReader(in), CSVOptions{SampleRows: 2})
	assert.Error(t, err)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("a,b\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, f.Rows())
	assert.Equal(t, []string{"a", "b"}, f.Schema().Names())
}

func TestInferKinds(t *testing.T) {
	rows := [][]string{
		{"1", "1.5", "true", "2024-01-02 03:04:05", "x", ""},
		{"2", "2", "FALSE", "2024-01-02T03:04:05Z", "1", ""},
	}
	got := inferKinds(rows, 6)
	assert.Equal(t, []table.Kind{
		table.KindInt, table.KindFloat, table.KindBool, table.KindTime, table.KindString, table.KindString,
	}, got)
}

func TestParquet_RoundTrip(t *testing.T) {
	f := sampleFrame(t, 50)
	path := filepath.Join(t.TempDir(), "f.parquet")

	for _, comp := range []string{"snappy", "zstd", "none"} {
		t.Run(comp, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteParquet(&buf, f, ParquetOptions{Compression: comp}))
			require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

			got, err := ReadParquet(path)
			require.NoError(t, err)

			assert.Equal(t, f.Schema(), got.Schema())
			require.Equal(t, f.Rows(), got.Rows())
			for r := 0; r < f.Rows(); r++ {
				assert.Equal(t, f.Row(r), got.Row(r), "row %d", r)
			}
		})
	}
}

func writeArrowParquet(t *testing.T, f *Frame, cfg config.ParquetConfig) string {
	t.Helper()
	tbl := ToArrow(f)
	defer tbl.Release()

	path := filepath.Join(t.TempDir(), "arrow.parquet")
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, columnar.WriteParquet(out, tbl, cfg))
	require.NoError(t, out.Close())
	return path
}

func TestReadParquet_ArrowWritten(t *testing.T) {
	f := sampleFrame(t, 3000)

	configs := map[string]config.ParquetConfig{
		"page v2":       testutil.ParquetConfig(),
		"page v1":       {Compression: "snappy", UseDictionary: true, WriteStatistics: true, DataPageVersion: "1.0"},
		"plain gzip v1": {Compression: "gzip", UseDictionary: false, WriteStatistics: false, DataPageVersion: "1.0"},
		"zstd v2":       {Compression: "zstd", UseDictionary: true, WriteStatistics: true, DataPageVersion: "2.0"},
	}
	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			got, err := ReadParquet(writeArrowParquet(t, f, cfg))
			require.NoError(t, err)

			assert.Equal(t, f.Schema(), got.Schema())
			require.Equal(t, f.Rows(), got.Rows())
			for r := 0; r < f.Rows(); r++ {
				require.Equal(t, f.Row(r), got.Row(r), "row %d", r)
			}
		})
	}
}

func TestReadParquet_ManyRowGroups(t *testing.T) {
	f := sampleFrame(t, 100)
	tbl := ToArrow(f)
	defer tbl.Release()

	path := filepath.Join(t.TempDir(), "groups.parquet")
	out, err := os.Create(path)
	require.NoError(t, err)
	props := columnar.ParquetProperties(testutil.ParquetConfig())
	require.NoError(t, pqarrow.WriteTable(tbl, out, 7, props, pqarrow.DefaultWriterProps()))
	require.NoError(t, out.Close())

	got, err := ReadParquet(path)
	require.NoError(t, err)
	require.Equal(t, f.Rows(), got.Rows())
	for r := 0; r < f.Rows(); r++ {
		assert.Equal(t, f.Row(r), got.Row(r), "row %d", r)
	}
}

func TestReadParquet_GeneratedInput(t *testing.T) {
	paths := testutil.WriteDataset(t, t.TempDir(), 60)

	src, err := columnar.ReadIPC(paths.Arrow)
	require.NoError(t, err)
	defer src.Release()
	want, err := FromArrow(src)
	require.NoError(t, err)

	v1 := testutil.ParquetConfig()
	v1.DataPageVersion = "1.0"
	v1Path := filepath.Join(t.TempDir(), "v1.parquet")
	out, err := os.Create(v1Path)
	require.NoError(t, err)
	require.NoError(t, columnar.WriteParquet(out, src, v1))
	require.NoError(t, out.Close())

	for name, path := range map[string]string{"exported": paths.Parquet, "page v1": v1Path} {
		t.Run(name, func(t *testing.T) {
			got, err := ReadParquet(path)
			require.NoError(t, err)
			assert.Equal(t, models.TransactionFields(), got.Schema().Names())
			assert.Equal(t, table.KindTime, got.Schema().Fields[5].Kind)
			require.Equal(t, 60, got.Rows())
			for r := 0; r < got.Rows(); r++ {
				require.Equal(t, want.Row(r), got.Row(r), "row %d", r)
			}
		})
	}

	// the frame's own writer output reads back the same way
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, want, ParquetOptions{Compression: "snappy"}))
	ownPath := filepath.Join(t.TempDir(), "own.parquet")
	require.NoError(t, os.WriteFile(ownPath, buf.Bytes(), 0o644))
	again, err := ReadParquet(ownPath)
	require.NoError(t, err)
	require.Equal(t, want.Rows(), again.Rows())
	assert.Equal(t, want.Row(59), again.Row(59))
}

func TestReadParquet_Missing(t *testing.T) {
	_, err := ReadParquet(filepath.Join(t.TempDir(), "missing.parquet"))
	assert.Error(t, err)
}

func TestArrow_RoundTrip(t *testing.T) {
	f := sampleFrame(t, 20)

	tbl := ToArrow(f)
	defer tbl.Release()
	assert.Equal(t, int64(20), tbl.NumRows())
	assert.Equal(t, f.Schema(), table.SchemaFromArrow(tbl.Schema()))

	got, err := FromArrow(tbl)
	require.NoError(t, err)
	require.Equal(t, f.Rows(), got.Rows())
	for r := 0; r < f.Rows(); r++ {
		assert.Equal(t, f.Row(r), got.Row(r), "row %d", r)
	}
}

func TestToArrow_Empty(t *testing.T) {
	f, err := New(testSchema, 0)
	require.NoError(t, err)

	tbl := ToArrow(f)
	defer tbl.Release()
	assert.Equal(t, int64(0), tbl.NumRows())
	assert.Equal(t, int64(len(testSchema.Fields)), tbl.NumCols())
}
