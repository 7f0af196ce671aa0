package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/basekick-labs/formatbench/internal/columnar"
	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/storage"
	"github.com/basekick-labs/formatbench/internal/table"
	"github.com/basekick-labs/formatbench/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset(n int) models.Dataset {
	ds := models.Dataset{Transactions: make([]models.Transaction, n)}
	base := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	for i := range ds.Transactions {
		ds.Transactions[i] = models.Transaction{
			TransactionID:   "tx",
			UserID:          "u",
			ProductID:       "p",
			Amount:          float64(i) + 10.25,
			TransactionType: "Credit",
			Date:            base.Add(time.Duration(i) * time.Hour),
			Description:     "Some words, with a comma.",
		}
	}
	return ds
}

func testFiles() config.DataConfig {
	return config.DataConfig{CSVFile: "data.csv", ParquetFile: "data.parquet", ArrowFile: "data.arrow"}
}

func testParquet() config.ParquetConfig {
	return config.ParquetConfig{Compression: "zstd", UseDictionary: true, WriteStatistics: true, DataPageVersion: "1.0"}
}

func TestRecordFromDataset(t *testing.T) {
	rec := RecordFromDataset(testDataset(3))
	defer rec.Release()

	assert.Equal(t, int64(3), rec.NumRows())
	assert.True(t, rec.Schema().Equal(models.TransactionSchema))
}

func TestExport_WritesAllFormats(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	backend, err := storage.NewLocalBackend(dir, logger)
	require.NoError(t, err)

	paths, err := New(backend, testFiles(), testParquet(), logger).Export(context.Background(), testDataset(50))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data.csv"), paths.For(table.FormatCSV))
	assert.Equal(t, filepath.Join(dir, "data.parquet"), paths.For(table.FormatParquet))
	assert.Equal(t, filepath.Join(dir, "data.arrow"), paths.For(table.FormatArrow))

	want := models.TransactionFields()
	readers := map[table.Format]func(string) (arrow.Table, error){
		table.FormatCSV:     columnar.ReadCSV,
		table.FormatParquet: func(p string) (arrow.Table, error) { return columnar.ReadParquet(context.Background(), p) },
		table.FormatArrow:   columnar.ReadIPC,
	}
	for format, read := range readers {
		tbl, err := read(paths.For(format))
		require.NoError(t, err, format)
		assert.Equal(t, int64(50), tbl.NumRows(), format)
		assert.Equal(t, want, table.SchemaFromArrow(tbl.Schema()).Names(), format)
		tbl.Release()
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var files []string
	for _, e := range entries {
		files = append(files, e.Name())
	}
	assert.ElementsMatch(t, []string{"data.csv", "data.parquet", "data.arrow"}, files)

	out := logs.String()
	assert.Contains(t, out, "Exporting data to CSV, Parquet, and Arrow formats.")
	for _, msg := range []string{"CSV export complete.", "Parquet export complete.", "Arrow export complete."} {
		assert.Equal(t, 1, strings.Count(out, msg), msg)
	}
}

func TestExport_Overwrites(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewLocalBackend(dir, zerolog.Nop())
	require.NoError(t, err)
	x := New(backend, testFiles(), testParquet(), zerolog.Nop())

	_, err = x.Export(context.Background(), testDataset(40))
	require.NoError(t, err)
	paths, err := x.Export(context.Background(), testDataset(5))
	require.NoError(t, err)

	tbl, err := columnar.ReadIPC(paths.Arrow)
	require.NoError(t, err)
	defer tbl.Release()
	assert.Equal(t, int64(5), tbl.NumRows())
}

// failingBackend rejects writes for one path after reading limit bytes of it
type failingBackend struct {
	storage.Backend
	failPath string
	limit    int64
}

var errDiskFull = errors.New("disk full")

func (b failingBackend) WriteReader(ctx context.Context, path string, r io.Reader) error {
	if path == b.failPath {
		if b.limit > 0 {
			if _, err := io.CopyN(io.Discard, r, b.limit); err != nil {
				return err
			}
		}
		return errDiskFull
	}
	return b.Backend.WriteReader(ctx, path, r)
}

func TestExport_BackendFailure(t *testing.T) {
	tests := []struct {
		name     string
		failPath string
		limit    int64
		format   string
	}{
		{"parquet before header", "data.parquet", 0, "Parquet"},
		{"parquet mid stream", "data.parquet", 16, "Parquet"},
		{"arrow before header", "data.arrow", 0, "Arrow"},
		{"csv mid stream", "data.csv", 8, "CSV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			local, err := storage.NewLocalBackend(dir, zerolog.Nop())
			require.NoError(t, err)

			// a complete earlier export must not survive next to the failed one
			_, err = New(local, testFiles(), testParquet(), zerolog.Nop()).Export(context.Background(), testDataset(3))
			require.NoError(t, err)

			backend := failingBackend{Backend: local, failPath: tt.failPath, limit: tt.limit}
			_, err = New(backend, testFiles(), testParquet(), zerolog.Nop()).Export(context.Background(), testDataset(10))
			require.Error(t, err)
			assert.ErrorIs(t, err, errDiskFull)
			assert.Contains(t, err.Error(), tt.format+" export failed")

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestRunEncoder_RecoversPanic(t *testing.T) {
	err := runEncoder(io.Discard, func(io.Writer) error { panic("failed to write magic number") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write magic number")

	assert.NoError(t, runEncoder(io.Discard, func(io.Writer) error { return nil }))
}

func TestPaths_Set(t *testing.T) {
	var p Paths
	p.Set(table.FormatCSV, "a.csv")
	p.Set(table.FormatParquet, "a.parquet")
	p.Set(table.FormatArrow, "a.arrow")
	p.Set(table.Format("orc"), "a.orc")

	assert.Equal(t, Paths{CSV: "a.csv", Parquet: "a.parquet", Arrow: "a.arrow"}, p)
	assert.Equal(t, "a.parquet", p.For(table.FormatParquet))
	assert.Empty(t, p.For(table.Format("orc")))
}
