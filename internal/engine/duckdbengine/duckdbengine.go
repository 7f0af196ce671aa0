// Package duckdbengine benchmarks DuckDB. A read materializes the input
// file into an in-memory DuckDB table; a write copies that table out.
package duckdbengine

import (
	"bufio"
	"context"
	"database/sql/driver"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/basekick-labs/formatbench/internal/columnar"
	"github.com/basekick-labs/formatbench/internal/config"
	"github.com/basekick-labs/formatbench/internal/database"
	"github.com/basekick-labs/formatbench/internal/engine"
	"github.com/basekick-labs/formatbench/internal/table"
	"github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"
)

// Name is the engine's display name
const Name = "DuckDB"

// Engine owns one in-memory DuckDB database.
type Engine struct {
	db      *database.DuckDB
	parquet config.ParquetConfig
	logger  zerolog.Logger
	seq     atomic.Int64
}

// New is an engine.Factory
func New(deps engine.Deps) (engine.Engine, error) {
	logger := deps.Logger.With().Str("engine", Name).Logger()
	dbCfg := deps.Database
	db, err := database.New(&dbCfg, logger)
	if err != nil {
		return nil, err
	}
	return &Engine{db: db, parquet: deps.Parquet, logger: logger}, nil
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Close() error { return e.db.Close() }

func (e *Engine) Codec(format table.Format) (engine.Codec, error) {
	switch format {
	case table.FormatCSV:
		return csvCodec{e}, nil
	case table.FormatParquet:
		return parquetCodec{e}, nil
	case table.FormatArrow:
		return arrowCodec{e}, nil
	default:
		return nil, engine.Unsupported(Name, format)
	}
}

// Table is a materialized DuckDB table owned by the engine.
type Table struct {
	e      *Engine
	name   string
	schema table.Schema
	rows   int64
}

func (t *Table) Schema() table.Schema { return t.schema }
func (t *Table) NumRows() int64       { return t.rows }

// Name is the table's SQL name
func (t *Table) Name() string { return t.name }

// Release drops the backing table
func (t *Table) Release() {
	if t.name == "" {
		return
	}
	if _, err := t.e.db.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+database.QuoteIdent(t.name)); err != nil {
		t.e.logger.Warn().Err(err).Str("table", t.name).Msg("Failed to drop table")
	}
	t.name = ""
}

func (e *Engine) nextTableName() string {
	return fmt.Sprintf("bench_%d", e.seq.Add(1))
}

func (e *Engine) own(t table.Table) (*Table, error) {
	dt, ok := t.(*Table)
	if !ok || dt.e != e {
		return nil, engine.Foreign(Name, t)
	}
	if dt.name == "" {
		return nil, fmt.Errorf("%s: table already released", Name)
	}
	return dt, nil
}

// materialize runs CREATE TABLE ... AS SELECT * FROM <source> and describes the result
func (e *Engine) materialize(ctx context.Context, source string) (*Table, error) {
	name := e.nextTableName()
	query := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", database.QuoteIdent(name), source)
	if _, err := e.db.ExecContext(ctx, query); err != nil {
		return nil, err
	}

	t := &Table{e: e, name: name}
	if err := e.describe(ctx, t); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

// describe fills in the schema and row count of t
func (e *Engine) describe(ctx context.Context, t *Table) error {
	ident := database.QuoteIdent(t.name)

	rows, err := e.db.QueryContext(ctx, "SELECT * FROM "+ident+" LIMIT 0")
	if err != nil {
		return err
	}
	colTypes, err := rows.ColumnTypes()
	rows.Close()
	if err != nil {
		return fmt.Errorf("failed to get column types: %w", err)
	}

	t.schema = table.Schema{Fields: make([]table.Field, len(colTypes))}
	for i, ct := range colTypes {
		t.schema.Fields[i] = table.Field{
			Name: ct.Name(),
			Kind: table.KindFromArrow(columnar.SQLTypeToArrowType(ct.DatabaseTypeName())),
		}
	}

	countRows, err := e.db.QueryContext(ctx, "SELECT count(*) FROM "+ident)
	if err != nil {
		return err
	}
	defer countRows.Close()
	if countRows.Next() {
		if err := countRows.Scan(&t.rows); err != nil {
			return fmt.Errorf("failed to scan row count: %w", err)
		}
	}
	return countRows.Err()
}

func (e *Engine) copyTo(ctx context.Context, t table.Table, path, options string) error {
	dt, err := e.own(t)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("COPY %s TO %s (%s)", database.QuoteIdent(dt.name), database.QuoteLiteral(path), options)
	_, err = e.db.ExecContext(ctx, query)
	return err
}

type csvCodec struct{ e *Engine }

func (c csvCodec) Read(ctx context.Context, path string) (table.Table, error) {
	return c.e.materialize(ctx, fmt.Sprintf("read_csv_auto(%s, header=true)", database.QuoteLiteral(path)))
}

func (c csvCodec) Write(ctx context.Context, t table.Table, path string) error {
	return c.e.copyTo(ctx, t, path, "FORMAT CSV, HEADER")
}

type parquetCodec struct{ e *Engine }

func (c parquetCodec) Read(ctx context.Context, path string) (table.Table, error) {
	return c.e.materialize(ctx, fmt.Sprintf("read_parquet(%s)", database.QuoteLiteral(path)))
}

func (c parquetCodec) Write(ctx context.Context, t table.Table, path string) error {
	return c.e.copyTo(ctx, t, path, "FORMAT PARQUET, COMPRESSION "+parquetCompression(c.e.parquet.Compression))
}

func parquetCompression(name string) string {
	switch strings.ToLower(name) {
	case "gzip":
		return "GZIP"
	case "zstd":
		return "ZSTD"
	case "none":
		return "UNCOMPRESSED"
	default:
		return "SNAPPY"
	}
}

// arrowCodec moves Arrow IPC files in and out of DuckDB through arrow-go:
// the IPC reader feeds the DuckDB Appender, and query results feed Arrow builders.
type arrowCodec struct{ e *Engine }

func (c arrowCodec) Read(ctx context.Context, path string) (table.Table, error) {
	src, err := columnar.ReadIPC(path)
	if err != nil {
		return nil, err
	}
	defer src.Release()

	e := c.e
	t := &Table{e: e, name: e.nextTableName()}
	if _, err := e.db.ExecContext(ctx, createTableSQL(t.name, src.Schema())); err != nil {
		return nil, err
	}
	if err := e.appendTable(ctx, t.name, src); err != nil {
		t.Release()
		return nil, err
	}

	t.schema = table.Schema{Fields: make([]table.Field, src.NumCols())}
	for i, f := range src.Schema().Fields() {
		t.schema.Fields[i] = table.Field{
			Name: f.Name,
			Kind: table.KindFromArrow(columnar.SQLTypeToArrowType(columnar.ArrowTypeToSQLType(f.Type))),
		}
	}
	t.rows = src.NumRows()
	return t, nil
}

func (c arrowCodec) Write(ctx context.Context, t table.Table, path string) error {
	dt, err := c.e.own(t)
	if err != nil {
		return err
	}

	rows, err := c.e.db.QueryContext(ctx, "SELECT * FROM "+database.QuoteIdent(dt.name))
	if err != nil {
		return err
	}
	tbl, err := columnar.TableFromRows(rows)
	rows.Close()
	if err != nil {
		return err
	}
	defer tbl.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriterSize(f, 1<<20)
	if err := columnar.WriteIPC(w, tbl); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func createTableSQL(name string, schema *arrow.Schema) string {
	var sb strings.Builder
	sb.WriteString("CREATE OR REPLACE TABLE ")
	sb.WriteString(database.QuoteIdent(name))
	sb.WriteString(" (")
	for i, f := range schema.Fields() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(database.QuoteIdent(f.Name))
		sb.WriteString(" ")
		sb.WriteString(columnar.ArrowTypeToSQLType(f.Type))
	}
	sb.WriteString(")")
	return sb.String()
}

// appendTable bulk loads src into an existing table with the DuckDB Appender
func (e *Engine) appendTable(ctx context.Context, name string, src arrow.Table) error {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		appender, err := duckdb.NewAppenderFromConn(dc, "", name)
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}

		tr := array.NewTableReader(src, columnar.BatchSize)
		defer tr.Release()

		values := make([]driver.Value, src.NumCols())
		for tr.Next() {
			rec := tr.Record()
			for r := 0; r < int(rec.NumRows()); r++ {
				for c := range values {
					values[c] = columnar.ValueAt(rec.Column(c), r)
				}
				if err := appender.AppendRow(values...); err != nil {
					appender.Close()
					return fmt.Errorf("failed to append row: %w", err)
				}
			}
		}
		if err := tr.Err(); err != nil {
			appender.Close()
			return fmt.Errorf("failed to iterate arrow table: %w", err)
		}
		if err := appender.Close(); err != nil {
			return fmt.Errorf("failed to flush appender: %w", err)
		}
		return nil
	})
}
