package database

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestEscapeSQLString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no quotes",
			input:    "simple_value",
			expected: "simple_value",
		},
		{
			name:     "single quote",
			input:    "value'with'quotes",
			expected: "value''with''quotes",
		},
		{
			name:     "sql injection attempt",
			input:    "test'; DROP TABLE data; --",
			expected: "test''; DROP TABLE data; --",
		},
		{
			name:     "multiple consecutive quotes",
			input:    "a'''b",
			expected: "a''''''b",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "only quotes",
			input:    "'''",
			expected: "''''''",
		},
		{
			name:     "realistic s3 secret key",
			input:    "wJalrXUtnFEMI/K7MDENG/bPxRfiCY'EXAMPLE",
			expected: "wJalrXUtnFEMI/K7MDENG/bPxRfiCY''EXAMPLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := escapeSQLString(tt.input)
			if result != tt.expected {
				t.Errorf("escapeSQLString(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestQuoteHelpers(t *testing.T) {
	if got := QuoteLiteral("/tmp/it's.csv"); got != "'/tmp/it''s.csv'" {
		t.Errorf("QuoteLiteral() = %s", got)
	}
	if got := QuoteIdent(`odd"name`); got != `"odd""name"` {
		t.Errorf("QuoteIdent() = %s", got)
	}
}

func TestDuckDB_ExecAndQuery(t *testing.T) {
	db, err := New(&Config{MemoryLimit: "1GB", ThreadCount: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "CREATE TABLE t AS SELECT range AS n FROM range(5)"); err != nil {
		t.Fatalf("ExecContext() error = %v", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT count(*) FROM t")
	if err != nil {
		t.Fatalf("QueryContext() error = %v", err)
	}
	defer rows.Close()

	var n int64
	if !rows.Next() {
		t.Fatal("expected one row")
	}
	if err := rows.Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("count = %d, want 5", n)
	}
}

func TestDuckDB_QueryErrorWrapped(t *testing.T) {
	db, err := New(&Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	_, err = db.QueryContext(context.Background(), "SELECT * FROM missing_table")
	if err == nil || !strings.Contains(err.Error(), "query failed") {
		t.Errorf("QueryContext() error = %v, want wrapped query failure", err)
	}
}
