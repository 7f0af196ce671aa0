package datagen

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTransaction_EmptyInputs(t *testing.T) {
	g := newTestGenerator(1)

	_, err := g.GenerateTransaction(nil, []string{"p"})
	assert.ErrorIs(t, err, ErrNoUserIDs)

	_, err = g.GenerateTransaction([]string{"u"}, nil)
	assert.ErrorIs(t, err, ErrNoProductIDs)
}

func TestGenerate_Length(t *testing.T) {
	for _, n := range []int{0, 1, 37} {
		ds, err := newTestGenerator(42).Generate(n)
		require.NoError(t, err)
		assert.Equal(t, n, ds.Len())
	}

	_, err := newTestGenerator(42).Generate(-1)
	assert.Error(t, err)
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := newTestGenerator(7).Generate(20)
	require.NoError(t, err)
	b, err := newTestGenerator(7).Generate(20)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := newTestGenerator(8).Generate(20)
	require.NoError(t, err)
	assert.NotEqual(t, a.Transactions[0].TransactionID, c.Transactions[0].TransactionID)
}

func TestGenerate_UniqueTransactionIDs(t *testing.T) {
	ds, err := newTestGenerator(99).Generate(500)
	require.NoError(t, err)

	seen := make(map[string]bool, ds.Len())
	for _, tx := range ds.Transactions {
		assert.False(t, seen[tx.TransactionID], "duplicate id %s", tx.TransactionID)
		seen[tx.TransactionID] = true
		assert.NotEmpty(t, tx.Description)
	}
}

func TestGenerate_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	g := New(Options{Seed: 3, Now: func() time.Time { return fixedNow }}, logger)

	_, err := g.Generate(5)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Generating user profiles.")
	assert.Contains(t, out, "Generating products.")
	assert.Contains(t, out, "Generating transactions.")
	assert.NotContains(t, out, "Generated transaction")

	buf.Reset()
	g = New(Options{Seed: 3, Now: func() time.Time { return fixedNow }}, logger.Level(zerolog.DebugLevel))
	_, err = g.Generate(2)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(buf.String(), "Generated transaction"))
	assert.Contains(t, buf.String(), `"transaction_type"`)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "Widget", capitalize("widget"))
	assert.Equal(t, "", capitalize(""))
	assert.Equal(t, 12.35, round2(12.345000001))
	assert.Equal(t, "abc", truncate("abcdef", 3))

	now := time.Date(2027, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), startOfDecade(now))
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), startOfYear(now))
}
