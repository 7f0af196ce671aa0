package table

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaFromArrow(t *testing.T) {
	s := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String},
		{Name: "n", Type: arrow.PrimitiveTypes.Int32},
		{Name: "x", Type: arrow.PrimitiveTypes.Float64},
		{Name: "ok", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "ts", Type: arrow.FixedWidthTypes.Timestamp_us},
	}, nil)

	got := SchemaFromArrow(s)
	assert.Equal(t, []string{"id", "n", "x", "ok", "ts"}, got.Names())
	assert.Equal(t, []Kind{KindString, KindInt, KindFloat, KindBool, KindTime}, []Kind{
		got.Fields[0].Kind, got.Fields[1].Kind, got.Fields[2].Kind, got.Fields[3].Kind, got.Fields[4].Kind,
	})
	assert.Equal(t, "id:string, n:int, x:float, ok:bool, ts:time", got.String())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, "Parquet": FormatParquet, " arrow ": FormatArrow} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("orc")
	assert.Error(t, err)
}

func TestFormatNames(t *testing.T) {
	assert.Equal(t, "CSV", FormatCSV.DisplayName())
	assert.Equal(t, "Parquet", FormatParquet.DisplayName())
	assert.Equal(t, "Arrow", FormatArrow.DisplayName())
	assert.Equal(t, "parquet", FormatParquet.Ext())
}
