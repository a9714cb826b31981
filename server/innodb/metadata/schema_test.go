package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableBuilderRoundTrip(t *testing.T) {
	tbl, err := NewTableBuilder("db1", "t").
		Column("col1", TypeString).
		Column("col2", TypeBigInt).
		Index("idx_col1", 1, "col1").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "db1.t", tbl.FQN())
	assert.Equal(t, []string{"col1", "col2"}, tbl.Schema().ColumnNames())

	idx, ok := tbl.Index()["idx_col1"]
	require.True(t, ok)
	assert.Equal(t, []string{"col1"}, idx.Keys)
	assert.Equal(t, 1, idx.TsPos)
}

func TestTableValidateUnknownIndexColumn(t *testing.T) {
	_, err := NewTableBuilder("db1", "t").
		Column("col1", TypeString).
		Index("bad_idx", 0, "missing").
		Build()
	require.Error(t, err)
}

func TestMemCatalogGetTable(t *testing.T) {
	tbl := NewTableBuilder("db1", "t").Column("col1", TypeString).MustBuild()
	cat := NewMemCatalog(tbl)

	got, ok := cat.GetTable("db1", "t")
	require.True(t, ok)
	assert.Same(t, tbl, got)

	_, ok = cat.GetTable("db1", "missing")
	assert.False(t, ok)
}
