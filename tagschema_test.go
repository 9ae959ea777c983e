package pg2parquet_test

import (
	"testing"

	"github.com/exyi/pg2parquet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSchemaLeafSlots_AlignsWithJSONSchema checks that the positional walk
// BuildIndexMapper relies on visits leaf nodes in the same pre-order
// BuildSchemaJSON renders them in, which is the whole premise of zipping
// the two together against schema.SchemaHandler.IndexMap at flush time.
func TestSchemaLeafSlots_AlignsWithJSONSchema(t *testing.T) {
	t.Parallel()

	settings := pg2parquet.DefaultSettings()
	intCol, _, err := pg2parquet.BuildColumn("a", scalarType(23, "int4"), true, settings)
	require.NoError(t, err)

	arrType := &pg2parquet.PgType{OID: 1007, Name: "_int4", Kind: pg2parquet.KindArray, Element: scalarType(23, "int4")}
	arrCol, _, err := pg2parquet.BuildColumn("b", arrType, true, settings)
	require.NoError(t, err)

	compType := &pg2parquet.PgType{
		OID: 99999, Name: "pair", Kind: pg2parquet.KindComposite,
		Fields: []pg2parquet.CompositeField{
			{Name: "x", Type: scalarType(23, "int4")},
			{Name: "y", Type: scalarType(23, "int4")},
		},
	}
	compCol, _, err := pg2parquet.BuildColumn("c", compType, true, settings)
	require.NoError(t, err)

	columns := []*pg2parquet.ParquetSchemaNode{intCol, arrCol, compCol}

	jsonSchema, err := pg2parquet.BuildSchemaJSON(columns)
	require.NoError(t, err)
	assert.NotEmpty(t, jsonSchema)

	slots := pg2parquet.SchemaLeafSlots(columns)
	// slot 0 is always the synthetic root.
	require.NotEmpty(t, slots)
	assert.Nil(t, slots[0])

	var leafNames []string
	for _, s := range slots[1:] {
		if s != nil {
			leafNames = append(leafNames, s.Name)
		}
	}
	// intCol contributes "a"; arrCol's one LIST contributes its element
	// leaf named "element"; compCol contributes "x" then "y", in that
	// declared order.
	assert.Equal(t, []string{"a", "element", "x", "y"}, leafNames)
}

func TestBuildIndexMapper_RoundTrips(t *testing.T) {
	t.Parallel()

	settings := pg2parquet.DefaultSettings()
	col, _, err := pg2parquet.BuildColumn("a", scalarType(23, "int4"), true, settings)
	require.NoError(t, err)

	columns := []*pg2parquet.ParquetSchemaNode{col}
	slots := pg2parquet.SchemaLeafSlots(columns)

	indexMap := map[int32]string{1: "a"} // slot 0 is root (nil), slot 1 is the leaf
	mapper, err := pg2parquet.BuildIndexMapper(slots, indexMap)
	require.NoError(t, err)

	key, err := mapper(col)
	require.NoError(t, err)
	assert.Equal(t, "a", key)
}

func TestBuildIndexMapper_MissingEntry(t *testing.T) {
	t.Parallel()

	settings := pg2parquet.DefaultSettings()
	col, _, err := pg2parquet.BuildColumn("a", scalarType(23, "int4"), true, settings)
	require.NoError(t, err)

	columns := []*pg2parquet.ParquetSchemaNode{col}
	slots := pg2parquet.SchemaLeafSlots(columns)

	_, err = pg2parquet.BuildIndexMapper(slots, map[int32]string{})
	require.Error(t, err)
}
