package pg2parquet_test

import (
	"reflect"
	"testing"

	"github.com/exyi/pg2parquet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scalarType(oid uint32, name string) *pg2parquet.PgType {
	return &pg2parquet.PgType{OID: oid, Name: name, Kind: pg2parquet.KindScalar}
}

func TestBuildColumn_SchemaIsPure(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		pgt  *pg2parquet.PgType
	}{
		{"scalar int4", scalarType(23, "int4")},
		{"scalar text", scalarType(25, "text")},
		{"scalar numeric", scalarType(1700, "numeric")},
		{"array of int4", &pg2parquet.PgType{OID: 1007, Name: "_int4", Kind: pg2parquet.KindArray, Element: scalarType(23, "int4")}},
		{"composite", &pg2parquet.PgType{
			OID: 99999, Name: "point3d", Kind: pg2parquet.KindComposite,
			Fields: []pg2parquet.CompositeField{
				{Name: "x", Type: scalarType(701, "float8")},
				{Name: "y", Type: scalarType(701, "float8")},
			},
		}},
		{"range", &pg2parquet.PgType{OID: 3904, Name: "int4range", Kind: pg2parquet.KindRange, Subtype: scalarType(23, "int4")}},
		{"enum", &pg2parquet.PgType{OID: 88888, Name: "mood", Kind: pg2parquet.KindEnum, EnumLabels: []string{"sad", "ok", "happy"}}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			settings := pg2parquet.DefaultSettings()

			node1, _, err := pg2parquet.BuildColumn("col", tc.pgt, true, settings)
			require.NoError(t, err)
			node2, _, err := pg2parquet.BuildColumn("col", tc.pgt, true, settings)
			require.NoError(t, err)

			assert.True(t, reflect.DeepEqual(node1, node2), "resolving the same column twice must yield identical schema nodes")
		})
	}
}

func TestBuildColumn_NullableColumnGetsOptionalRoot(t *testing.T) {
	t.Parallel()
	settings := pg2parquet.DefaultSettings()

	node, _, err := pg2parquet.BuildColumn("n", scalarType(23, "int4"), true, settings)
	require.NoError(t, err)
	assert.True(t, node.Optional)
	assert.Equal(t, int32(1), node.MaxDefinitionLevel)

	node, _, err = pg2parquet.BuildColumn("n", scalarType(23, "int4"), false, settings)
	require.NoError(t, err)
	assert.False(t, node.Optional)
	assert.Equal(t, int32(0), node.MaxDefinitionLevel)
}

func TestBuildColumn_DomainNotNullOverridesCallerNullability(t *testing.T) {
	t.Parallel()
	settings := pg2parquet.DefaultSettings()

	base := scalarType(23, "int4")
	domain := &pg2parquet.PgType{OID: 70000, Name: "posint", DomainOf: base, DomainNotNull: true}

	node, _, err := pg2parquet.BuildColumn("n", domain, true, settings)
	require.NoError(t, err)
	assert.False(t, node.Optional, "a NOT NULL domain must tighten nullability even when the caller passed nullable=true")
}

func TestBuildColumn_UnsupportedOID(t *testing.T) {
	t.Parallel()
	settings := pg2parquet.DefaultSettings()

	_, _, err := pg2parquet.BuildColumn("col", scalarType(999999, "mystery"), true, settings)
	require.Error(t, err)
	var unsupported *pg2parquet.UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, uint32(999999), unsupported.OID)
}

func TestBuildColumn_IntervalStructMode(t *testing.T) {
	t.Parallel()
	settings := pg2parquet.DefaultSettings()
	settings.Interval = pg2parquet.IntervalAsStruct

	node, _, err := pg2parquet.BuildColumn("dur", scalarType(1186, "interval"), true, settings)
	require.NoError(t, err)
	assert.Equal(t, pg2parquet.NodeStruct, node.Kind)
	require.Len(t, node.Children, 3)
	assert.Equal(t, "months", node.Children[0].Name)
	assert.Equal(t, "days", node.Children[1].Name)
	assert.Equal(t, "microseconds", node.Children[2].Name)
}

func TestBuildColumn_ArrayDimensionsMode(t *testing.T) {
	t.Parallel()
	settings := pg2parquet.DefaultSettings()
	settings.Array = pg2parquet.ArrayDimensionsLowerBound

	arr := &pg2parquet.PgType{OID: 1007, Name: "_int4", Kind: pg2parquet.KindArray, Element: scalarType(23, "int4")}
	node, _, err := pg2parquet.BuildColumn("a", arr, true, settings)
	require.NoError(t, err)
	assert.Equal(t, pg2parquet.NodeStruct, node.Kind)
	names := make([]string, len(node.Children))
	for i, c := range node.Children {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"items", "dims", "lower_bound"}, names)
}
