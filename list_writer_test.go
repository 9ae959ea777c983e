package pg2parquet_test

import (
	"encoding/binary"
	"testing"

	"github.com/exyi/pg2parquet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beI32(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

// lengthPrefixed frames payload the way array_recv frames one element:
// an Int32 length followed by the bytes, or -1 with no bytes for NULL.
func lengthPrefixed(payload []byte) []byte {
	if payload == nil {
		return beI32(-1)
	}
	return append(beI32(int32(len(payload))), payload...)
}

// arrayRecvPayload builds the ndim/flags/elem-oid/bounds header array_recv
// sends, for a single-dimension array whose elements are already encoded.
func arrayRecvPayload(elemOID uint32, elements [][]byte) []byte {
	out := append([]byte{}, beI32(1)...)       // ndim
	out = append(out, beI32(0)...)             // hasnulls flag
	out = append(out, beI32(int32(elemOID))...) // elem oid (unused by the schema-driven decoder)
	out = append(out, beI32(int32(len(elements)))...) // dim length
	out = append(out, beI32(1)...)             // lower bound
	for _, e := range elements {
		out = append(out, lengthPrefixed(e)...)
	}
	return out
}

// emptyArrayRecvPayload matches array_recv's own encoding of a
// zero-length array: ndim=0, no dims/bounds, no elements.
func emptyArrayRecvPayload(elemOID uint32) []byte {
	out := append([]byte{}, beI32(0)...)              // ndim
	out = append(out, beI32(0)...)                    // hasnulls flag
	out = append(out, beI32(int32(elemOID))...)        // elem oid
	return out
}

func int32Elements(vals ...int32) [][]byte {
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = beI32(v)
	}
	return out
}

func arrayOfInt32(vals ...int32) []byte {
	return arrayRecvPayload(23, int32Elements(vals...))
}

// TestListWriter_NestedRepetitionLevels exercises spec.md's easiest
// invariant to invert: within a list, the first element inherits the
// repetition level the list itself was appended at, and every later
// element uses the list's own MaxRepetitionLevel.
func TestListWriter_NestedRepetitionLevels(t *testing.T) {
	t.Parallel()

	elemType := &pg2parquet.PgType{OID: 23, Name: "int4", Kind: pg2parquet.KindScalar}
	innerArrayType := &pg2parquet.PgType{OID: 1007, Name: "_int4", Kind: pg2parquet.KindArray, Element: elemType}
	outerArrayType := &pg2parquet.PgType{OID: 2277, Name: "_int4_array", Kind: pg2parquet.KindArray, Element: innerArrayType}

	node, writer, err := pg2parquet.BuildColumn("matrix", outerArrayType, true, pg2parquet.DefaultSettings())
	require.NoError(t, err)

	leaves := pg2parquet.Leaves(node)
	require.Len(t, leaves, 1)
	leaf := leaves[0]

	outer := arrayRecvPayload(1007, [][]byte{
		arrayOfInt32(1, 2, 3),
		arrayOfInt32(4, 5),
	})

	require.NoError(t, writer.Append(outer, false, 0))

	out := map[*pg2parquet.ParquetSchemaNode]*pg2parquet.LeafTable{}
	writer.Flush(out)
	table := out[leaf]
	require.NotNil(t, table)

	assert.Equal(t, []any{int32(1), int32(2), int32(3), int32(4), int32(5)}, table.Values)
	assert.Equal(t, []int32{0, 2, 2, 1, 2}, table.RepetitionLevels)
	for _, d := range table.DefinitionLevels {
		assert.Equal(t, leaf.MaxDefinitionLevel, d)
	}
}

// TestListWriter_NullVsEmptyArray checks Open Question 3: a NULL array and
// a zero-length array must not collapse onto the same definition level.
func TestListWriter_NullVsEmptyArray(t *testing.T) {
	t.Parallel()

	elemType := &pg2parquet.PgType{OID: 23, Name: "int4", Kind: pg2parquet.KindScalar}
	arrayType := &pg2parquet.PgType{OID: 1007, Name: "_int4", Kind: pg2parquet.KindArray, Element: elemType}

	node, writer, err := pg2parquet.BuildColumn("xs", arrayType, true, pg2parquet.DefaultSettings())
	require.NoError(t, err)
	leaf := pg2parquet.Leaves(node)[0]

	require.NoError(t, writer.Append(nil, true, 0))
	emptyArray := emptyArrayRecvPayload(23)
	require.NoError(t, writer.Append(emptyArray, false, 0))

	out := map[*pg2parquet.ParquetSchemaNode]*pg2parquet.LeafTable{}
	writer.Flush(out)
	table := out[leaf]
	require.NotNil(t, table)
	require.Len(t, table.DefinitionLevels, 2)
	assert.NotEqual(t, table.DefinitionLevels[0], table.DefinitionLevels[1], "a NULL array and an empty array must land at distinct definition levels")
	assert.Equal(t, node.MaxDefinitionLevel-2, table.DefinitionLevels[0])
	assert.Equal(t, node.MaxDefinitionLevel-1, table.DefinitionLevels[1])
}
