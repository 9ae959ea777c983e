package pg2parquet

// LeafTable accumulates one leaf column's values across a row group in
// exactly the shape github.com/hangxie/parquet-go/v2's layout.Table
// wants: Values, DefinitionLevels and RepetitionLevels are always the
// same length and index-aligned, and Values holds a nil placeholder at
// every index whose DefinitionLevel is below the leaf's
// MaxDefinitionLevel - the underlying writer's own page encoder
// filters those out before they reach the file, so placeholders never
// need scrubbing here.
type LeafTable struct {
	Node             *ParquetSchemaNode
	Values           []any
	DefinitionLevels []int32
	RepetitionLevels []int32
}

func (t *LeafTable) append(value any, defLevel, repLevel int32) {
	t.Values = append(t.Values, value)
	t.DefinitionLevels = append(t.DefinitionLevels, defLevel)
	t.RepetitionLevels = append(t.RepetitionLevels, repLevel)
}

func (t *LeafTable) reset() {
	t.Values = t.Values[:0]
	t.DefinitionLevels = t.DefinitionLevels[:0]
	t.RepetitionLevels = t.RepetitionLevels[:0]
}

// ColumnWriter is implemented by every node in a resolved column's
// writer tree: LeafWriter for scalar leaves, ListWriter for arrays,
// StructWriter for composites and RangeWriter for ranges.
//
// Append decodes one wire-format value (already framed by WireReader,
// i.e. with its own length prefix already consumed) and appends it -
// and, for containers, everything nested inside it - to the
// accumulated LeafTables. repLevel is the repetition level this value
// itself sits at, supplied by whichever enclosing ListWriter is
// driving the recursion (0 at column root).
//
// AppendAbsent propagates an ancestor's NULL or empty-container state
// down to every leaf beneath this node without decoding anything,
// since there is nothing left to decode.
type ColumnWriter interface {
	Append(data []byte, isNull bool, repLevel int32) error
	AppendAbsent(defLevel, repLevel int32)
	Flush(out map[*ParquetSchemaNode]*LeafTable)
	Reset()
}
