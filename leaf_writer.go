package pg2parquet

// decodeFunc turns one field's raw payload into a value ready to hand
// the Parquet writer: a bool, int32, int64, float32, float64, string
// or []byte depending on the leaf's Physical type.
type decodeFunc func(data []byte) (any, error)

// LeafWriter is the ColumnWriter for every scalar column, and for every
// scalar nested inside a list, struct or range.
type LeafWriter struct {
	node   *ParquetSchemaNode
	decode decodeFunc
	table  *LeafTable
}

func NewLeafWriter(node *ParquetSchemaNode, decode decodeFunc) *LeafWriter {
	return &LeafWriter{node: node, decode: decode, table: &LeafTable{Node: node}}
}

func (w *LeafWriter) Append(data []byte, isNull bool, repLevel int32) error {
	if isNull {
		w.table.append(nil, w.node.MaxDefinitionLevel-1, repLevel)
		return nil
	}
	v, err := w.decode(data)
	if err != nil {
		return err
	}
	w.table.append(v, w.node.MaxDefinitionLevel, repLevel)
	return nil
}

func (w *LeafWriter) AppendAbsent(defLevel, repLevel int32) {
	w.table.append(nil, defLevel, repLevel)
}

// AppendValue pushes an already-decoded scalar straight into the leaf's
// table, for callers that computed v themselves instead of handing the
// leaf raw wire bytes to decode - IntervalStructWriter's three
// sub-fields being the only case today.
func (w *LeafWriter) AppendValue(v any, repLevel int32) {
	w.table.append(v, w.node.MaxDefinitionLevel, repLevel)
}

func (w *LeafWriter) Flush(out map[*ParquetSchemaNode]*LeafTable) {
	out[w.node] = w.table
}

func (w *LeafWriter) Reset() {
	w.table.reset()
}
