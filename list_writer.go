package pg2parquet

import "encoding/binary"

// ListWriter is the ColumnWriter for array columns. It implements
// Parquet's three-level list repetition-level invariant: the first
// element of a list inherits the repetition level the list itself was
// appended at, and every subsequent element uses the list's own
// MaxRepetitionLevel instead. Getting this backwards is the single
// easiest way to corrupt a nested list's page encoding, since readers
// use a rise back to a lower repetition level to detect where one
// list ends and the next begins.
type ListWriter struct {
	node    *ParquetSchemaNode
	element ColumnWriter
}

func NewListWriter(node *ParquetSchemaNode, element ColumnWriter) *ListWriter {
	return &ListWriter{node: node, element: element}
}

func (w *ListWriter) Append(data []byte, isNull bool, repLevel int32) error {
	if isNull {
		// Neither the outer group nor the repeated list group is
		// present: two levels below this node's own MaxDefinitionLevel.
		w.element.AppendAbsent(w.node.MaxDefinitionLevel-2, repLevel)
		return nil
	}

	d := NewFieldDecoder(data)
	header, elems, err := d.ArrayIter()
	if err != nil {
		return err
	}
	n := header.ElementCount()
	if n == 0 {
		// Outer group present, repeated list group absent: one level
		// below this node's own MaxDefinitionLevel, distinct from the
		// null case above.
		w.element.AppendAbsent(w.node.MaxDefinitionLevel-1, repLevel)
		return nil
	}

	for i := 0; i < n; i++ {
		edata, eIsNull, ok, err := elems.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		r := repLevel
		if i > 0 {
			r = w.node.MaxRepetitionLevel
		}
		if err := w.element.Append(edata, eIsNull, r); err != nil {
			return err
		}
	}
	return nil
}

func (w *ListWriter) AppendAbsent(defLevel, repLevel int32) {
	w.element.AppendAbsent(defLevel, repLevel)
}

func (w *ListWriter) Flush(out map[*ParquetSchemaNode]*LeafTable) {
	w.element.Flush(out)
}

func (w *ListWriter) Reset() {
	w.element.Reset()
}

// MultirangeWriter is the ColumnWriter for multirange columns. It
// reuses ListWriter's node shape and repetition-level bookkeeping but
// decodes multirange_recv's own layout - Int32 range count followed by
// (Int32 length, range_recv bytes) per range - rather than array_recv's
// ndim/elem-oid/dims framing, since multiranges are not arrays on the
// wire even though they map onto the same nested-list Parquet shape.
type MultirangeWriter struct {
	node    *ParquetSchemaNode
	element ColumnWriter
}

func NewMultirangeWriter(node *ParquetSchemaNode, element ColumnWriter) *MultirangeWriter {
	return &MultirangeWriter{node: node, element: element}
}

func (w *MultirangeWriter) Append(data []byte, isNull bool, repLevel int32) error {
	if isNull {
		w.element.AppendAbsent(w.node.MaxDefinitionLevel-2, repLevel)
		return nil
	}

	d := NewFieldDecoder(data)
	count, err := d.ReadI32()
	if err != nil {
		return err
	}
	if count == 0 {
		w.element.AppendAbsent(w.node.MaxDefinitionLevel-1, repLevel)
		return nil
	}
	for i := int32(0); i < count; i++ {
		length, err := d.ReadI32()
		if err != nil {
			return err
		}
		rangeData, err := d.ReadBytes(int(length))
		if err != nil {
			return err
		}
		r := repLevel
		if i > 0 {
			r = w.node.MaxRepetitionLevel
		}
		if err := w.element.Append(rangeData, false, r); err != nil {
			return err
		}
	}
	return nil
}

func (w *MultirangeWriter) AppendAbsent(defLevel, repLevel int32) {
	w.element.AppendAbsent(defLevel, repLevel)
}

func (w *MultirangeWriter) Flush(out map[*ParquetSchemaNode]*LeafTable) {
	w.element.Flush(out)
}

func (w *MultirangeWriter) Reset() {
	w.element.Reset()
}

// ArrayWriter is the ColumnWriter for array columns under
// array_handling=dimensions or dimensions+lowerbound. It exposes a
// struct with an "items" field holding the same row-major flattened
// element list ListWriter produces, alongside sibling "dims" (and, for
// dimensions+lowerbound, "lower_bound") LIST<INT32> fields recording
// the wire header's shape - the part array_recv carries that plain
// flattening throws away.
type ArrayWriter struct {
	node            *ParquetSchemaNode
	itemsNode       *ParquetSchemaNode
	itemsElement    ColumnWriter
	dimsNode        *ParquetSchemaNode
	dims            *LeafWriter
	lowerBoundsNode *ParquetSchemaNode
	lowerBounds     *LeafWriter // nil unless array_handling=dimensions+lowerbound
}

func NewArrayWriter(node, itemsNode *ParquetSchemaNode, itemsElement ColumnWriter, dimsNode *ParquetSchemaNode, dims *LeafWriter, lowerBoundsNode *ParquetSchemaNode, lowerBounds *LeafWriter) *ArrayWriter {
	return &ArrayWriter{
		node: node,
		itemsNode: itemsNode, itemsElement: itemsElement,
		dimsNode: dimsNode, dims: dims,
		lowerBoundsNode: lowerBoundsNode, lowerBounds: lowerBounds,
	}
}

func (w *ArrayWriter) children() []ColumnWriter {
	c := []ColumnWriter{w.itemsElement, w.dims}
	if w.lowerBounds != nil {
		c = append(c, w.lowerBounds)
	}
	return c
}

func (w *ArrayWriter) Append(data []byte, isNull bool, repLevel int32) error {
	if isNull {
		w.AppendAbsent(w.node.MaxDefinitionLevel-1, repLevel)
		return nil
	}

	d := NewFieldDecoder(data)
	header, elems, err := d.ArrayIter()
	if err != nil {
		return err
	}

	n := header.ElementCount()
	if n == 0 {
		w.itemsElement.AppendAbsent(w.itemsNode.MaxDefinitionLevel-1, repLevel)
	} else {
		for i := 0; i < n; i++ {
			edata, eIsNull, ok, err := elems.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			r := repLevel
			if i > 0 {
				r = w.itemsNode.MaxRepetitionLevel
			}
			if err := w.itemsElement.Append(edata, eIsNull, r); err != nil {
				return err
			}
		}
	}

	if err := appendInt32List(w.dims, w.dimsNode, header.Dims, repLevel); err != nil {
		return err
	}
	if w.lowerBounds != nil {
		if err := appendInt32List(w.lowerBounds, w.lowerBoundsNode, header.LowerBounds, repLevel); err != nil {
			return err
		}
	}
	return nil
}

// appendInt32List feeds a plain []int32 (the array header's own
// dimension lengths or lower bounds, never null) through a LeafWriter
// as though it were a freshly-decoded LIST<INT32> field.
func appendInt32List(leaf *LeafWriter, listNode *ParquetSchemaNode, vals []int32, repLevel int32) error {
	if len(vals) == 0 {
		leaf.AppendAbsent(listNode.MaxDefinitionLevel-1, repLevel)
		return nil
	}
	for i, v := range vals {
		r := repLevel
		if i > 0 {
			r = listNode.MaxRepetitionLevel
		}
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v))
		if err := leaf.Append(b[:], false, r); err != nil {
			return err
		}
	}
	return nil
}

func (w *ArrayWriter) AppendAbsent(defLevel, repLevel int32) {
	for _, c := range w.children() {
		c.AppendAbsent(defLevel, repLevel)
	}
}

func (w *ArrayWriter) Flush(out map[*ParquetSchemaNode]*LeafTable) {
	for _, c := range w.children() {
		c.Flush(out)
	}
}

func (w *ArrayWriter) Reset() {
	for _, c := range w.children() {
		c.Reset()
	}
}
