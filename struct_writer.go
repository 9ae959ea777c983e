package pg2parquet

// StructWriter is the ColumnWriter for composite (row type) columns.
// Structs never add a repetition level; every field is appended at
// the same repLevel the struct itself was appended at.
type StructWriter struct {
	node   *ParquetSchemaNode
	fields []ColumnWriter
}

func NewStructWriter(node *ParquetSchemaNode, fields []ColumnWriter) *StructWriter {
	return &StructWriter{node: node, fields: fields}
}

func (w *StructWriter) Append(data []byte, isNull bool, repLevel int32) error {
	if isNull {
		w.AppendAbsent(w.node.MaxDefinitionLevel-1, repLevel)
		return nil
	}

	d := NewFieldDecoder(data)
	iter, err := d.CompositeIter()
	if err != nil {
		return err
	}
	for _, field := range w.fields {
		_, fdata, fIsNull, ok, err := iter.Next()
		if err != nil {
			return err
		}
		if !ok {
			// Fewer wire fields than the catalog described: treat the
			// remainder as absent rather than desyncing the rest of
			// the row's fields against the wrong child writers.
			field.AppendAbsent(w.node.MaxDefinitionLevel, repLevel)
			continue
		}
		if err := field.Append(fdata, fIsNull, repLevel); err != nil {
			return err
		}
	}
	return nil
}

func (w *StructWriter) AppendAbsent(defLevel, repLevel int32) {
	for _, field := range w.fields {
		field.AppendAbsent(defLevel, repLevel)
	}
}

func (w *StructWriter) Flush(out map[*ParquetSchemaNode]*LeafTable) {
	for _, field := range w.fields {
		field.Flush(out)
	}
}

func (w *StructWriter) Reset() {
	for _, field := range w.fields {
		field.Reset()
	}
}

// RangeWriter is the ColumnWriter for range and multirange columns. It
// models a range as a struct with five fields - lower, upper,
// lower_inclusive, upper_inclusive, is_empty - decoded from range_recv's
// flag-byte-plus-bounds layout rather than from a composite's
// field-count-plus-OIDs layout.
type RangeWriter struct {
	node            *ParquetSchemaNode
	empty           ColumnWriter
	lower           ColumnWriter
	lowerInclusive  ColumnWriter
	upper           ColumnWriter
	upperInclusive  ColumnWriter
}

func NewRangeWriter(node *ParquetSchemaNode, empty, lower, lowerIncl, upper, upperIncl ColumnWriter) *RangeWriter {
	return &RangeWriter{node: node, empty: empty, lower: lower, lowerInclusive: lowerIncl, upper: upper, upperInclusive: upperIncl}
}

func (w *RangeWriter) children() []ColumnWriter {
	return []ColumnWriter{w.empty, w.lower, w.lowerInclusive, w.upper, w.upperInclusive}
}

func (w *RangeWriter) Append(data []byte, isNull bool, repLevel int32) error {
	if isNull {
		w.AppendAbsent(w.node.MaxDefinitionLevel-1, repLevel)
		return nil
	}

	d := NewFieldDecoder(data)
	flags, err := d.ReadRangeFlags()
	if err != nil {
		return err
	}

	if err := w.empty.Append(boolPayload(flags.IsEmpty()), false, repLevel); err != nil {
		return err
	}
	if err := w.lowerInclusive.Append(boolPayload(flags.LowerInclusive()), false, repLevel); err != nil {
		return err
	}
	if err := w.upperInclusive.Append(boolPayload(flags.UpperInclusive()), false, repLevel); err != nil {
		return err
	}
	if flags.IsEmpty() {
		w.lower.AppendAbsent(w.node.MaxDefinitionLevel, repLevel)
		w.upper.AppendAbsent(w.node.MaxDefinitionLevel, repLevel)
		return nil
	}

	if flags.LowerInfinite() {
		w.lower.AppendAbsent(w.node.MaxDefinitionLevel, repLevel)
	} else {
		bound, err := d.ReadRangeBound()
		if err != nil {
			return err
		}
		if err := w.lower.Append(bound, false, repLevel); err != nil {
			return err
		}
	}

	if flags.UpperInfinite() {
		w.upper.AppendAbsent(w.node.MaxDefinitionLevel, repLevel)
	} else {
		bound, err := d.ReadRangeBound()
		if err != nil {
			return err
		}
		if err := w.upper.Append(bound, false, repLevel); err != nil {
			return err
		}
	}
	return nil
}

// boolPayload encodes a bool the same way decodeBool expects to read
// it back, so RangeWriter can drive its empty/inclusive LeafWriters
// through the normal Append path instead of a separate code path.
func boolPayload(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func (w *RangeWriter) AppendAbsent(defLevel, repLevel int32) {
	for _, c := range w.children() {
		c.AppendAbsent(defLevel, repLevel)
	}
}

func (w *RangeWriter) Flush(out map[*ParquetSchemaNode]*LeafTable) {
	for _, c := range w.children() {
		c.Flush(out)
	}
}

func (w *RangeWriter) Reset() {
	for _, c := range w.children() {
		c.Reset()
	}
}

// IntervalStructWriter is the ColumnWriter for interval columns under
// interval_handling=struct: rather than Parquet's own 12-byte INTERVAL
// convertedtype, it exposes the same (months, days, microseconds)
// triple PostgreSQL sends on the wire as three ordinary leaf fields, so
// readers that don't special-case INTERVAL still see the value without
// a byte-layout footnote.
type IntervalStructWriter struct {
	node         *ParquetSchemaNode
	months       *LeafWriter
	days         *LeafWriter
	microseconds *LeafWriter
}

func NewIntervalStructWriter(node *ParquetSchemaNode, months, days, microseconds *LeafWriter) *IntervalStructWriter {
	return &IntervalStructWriter{node: node, months: months, days: days, microseconds: microseconds}
}

func (w *IntervalStructWriter) children() []ColumnWriter {
	return []ColumnWriter{w.months, w.days, w.microseconds}
}

func (w *IntervalStructWriter) Append(data []byte, isNull bool, repLevel int32) error {
	if isNull {
		w.AppendAbsent(w.node.MaxDefinitionLevel-1, repLevel)
		return nil
	}
	months, days, micros, err := intervalComponents(data)
	if err != nil {
		return err
	}
	w.months.AppendValue(months, repLevel)
	w.days.AppendValue(days, repLevel)
	w.microseconds.AppendValue(micros, repLevel)
	return nil
}

func (w *IntervalStructWriter) AppendAbsent(defLevel, repLevel int32) {
	for _, c := range w.children() {
		c.AppendAbsent(defLevel, repLevel)
	}
}

func (w *IntervalStructWriter) Flush(out map[*ParquetSchemaNode]*LeafTable) {
	for _, c := range w.children() {
		c.Flush(out)
	}
}

func (w *IntervalStructWriter) Reset() {
	for _, c := range w.children() {
		c.Reset()
	}
}
