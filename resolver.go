package pg2parquet

import "fmt"

// leafSpec is the physical-type half of a scalar leaf: everything
// BuildColumn needs to both fill in a ParquetSchemaNode's leaf fields
// and pick the LeafWriter's decode function.
type leafSpec struct {
	Physical             string
	TypeLength           int32
	LogicalTagFragment   string
	ConvertedTagFragment string
	DecimalPrecision     int32
	DecimalScale         int32
	Decode               decodeFunc
}

// resolveScalarOID maps one pg_type OID onto its Parquet physical
// representation and decode function. This is the generalization of
// createColumnWriterForOID's switch to the full catalog: every branch
// here corresponds to one row in the type-mapping table.
func resolveScalarOID(oid uint32, settings Settings) (leafSpec, error) {
	switch oid {
	case oidBool:
		return leafSpec{Physical: "BOOLEAN", Decode: decodeBool}, nil
	case oidInt2:
		return leafSpec{Physical: "INT32", LogicalTagFragment: "logicaltype=INTEGER,logicaltype.bitwidth=16,logicaltype.issigned=true", Decode: decodeInt16}, nil
	case oidInt4:
		return leafSpec{Physical: "INT32", Decode: decodeInt32}, nil
	case oidOID:
		return leafSpec{Physical: "INT32", LogicalTagFragment: "logicaltype=INTEGER,logicaltype.bitwidth=32,logicaltype.issigned=false", Decode: decodeInt32}, nil
	case oidInt8, oidXid8:
		return leafSpec{Physical: "INT64", Decode: decodeInt64}, nil
	case oidFloat4:
		return leafSpec{Physical: "FLOAT", Decode: decodeFloat32}, nil
	case oidFloat8:
		return leafSpec{Physical: "DOUBLE", Decode: decodeFloat64}, nil
	case oidText, oidVarchar, oidBpchar, oidName, oidChar, oidXML:
		return leafSpec{Physical: "BYTE_ARRAY", LogicalTagFragment: "logicaltype=STRING", Decode: decodeText}, nil
	case oidBytea:
		return leafSpec{Physical: "BYTE_ARRAY", Decode: decodeBytea}, nil
	case oidDate:
		return leafSpec{Physical: "INT32", LogicalTagFragment: "logicaltype=DATE", Decode: decodeDate}, nil
	case oidTime, oidTimetz:
		return leafSpec{Physical: "INT64", LogicalTagFragment: "logicaltype=TIME,logicaltype.isadjustedtoutc=false,logicaltype.unit=MICROS", Decode: decodeTime}, nil
	case oidTimestamp:
		return leafSpec{Physical: "INT64", LogicalTagFragment: "logicaltype=TIMESTAMP,logicaltype.isadjustedtoutc=false,logicaltype.unit=MICROS", Decode: decodeTimestamp}, nil
	case oidTimestamptz:
		return leafSpec{Physical: "INT64", LogicalTagFragment: "logicaltype=TIMESTAMP,logicaltype.isadjustedtoutc=true,logicaltype.unit=MICROS", Decode: decodeTimestamp}, nil
	case oidInterval:
		// interval_handling=struct is handled one level up in buildNode,
		// since it needs three sibling leaves rather than one.
		return leafSpec{Physical: "FIXED_LEN_BYTE_ARRAY", TypeLength: 12, ConvertedTagFragment: "convertedtype=INTERVAL", Decode: decodeInterval}, nil
	case oidUUID:
		return leafSpec{Physical: "FIXED_LEN_BYTE_ARRAY", TypeLength: 16, LogicalTagFragment: "logicaltype=UUID", Decode: decodeUUID}, nil
	case oidMacaddr:
		return macaddrLeafSpec(settings, decodeMacaddrString)
	case oidMacaddr8:
		return macaddrLeafSpec(settings, decodeMacaddr8String)
	case oidInet, oidCidr:
		return leafSpec{Physical: "BYTE_ARRAY", LogicalTagFragment: "logicaltype=STRING", Decode: decodeInet}, nil
	case oidMoney:
		return leafSpec{
			Physical:           "INT64",
			LogicalTagFragment: "logicaltype=DECIMAL,logicaltype.precision=19,logicaltype.scale=4",
			DecimalPrecision:   19,
			DecimalScale:       4,
			Decode:             decodeMoney,
		}, nil
	case oidBit, oidVarbit:
		return leafSpec{Physical: "BYTE_ARRAY", LogicalTagFragment: "logicaltype=STRING", Decode: decodeBit}, nil
	case oidJSON:
		return jsonLeafSpec(settings, false)
	case oidJSONB:
		return jsonLeafSpec(settings, true)
	case oidNumeric:
		return numericLeafSpec(settings)
	default:
		return leafSpec{}, &UnsupportedTypeError{OID: oid, Name: typeNameForOID(oid)}
	}
}

// macaddrLeafSpec shares the byte-array and int64 branches between
// macaddr and macaddr8; textDecode is whichever of the two's own
// colon-separated string formatter applies.
func macaddrLeafSpec(settings Settings, textDecode decodeFunc) (leafSpec, error) {
	switch settings.Macaddr {
	case MacaddrAsByteArray:
		return leafSpec{Physical: "BYTE_ARRAY", Decode: decodeMacaddrBytes}, nil
	case MacaddrAsInt64:
		return leafSpec{Physical: "INT64", Decode: decodeMacaddrInt64}, nil
	default:
		return leafSpec{Physical: "BYTE_ARRAY", LogicalTagFragment: "logicaltype=STRING", Decode: textDecode}, nil
	}
}

// jsonLeafSpec handles json and jsonb identically once decoded to text:
// the difference between the two handling modes is purely the logical
// type annotation, not the bytes written.
func jsonLeafSpec(settings Settings, isBinaryEncoded bool) (leafSpec, error) {
	decode := decodeText
	if isBinaryEncoded {
		decode = decodeJSONB
	}
	if settings.JSON == JSONAsTextMarkedAsJSON {
		return leafSpec{Physical: "BYTE_ARRAY", LogicalTagFragment: "logicaltype=JSON", Decode: decode}, nil
	}
	return leafSpec{Physical: "BYTE_ARRAY", LogicalTagFragment: "logicaltype=STRING", Decode: decode}, nil
}

// numericLeafSpec implements numeric_handling: decimal picks its
// physical type by precision the way common Parquet decimal writers
// do - INT32 up to 9 digits, INT64 up to 18, BYTE_ARRAY beyond that -
// while double/float32/string each collapse to one fixed physical
// type regardless of the column's declared precision.
func numericLeafSpec(settings Settings) (leafSpec, error) {
	switch settings.Numeric {
	case NumericAsString:
		return leafSpec{Physical: "BYTE_ARRAY", LogicalTagFragment: "logicaltype=STRING", Decode: func(data []byte) (any, error) {
			n, err := parseNumericField(data)
			if err != nil {
				return nil, err
			}
			return n.String(), nil
		}}, nil
	case NumericAsDouble:
		return leafSpec{Physical: "DOUBLE", Decode: func(data []byte) (any, error) {
			n, err := parseNumericField(data)
			if err != nil {
				return nil, err
			}
			return n.Float64(), nil
		}}, nil
	case NumericAsFloat32:
		return leafSpec{Physical: "FLOAT", Decode: func(data []byte) (any, error) {
			n, err := parseNumericField(data)
			if err != nil {
				return nil, err
			}
			return float32(n.Float64()), nil
		}}, nil
	default:
		precision, scale := settings.NumericPrecision, settings.NumericScale
		tag := fmt.Sprintf("logicaltype=DECIMAL,logicaltype.precision=%d,logicaltype.scale=%d", precision, scale)
		decodeRescaled := func(data []byte) (decodedNumeric, error) {
			n, err := parseNumericField(data)
			if err != nil {
				return decodedNumeric{}, err
			}
			if n.isNaN {
				return decodedNumeric{}, fmt.Errorf("numeric NaN has no decimal representation")
			}
			return n, nil
		}
		switch {
		case precision <= 9:
			return leafSpec{Physical: "INT32", LogicalTagFragment: tag, DecimalPrecision: precision, DecimalScale: scale, Decode: func(data []byte) (any, error) {
				n, err := decodeRescaled(data)
				if err != nil {
					return nil, err
				}
				v, err := n.rescaleInt64(scale)
				if err != nil {
					return nil, err
				}
				if int64(int32(v)) != v {
					return nil, fmt.Errorf("numeric value overflows decimal(%d, %d) stored as int32", precision, scale)
				}
				return int32(v), nil
			}}, nil
		case precision <= 18:
			return leafSpec{Physical: "INT64", LogicalTagFragment: tag, DecimalPrecision: precision, DecimalScale: scale, Decode: func(data []byte) (any, error) {
				n, err := decodeRescaled(data)
				if err != nil {
					return nil, err
				}
				return n.rescaleInt64(scale)
			}}, nil
		default:
			return leafSpec{Physical: "BYTE_ARRAY", LogicalTagFragment: tag, DecimalPrecision: precision, DecimalScale: scale, Decode: func(data []byte) (any, error) {
				n, err := decodeRescaled(data)
				if err != nil {
					return nil, err
				}
				return n.rescaleBytes(scale)
			}}, nil
		}
	}
}

// enumLeafSpec handles enums separately from resolveScalarOID because
// it needs the catalog's resolved label list, not just the OID.
func enumLeafSpec(labels []string, settings Settings) leafSpec {
	switch settings.Enum {
	case EnumAsInt:
		index := make(map[string]int32, len(labels))
		for i, l := range labels {
			index[l] = int32(i + 1) // 1-based, matching pg_enum's own enumsortorder convention
		}
		return leafSpec{Physical: "INT32", Decode: func(data []byte) (any, error) {
			label := NewFieldDecoder(data).ReadText()
			v, ok := index[label]
			if !ok {
				return nil, fmt.Errorf("enum label %q not in catalog's label list", label)
			}
			return v, nil
		}}
	case EnumAsPlainText:
		return leafSpec{Physical: "BYTE_ARRAY", LogicalTagFragment: "logicaltype=STRING", Decode: decodeText}
	default:
		return leafSpec{Physical: "BYTE_ARRAY", ConvertedTagFragment: "convertedtype=ENUM", Decode: decodeText}
	}
}

func boolLeafNode(name string) *ParquetSchemaNode {
	return &ParquetSchemaNode{Name: name, Kind: NodeLeaf, Optional: false, Physical: "BOOLEAN"}
}

func int32LeafNode(name string) *ParquetSchemaNode {
	return &ParquetSchemaNode{Name: name, Kind: NodeLeaf, Optional: false, Physical: "INT32"}
}

func int64LeafNode(name string) *ParquetSchemaNode {
	return &ParquetSchemaNode{Name: name, Kind: NodeLeaf, Optional: false, Physical: "INT64"}
}

// BuildColumn resolves one output column's schema node and writer tree
// from its catalog-resolved PgType. nullable reflects the SQL
// nullability the caller already knows about the column (e.g. NOT
// NULL on the source column); domains that themselves declare NOT
// NULL tighten this further regardless of what the caller passed.
func BuildColumn(name string, pgt *PgType, nullable bool, settings Settings) (*ParquetSchemaNode, ColumnWriter, error) {
	node, build, err := buildNode(name, pgt, nullable, settings)
	if err != nil {
		return nil, nil, err
	}
	computeLevels(node, 0, 0)
	return node, build(), nil
}

func buildNode(name string, pgt *PgType, nullable bool, settings Settings) (*ParquetSchemaNode, func() ColumnWriter, error) {
	base, domainNotNull := pgt.UnwrapDomain()
	if domainNotNull {
		nullable = false
	}

	switch base.Kind {
	case KindArray:
		return buildArrayNode(name, base, nullable, settings)
	case KindComposite:
		return buildCompositeNode(name, base, nullable, settings)
	case KindEnum:
		spec := enumLeafSpec(base.EnumLabels, settings)
		node := leafNodeFromSpec(name, nullable, spec)
		return node, func() ColumnWriter { return NewLeafWriter(node, spec.Decode) }, nil
	case KindRange:
		return buildRangeNode(name, base, nullable, settings)
	case KindMultirange:
		return buildMultirangeNode(name, base, nullable, settings)
	default:
		if base.OID == oidInterval && settings.Interval == IntervalAsStruct {
			return buildIntervalStructNode(name, nullable)
		}
		spec, err := resolveScalarOID(base.OID, settings)
		if err != nil {
			return nil, nil, err
		}
		node := leafNodeFromSpec(name, nullable, spec)
		return node, func() ColumnWriter { return NewLeafWriter(node, spec.Decode) }, nil
	}
}

func leafNodeFromSpec(name string, nullable bool, spec leafSpec) *ParquetSchemaNode {
	return &ParquetSchemaNode{
		Name:                 name,
		Kind:                 NodeLeaf,
		Optional:             nullable,
		Physical:             spec.Physical,
		TypeLength:           spec.TypeLength,
		LogicalTagFragment:   spec.LogicalTagFragment,
		ConvertedTagFragment: spec.ConvertedTagFragment,
		DecimalPrecision:     spec.DecimalPrecision,
		DecimalScale:         spec.DecimalScale,
	}
}

// buildIntervalStructNode builds the three-field
// {months int32, days int32, microseconds int64} struct
// interval_handling=struct exposes in place of Parquet's own INTERVAL
// convertedtype.
func buildIntervalStructNode(name string, nullable bool) (*ParquetSchemaNode, func() ColumnWriter, error) {
	monthsNode := int32LeafNode("months")
	daysNode := int32LeafNode("days")
	microsNode := int64LeafNode("microseconds")
	structNode := &ParquetSchemaNode{
		Name:     name,
		Kind:     NodeStruct,
		Optional: nullable,
		Children: []*ParquetSchemaNode{monthsNode, daysNode, microsNode},
	}
	build := func() ColumnWriter {
		return NewIntervalStructWriter(structNode,
			NewLeafWriter(monthsNode, decodeInt32),
			NewLeafWriter(daysNode, decodeInt32),
			NewLeafWriter(microsNode, decodeInt64),
		)
	}
	return structNode, build, nil
}

// buildArrayNode builds the flattened LIST<element> every array_handling
// mode shares, additionally wrapping it in a
// {items, dims[, lower_bound]} struct for the two modes that expose
// the wire header's own shape.
func buildArrayNode(name string, base *PgType, nullable bool, settings Settings) (*ParquetSchemaNode, func() ColumnWriter, error) {
	elemNode, elemBuild, err := buildNode("element", base.Element, true, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("column %s: %w", name, err)
	}

	if settings.Array == ArrayPlain {
		listNode := &ParquetSchemaNode{Name: name, Kind: NodeList, Optional: nullable, Element: elemNode}
		return listNode, func() ColumnWriter {
			return NewListWriter(listNode, elemBuild())
		}, nil
	}

	itemsNode := &ParquetSchemaNode{Name: "items", Kind: NodeList, Optional: false, Element: elemNode}
	dimsElemNode := int32LeafNode("element")
	dimsNode := &ParquetSchemaNode{Name: "dims", Kind: NodeList, Optional: false, Element: dimsElemNode}
	children := []*ParquetSchemaNode{itemsNode, dimsNode}

	var lowerBoundsNode *ParquetSchemaNode
	withLowerBounds := settings.Array == ArrayDimensionsLowerBound
	if withLowerBounds {
		lbElemNode := int32LeafNode("element")
		lowerBoundsNode = &ParquetSchemaNode{Name: "lower_bound", Kind: NodeList, Optional: false, Element: lbElemNode}
		children = append(children, lowerBoundsNode)
	}

	structNode := &ParquetSchemaNode{Name: name, Kind: NodeStruct, Optional: nullable, Children: children}
	return structNode, func() ColumnWriter {
		dimsLeaf := NewLeafWriter(dimsNode.Element, decodeInt32)
		var lowerBoundsLeaf *LeafWriter
		if withLowerBounds {
			lowerBoundsLeaf = NewLeafWriter(lowerBoundsNode.Element, decodeInt32)
		}
		return NewArrayWriter(structNode, itemsNode, elemBuild(), dimsNode, dimsLeaf, lowerBoundsNode, lowerBoundsLeaf)
	}, nil
}

func buildCompositeNode(name string, base *PgType, nullable bool, settings Settings) (*ParquetSchemaNode, func() ColumnWriter, error) {
	children := make([]*ParquetSchemaNode, 0, len(base.Fields))
	builds := make([]func() ColumnWriter, 0, len(base.Fields))
	for _, f := range base.Fields {
		childNode, childBuild, err := buildNode(f.Name, f.Type, true, settings)
		if err != nil {
			return nil, nil, fmt.Errorf("column %s field %s: %w", name, f.Name, err)
		}
		children = append(children, childNode)
		builds = append(builds, childBuild)
	}
	structNode := &ParquetSchemaNode{Name: name, Kind: NodeStruct, Optional: nullable, Children: children}
	return structNode, func() ColumnWriter {
		writers := make([]ColumnWriter, len(builds))
		for i, b := range builds {
			writers[i] = b()
		}
		return NewStructWriter(structNode, writers)
	}, nil
}

// buildRangeNode builds the synthetic 5-field struct (lower, upper,
// lower_inclusive, upper_inclusive, is_empty) a range column is exposed
// as, matching RangeWriter's decode.
func buildRangeNode(name string, base *PgType, nullable bool, settings Settings) (*ParquetSchemaNode, func() ColumnWriter, error) {
	lowerNode, lowerBuild, err := buildNode("lower", base.Subtype, true, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("column %s: %w", name, err)
	}
	upperNode, upperBuild, err := buildNode("upper", base.Subtype, true, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("column %s: %w", name, err)
	}
	emptyNode := boolLeafNode("is_empty")
	lowerInclNode := boolLeafNode("lower_inclusive")
	upperInclNode := boolLeafNode("upper_inclusive")

	structNode := &ParquetSchemaNode{
		Name:     name,
		Kind:     NodeStruct,
		Optional: nullable,
		Children: []*ParquetSchemaNode{lowerNode, upperNode, lowerInclNode, upperInclNode, emptyNode},
	}
	build := func() ColumnWriter {
		return NewRangeWriter(structNode,
			NewLeafWriter(emptyNode, decodeBool),
			lowerBuild(),
			NewLeafWriter(lowerInclNode, decodeBool),
			upperBuild(),
			NewLeafWriter(upperInclNode, decodeBool),
		)
	}
	return structNode, build, nil
}

func buildMultirangeNode(name string, base *PgType, nullable bool, settings Settings) (*ParquetSchemaNode, func() ColumnWriter, error) {
	rangeAsBase := &PgType{OID: base.OID, Name: base.Name, Kind: KindRange, Subtype: base.Subtype}
	rangeNode, rangeBuild, err := buildRangeNode("element", rangeAsBase, true, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("column %s: %w", name, err)
	}
	listNode := &ParquetSchemaNode{Name: name, Kind: NodeList, Optional: nullable, Element: rangeNode}
	return listNode, func() ColumnWriter {
		return NewMultirangeWriter(listNode, rangeBuild())
	}, nil
}
