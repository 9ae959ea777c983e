package pg2parquet

// NodeKind distinguishes the three shapes a ParquetSchemaNode can take.
type NodeKind int

const (
	NodeLeaf NodeKind = iota
	NodeList
	NodeStruct
)

// ParquetSchemaNode is the resolver's output: a tree mirroring the
// column's pg_type shape, already translated into Parquet's physical
// types and already carrying the cumulative definition/repetition
// levels every ColumnWriter needs to emit Dremel-encoded values.
//
// A List node always expands to Parquet's three-level list convention
// (an optional or required outer group wrapping a repeated "list"
// group) even though this tree only models the outer node and its
// Element child; the repeated middle group is implicit and its
// contribution to MaxDefinitionLevel/MaxRepetitionLevel is folded into
// the List node's own levels rather than modeled as a separate node.
type ParquetSchemaNode struct {
	Name     string
	Kind     NodeKind
	Optional bool

	MaxDefinitionLevel int32
	MaxRepetitionLevel int32

	// Leaf fields, meaningful only when Kind == NodeLeaf.
	Physical              string // parquet.Type name: BOOLEAN, INT32, INT64, FLOAT, DOUBLE, BYTE_ARRAY, FIXED_LEN_BYTE_ARRAY
	TypeLength            int32  // FIXED_LEN_BYTE_ARRAY length, else 0
	LogicalTagFragment    string // e.g. "logicaltype=DATE" or "" when none applies
	ConvertedTagFragment  string // e.g. "convertedtype=UTF8" used when there's no richer logical type
	DecimalPrecision      int32
	DecimalScale          int32

	// List fields, meaningful only when Kind == NodeList.
	Element *ParquetSchemaNode

	// Struct fields, meaningful only when Kind == NodeStruct.
	Children []*ParquetSchemaNode
}

// computeLevels assigns MaxDefinitionLevel/MaxRepetitionLevel to node
// and every descendant, given the cumulative levels of its parent. Call
// with (0, 0) on the root of a column (the top-level node for a field
// is never itself repeated or made optional by anything above it; the
// field's own Optional flag is what may add one defLevel at the root).
func computeLevels(node *ParquetSchemaNode, parentDef, parentRep int32) {
	def := parentDef
	if node.Optional {
		def++
	}
	rep := parentRep

	switch node.Kind {
	case NodeList:
		// The synthetic repeated "list" group is present independent
		// of whether the outer group itself is null; it contributes
		// its own definition and repetition level on top of whatever
		// the outer group's own optionality added above.
		def++
		rep++
		node.MaxDefinitionLevel = def
		node.MaxRepetitionLevel = rep
		computeLevels(node.Element, def, rep)
	case NodeStruct:
		node.MaxDefinitionLevel = def
		node.MaxRepetitionLevel = rep
		for _, child := range node.Children {
			computeLevels(child, def, rep)
		}
	default: // NodeLeaf
		node.MaxDefinitionLevel = def
		node.MaxRepetitionLevel = rep
	}
}

// Leaves returns every leaf node under root in the exact pre-order a
// depth-first walk visits them, which is also the order tagschema.go
// emits them in the JSON schema and therefore the order
// schema.SchemaHandler assigns indexes to them in.
func Leaves(root *ParquetSchemaNode) []*ParquetSchemaNode {
	var out []*ParquetSchemaNode
	var walk func(n *ParquetSchemaNode)
	walk = func(n *ParquetSchemaNode) {
		switch n.Kind {
		case NodeLeaf:
			out = append(out, n)
		case NodeList:
			walk(n.Element)
		case NodeStruct:
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(root)
	return out
}
