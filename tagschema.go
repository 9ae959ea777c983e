package pg2parquet

import (
	"encoding/json"
	"fmt"
)

// jsonSchemaNode matches the {Tag, Fields} shape
// schema.NewSchemaHandlerFromJSON parses.
type jsonSchemaNode struct {
	Tag    string            `json:"Tag"`
	Fields []*jsonSchemaNode `json:"Fields,omitempty"`
}

func repetitionTag(optional bool) string {
	if optional {
		return "OPTIONAL"
	}
	return "REQUIRED"
}

func nodeToJSONSchema(n *ParquetSchemaNode) *jsonSchemaNode {
	switch n.Kind {
	case NodeList:
		return &jsonSchemaNode{
			Tag:    fmt.Sprintf("name=%s, type=LIST, repetitiontype=%s", n.Name, repetitionTag(n.Optional)),
			Fields: []*jsonSchemaNode{nodeToJSONSchema(n.Element)},
		}
	case NodeStruct:
		fields := make([]*jsonSchemaNode, len(n.Children))
		for i, c := range n.Children {
			fields[i] = nodeToJSONSchema(c)
		}
		return &jsonSchemaNode{
			Tag:    fmt.Sprintf("name=%s, repetitiontype=%s", n.Name, repetitionTag(n.Optional)),
			Fields: fields,
		}
	default: // NodeLeaf
		tag := fmt.Sprintf("name=%s, type=%s", n.Name, n.Physical)
		if n.Physical == "FIXED_LEN_BYTE_ARRAY" {
			tag += fmt.Sprintf(", length=%d", n.TypeLength)
		}
		if n.LogicalTagFragment != "" {
			tag += ", " + n.LogicalTagFragment
		}
		if n.ConvertedTagFragment != "" {
			tag += ", " + n.ConvertedTagFragment
		}
		tag += fmt.Sprintf(", repetitiontype=%s", repetitionTag(n.Optional))
		return &jsonSchemaNode{Tag: tag}
	}
}

// BuildSchemaJSON renders every resolved output column into the single
// JSON tag-tree schema.NewSchemaHandlerFromJSON expects, wrapped in one
// synthetic root group.
func BuildSchemaJSON(columns []*ParquetSchemaNode) (string, error) {
	root := &jsonSchemaNode{
		Tag: "name=root, repetitiontype=REQUIRED",
	}
	for _, c := range columns {
		root.Fields = append(root.Fields, nodeToJSONSchema(c))
	}
	b, err := json.Marshal(root)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// preorderSlots walks the same tree nodeToJSONSchema walks and returns,
// in the exact pre-order schema.NewSchemaHandlerFromJSON assigns
// SchemaElement indexes in, one slot per element the library will
// actually emit. A slot is nil for a synthetic or group element (the
// root, a struct, a LIST's outer group, and the synthetic repeated
// group LIST auto-inserts between the outer group and its one
// declared field) and is the corresponding *ParquetSchemaNode for
// every leaf.
func preorderSlots(n *ParquetSchemaNode) []*ParquetSchemaNode {
	switch n.Kind {
	case NodeList:
		slots := []*ParquetSchemaNode{nil, nil} // outer group, synthetic "List" group
		slots = append(slots, preorderSlots(n.Element)...)
		return slots
	case NodeStruct:
		slots := []*ParquetSchemaNode{nil}
		for _, c := range n.Children {
			slots = append(slots, preorderSlots(c)...)
		}
		return slots
	default: // NodeLeaf
		return []*ParquetSchemaNode{n}
	}
}

// SchemaLeafSlots returns the full pre-order slot list for the whole
// file schema (the synthetic root plus every column), aligned 1:1 with
// the SchemaElements a schema.SchemaHandler built from
// BuildSchemaJSON's output will produce.
func SchemaLeafSlots(columns []*ParquetSchemaNode) []*ParquetSchemaNode {
	slots := []*ParquetSchemaNode{nil} // root
	for _, c := range columns {
		slots = append(slots, preorderSlots(c)...)
	}
	return slots
}

// indexMapper resolves sh.IndexMap lookups: given SchemaLeafSlots(columns)
// zipped against a SchemaHandler.IndexMap built from BuildSchemaJSON's
// output over the same columns, it returns the marshal-time output key
// for each leaf node.
type indexMapper func(node *ParquetSchemaNode) (string, error)

// BuildIndexMapper zips slots against indexMap (schema.SchemaHandler's
// own IndexMap field, keyed by SchemaElement index) to produce a
// lookup from leaf node to the string key
// writer.ParquetWriter.MarshalFunc's returned map must use for it.
func BuildIndexMapper(slots []*ParquetSchemaNode, indexMap map[int32]string) (indexMapper, error) {
	lookup := make(map[*ParquetSchemaNode]string, len(slots))
	for i, n := range slots {
		if n == nil {
			continue
		}
		key, ok := indexMap[int32(i)]
		if !ok {
			return nil, fmt.Errorf("schema index %d has no entry in SchemaHandler.IndexMap", i)
		}
		lookup[n] = key
	}
	return func(node *ParquetSchemaNode) (string, error) {
		key, ok := lookup[node]
		if !ok {
			return "", fmt.Errorf("leaf %q was not found in the resolved schema's index map", node.Name)
		}
		return key, nil
	}, nil
}
