package pg2parquet

import "fmt"

// PgTypeKind classifies a resolved pg_type entry into the shape the
// resolver needs to pick a ParquetSchemaNode, independent of the exact
// OID. Domains are unwrapped before a Kind is assigned: Kind always
// describes the base type a domain ultimately stands for.
type PgTypeKind int

const (
	KindScalar PgTypeKind = iota
	KindArray
	KindComposite
	KindEnum
	KindRange
	KindMultirange
)

func (k PgTypeKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindComposite:
		return "composite"
	case KindEnum:
		return "enum"
	case KindRange:
		return "range"
	case KindMultirange:
		return "multirange"
	default:
		return "unknown"
	}
}

// CompositeField describes one attribute of a composite type, in
// attnum order, as reported by pg_attribute.
type CompositeField struct {
	Name string
	Type *PgType
}

// PgType is the catalog's resolved view of a pg_type row, with domains
// already unwrapped to their base type and array/composite/range
// members resolved recursively. The OID recorded is always the OID the
// wire actually sends for values of this type, i.e. the domain's own
// OID when DomainOf is set, not the base type's OID - COPY BINARY
// frames carry the column's declared type, not the base type.
type PgType struct {
	OID  uint32
	Name string
	Kind PgTypeKind

	// DomainOf is non-nil when this PgType represents a domain. The
	// resolver builds the schema node from the wrapped type but keeps
	// this OID for error messages.
	DomainOf *PgType

	// DomainNotNull is true when the domain itself forbids NULL,
	// independent of the base type's own nullability.
	DomainNotNull bool

	// Element is set when Kind is KindArray: the element's own PgType,
	// already domain-unwrapped.
	Element *PgType

	// Fields is set when Kind is KindComposite, in attribute order.
	Fields []CompositeField

	// Subtype is set when Kind is KindRange or KindMultirange: the
	// range's bound type, already domain-unwrapped.
	Subtype *PgType

	// EnumLabels is set when Kind is KindEnum, in enumsortorder.
	EnumLabels []string
}

// UnwrapDomain walks DomainOf links until it reaches the first
// non-domain PgType, returning it together with whether any domain
// along the chain declared NOT NULL.
func (t *PgType) UnwrapDomain() (*PgType, bool) {
	notNull := false
	cur := t
	for cur.DomainOf != nil {
		if cur.DomainNotNull {
			notNull = true
		}
		cur = cur.DomainOf
	}
	return cur, notNull
}

func (t *PgType) String() string {
	if t.DomainOf != nil {
		return fmt.Sprintf("%s (domain over %s)", t.Name, t.DomainOf.String())
	}
	return t.Name
}
