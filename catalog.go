package pg2parquet

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// querier is satisfied by *pgxpool.Pool and by pgx.Tx, so the catalog can
// be exercised against a single connection during tests without pulling
// in a pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Catalog resolves pg_type OIDs into fully-expanded PgType trees,
// unwrapping domains and recursing into array elements, composite
// fields and range subtypes. Results are cached for the lifetime of
// one export since a session never redefines a type OID.
type Catalog struct {
	db    querier
	cache map[uint32]*PgType
	// inFlight guards against a pathological catalog that would make
	// resolution recurse forever (not reachable through normal DDL,
	// but a defensive backstop costs nothing).
	inFlight map[uint32]bool
}

func NewCatalog(db querier) *Catalog {
	return &Catalog{
		db:       db,
		cache:    make(map[uint32]*PgType),
		inFlight: make(map[uint32]bool),
	}
}

const typeLookupSQL = `
SELECT t.typname, t.typtype, t.typbasetype, t.typnotnull, t.typelem, t.typrelid
FROM pg_catalog.pg_type t
WHERE t.oid = $1`

const rangeSubtypeSQL = `SELECT rngsubtype FROM pg_catalog.pg_range WHERE rngtypid = $1`

const multirangeSQL = `SELECT rngtypid FROM pg_catalog.pg_range WHERE rngmultitypid = $1`

const compositeFieldsSQL = `
SELECT a.attname, a.atttypid
FROM pg_catalog.pg_attribute a
WHERE a.attrelid = $1 AND a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attnum`

const enumLabelsSQL = `
SELECT enumlabel FROM pg_catalog.pg_enum
WHERE enumtypid = $1
ORDER BY enumsortorder`

// Resolve returns the PgType for oid, recursing into element, field and
// subtype OIDs as needed. The returned OID always equals the argument:
// domains are unwrapped into DomainOf, never replaced in place, because
// the wire still tags values with the domain's own OID.
func (c *Catalog) Resolve(ctx context.Context, oid uint32) (*PgType, error) {
	if t, ok := c.cache[oid]; ok {
		return t, nil
	}
	if c.inFlight[oid] {
		return nil, fmt.Errorf("pg_type oid %d resolves through itself", oid)
	}
	c.inFlight[oid] = true
	defer delete(c.inFlight, oid)

	var typname, typtype string
	var typbasetype uint32
	var typnotnull bool
	var typelem uint32
	var typrelid uint32
	if err := c.db.QueryRow(ctx, typeLookupSQL, oid).Scan(&typname, &typtype, &typbasetype, &typnotnull, &typelem, &typrelid); err != nil {
		return nil, fmt.Errorf("look up pg_type oid %d: %w", oid, err)
	}

	t := &PgType{OID: oid, Name: typname}

	if typtype == typTypeDomain {
		base, err := c.Resolve(ctx, typbasetype)
		if err != nil {
			return nil, fmt.Errorf("resolve base type of domain %s: %w", typname, err)
		}
		t.DomainOf = base
		t.DomainNotNull = typnotnull
		t.Kind = base.Kind
		t.Element = base.Element
		t.Fields = base.Fields
		t.Subtype = base.Subtype
		t.EnumLabels = base.EnumLabels
		c.cache[oid] = t
		return t, nil
	}

	// Arrays are identified by a non-zero typelem on a non-composite,
	// non-range type (pg_type represents e.g. int4[] this way rather
	// than via typtype).
	if typelem != 0 && typrelid == 0 {
		elem, err := c.Resolve(ctx, typelem)
		if err != nil {
			return nil, fmt.Errorf("resolve element type of array %s: %w", typname, err)
		}
		t.Kind = KindArray
		t.Element = elem
		c.cache[oid] = t
		return t, nil
	}

	switch typtype {
	case typTypeComposite:
		fields, err := c.resolveCompositeFields(ctx, typrelid)
		if err != nil {
			return nil, fmt.Errorf("resolve fields of composite %s: %w", typname, err)
		}
		t.Kind = KindComposite
		t.Fields = fields
	case typTypeEnum:
		labels, err := c.resolveEnumLabels(ctx, oid)
		if err != nil {
			return nil, fmt.Errorf("resolve labels of enum %s: %w", typname, err)
		}
		t.Kind = KindEnum
		t.EnumLabels = labels
	case typTypeRange:
		var subOID uint32
		if err := c.db.QueryRow(ctx, rangeSubtypeSQL, oid).Scan(&subOID); err != nil {
			return nil, fmt.Errorf("look up subtype of range %s: %w", typname, err)
		}
		sub, err := c.Resolve(ctx, subOID)
		if err != nil {
			return nil, fmt.Errorf("resolve subtype of range %s: %w", typname, err)
		}
		t.Kind = KindRange
		t.Subtype = sub
	case typTypeMultirange:
		var rangeOID uint32
		if err := c.db.QueryRow(ctx, multirangeSQL, oid).Scan(&rangeOID); err != nil {
			return nil, fmt.Errorf("look up range type of multirange %s: %w", typname, err)
		}
		rangeType, err := c.Resolve(ctx, rangeOID)
		if err != nil {
			return nil, fmt.Errorf("resolve range type of multirange %s: %w", typname, err)
		}
		t.Kind = KindMultirange
		t.Subtype = rangeType.Subtype
	default:
		t.Kind = KindScalar
	}

	c.cache[oid] = t
	return t, nil
}

func (c *Catalog) resolveCompositeFields(ctx context.Context, relid uint32) ([]CompositeField, error) {
	rows, err := c.db.Query(ctx, compositeFieldsSQL, relid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []CompositeField
	for rows.Next() {
		var name string
		var attOID uint32
		if err := rows.Scan(&name, &attOID); err != nil {
			return nil, err
		}
		fieldType, err := c.Resolve(ctx, attOID)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		fields = append(fields, CompositeField{Name: name, Type: fieldType})
	}
	return fields, rows.Err()
}

func (c *Catalog) resolveEnumLabels(ctx context.Context, oid uint32) ([]string, error) {
	rows, err := c.db.Query(ctx, enumLabelsSQL, oid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}
