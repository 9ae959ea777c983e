package pg2parquet

// PostgreSQL pg_type OIDs for the built-in types the resolver recognizes
// directly. Extension types and anything else unknown to this table are
// still supported as long as they resolve to one of these through
// pg_type.typbasetype (domains), typelem (arrays) or pg_type.typtype
// (composite/enum/range).
const (
	oidBool        = 16
	oidBytea       = 17
	oidChar        = 18
	oidName        = 19
	oidInt8        = 20
	oidInt2        = 21
	oidInt4        = 23
	oidText        = 25
	oidOID         = 26
	oidJSON        = 114
	oidXML         = 142
	oidPoint       = 600
	oidJSONArray   = 199
	oidMoney       = 790
	oidMacaddr     = 829
	oidInet        = 869
	oidCidr        = 650
	oidBpchar      = 1042
	oidVarchar     = 1043
	oidDate        = 1082
	oidTime        = 1083
	oidTimestamp   = 1114
	oidTimestamptz = 1184
	oidInterval    = 1186
	oidTimetz      = 1266
	oidBit         = 1560
	oidVarbit      = 1562
	oidNumeric     = 1700
	oidUUID        = 2950
	oidJSONB       = 3802
	oidMacaddr8    = 774
	oidFloat4      = 700
	oidFloat8      = 701
	oidXid8        = 5069
)

// pgTypType mirrors pg_type.typtype.
const (
	typTypeBase      = "b"
	typTypeComposite = "c"
	typTypeDomain    = "d"
	typTypeEnum      = "e"
	typTypePseudo    = "p"
	typTypeRange     = "r"
	typTypeMultirange = "m"
)

// pgTypCategory mirrors pg_type.typcategory for the few categories the
// resolver branches on directly (arrays are identified via typelem instead).
const (
	typCategoryArray = "A"
)

// wellKnownTypeNames is used only for diagnostics; it is not exhaustive.
var wellKnownTypeNames = map[uint32]string{
	oidBool:        "bool",
	oidBytea:       "bytea",
	oidChar:        "\"char\"",
	oidName:        "name",
	oidInt8:        "int8",
	oidInt2:        "int2",
	oidInt4:        "int4",
	oidText:        "text",
	oidOID:         "oid",
	oidJSON:        "json",
	oidXML:         "xml",
	oidMoney:       "money",
	oidMacaddr:     "macaddr",
	oidMacaddr8:    "macaddr8",
	oidInet:        "inet",
	oidCidr:        "cidr",
	oidBpchar:      "bpchar",
	oidVarchar:     "varchar",
	oidDate:        "date",
	oidTime:        "time",
	oidTimestamp:   "timestamp",
	oidTimestamptz: "timestamptz",
	oidInterval:    "interval",
	oidTimetz:      "timetz",
	oidBit:         "bit",
	oidVarbit:      "varbit",
	oidNumeric:     "numeric",
	oidUUID:        "uuid",
	oidJSONB:       "jsonb",
	oidFloat4:      "float4",
	oidFloat8:      "float8",
	oidXid8:        "xid8",
}

func typeNameForOID(oid uint32) string {
	if name, ok := wellKnownTypeNames[oid]; ok {
		return name
	}
	return "unknown"
}
