package pg2parquet

import "fmt"

// MacaddrHandling controls how macaddr/macaddr8 columns are written,
// matching --macaddr-handling's vocabulary.
type MacaddrHandling int

const (
	MacaddrAsText MacaddrHandling = iota
	MacaddrAsByteArray
	MacaddrAsInt64
)

// JSONHandling controls how json/jsonb columns are written, matching
// --json-handling's vocabulary. Both modes decode to the same text;
// the difference is purely which Parquet logical type annotates it.
type JSONHandling int

const (
	JSONAsText JSONHandling = iota
	JSONAsTextMarkedAsJSON
)

// EnumHandling controls how enum columns are written, matching
// --enum-handling's vocabulary.
type EnumHandling int

const (
	EnumAsText EnumHandling = iota
	EnumAsPlainText
	EnumAsInt
)

// IntervalHandling controls how interval columns are written, matching
// --interval-handling's vocabulary.
type IntervalHandling int

const (
	// IntervalAsInterval uses Parquet's own 12-byte INTERVAL
	// convertedtype (months, days, milliseconds).
	IntervalAsInterval IntervalHandling = iota
	// IntervalAsStruct exposes the same three components as a regular
	// struct{months int32, days int32, microseconds int64} instead,
	// for readers that don't special-case INTERVAL.
	IntervalAsStruct
)

// NumericHandling controls how arbitrary-precision numeric columns are
// written, matching --numeric-handling's vocabulary.
type NumericHandling int

const (
	NumericAsDecimal NumericHandling = iota
	NumericAsDouble
	NumericAsFloat32
	NumericAsString
)

// ArrayHandling controls how multi-dimensional arrays are exposed,
// matching --array-handling's vocabulary.
type ArrayHandling int

const (
	// ArrayPlain flattens every dimension into one Parquet LIST,
	// row-major, discarding dimensionality.
	ArrayPlain ArrayHandling = iota
	// ArrayDimensions additionally exposes a sibling "dims" LIST<INT32>
	// field recording each dimension's length.
	ArrayDimensions
	// ArrayDimensionsLowerBound additionally exposes a "lower_bound"
	// LIST<INT32> field alongside "dims".
	ArrayDimensionsLowerBound
)

// Settings holds every knob the resolver and flusher consult while
// turning a catalog-resolved PgType into a ParquetSchemaNode and while
// deciding when to cut a row group.
type Settings struct {
	Macaddr  MacaddrHandling
	JSON     JSONHandling
	Enum     EnumHandling
	Interval IntervalHandling
	Numeric  NumericHandling
	Array    ArrayHandling

	// NumericPrecision/NumericScale apply only when Numeric ==
	// NumericAsDecimal. Fractional digits beyond NumericScale are
	// truncated, not rounded. A rescaled value that does not fit the
	// decimal's INT32 or INT64 physical type errors out; the digit
	// count is not otherwise checked against NumericPrecision.
	NumericPrecision int32
	NumericScale     int32

	// BatchSize is the number of rows buffered per Parquet row group,
	// per spec: the flusher cuts a row group every BatchSize rows and
	// once more for a final partial group.
	BatchSize int

	CompressionCodec string
	CompressionLevel int
}

func DefaultSettings() Settings {
	return Settings{
		Macaddr:          MacaddrAsText,
		JSON:             JSONAsText,
		Enum:             EnumAsText,
		Interval:         IntervalAsInterval,
		Numeric:          NumericAsDecimal,
		Array:            ArrayPlain,
		NumericPrecision: 38,
		NumericScale:     18,
		BatchSize:        122880,
		CompressionCodec: "zstd",
		CompressionLevel: 0,
	}
}

func ParseMacaddrHandling(s string) (MacaddrHandling, error) {
	switch s {
	case "text":
		return MacaddrAsText, nil
	case "byte-array":
		return MacaddrAsByteArray, nil
	case "int64":
		return MacaddrAsInt64, nil
	default:
		return 0, fmt.Errorf("unknown macaddr handling %q, want text, byte-array or int64", s)
	}
}

func ParseJSONHandling(s string) (JSONHandling, error) {
	switch s {
	case "text":
		return JSONAsText, nil
	case "text-marked-as-json":
		return JSONAsTextMarkedAsJSON, nil
	default:
		return 0, fmt.Errorf("unknown json handling %q, want text or text-marked-as-json", s)
	}
}

func ParseEnumHandling(s string) (EnumHandling, error) {
	switch s {
	case "text":
		return EnumAsText, nil
	case "plain-text":
		return EnumAsPlainText, nil
	case "int":
		return EnumAsInt, nil
	default:
		return 0, fmt.Errorf("unknown enum handling %q, want text, plain-text or int", s)
	}
}

func ParseIntervalHandling(s string) (IntervalHandling, error) {
	switch s {
	case "interval":
		return IntervalAsInterval, nil
	case "struct":
		return IntervalAsStruct, nil
	default:
		return 0, fmt.Errorf("unknown interval handling %q, want interval or struct", s)
	}
}

func ParseNumericHandling(s string) (NumericHandling, error) {
	switch s {
	case "decimal":
		return NumericAsDecimal, nil
	case "double":
		return NumericAsDouble, nil
	case "float32":
		return NumericAsFloat32, nil
	case "string":
		return NumericAsString, nil
	default:
		return 0, fmt.Errorf("unknown numeric handling %q, want decimal, double, float32 or string", s)
	}
}

func ParseArrayHandling(s string) (ArrayHandling, error) {
	switch s {
	case "plain":
		return ArrayPlain, nil
	case "dimensions":
		return ArrayDimensions, nil
	case "dimensions+lowerbound":
		return ArrayDimensionsLowerBound, nil
	default:
		return 0, fmt.Errorf("unknown array handling %q, want plain, dimensions or dimensions+lowerbound", s)
	}
}
