package pg2parquet_test

import (
	"testing"

	"github.com/exyi/pg2parquet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMacaddrHandling(t *testing.T) {
	t.Parallel()

	v, err := pg2parquet.ParseMacaddrHandling("byte-array")
	require.NoError(t, err)
	assert.Equal(t, pg2parquet.MacaddrAsByteArray, v)

	_, err = pg2parquet.ParseMacaddrHandling("hex")
	require.Error(t, err)
}

func TestParseJSONHandling(t *testing.T) {
	t.Parallel()

	v, err := pg2parquet.ParseJSONHandling("text-marked-as-json")
	require.NoError(t, err)
	assert.Equal(t, pg2parquet.JSONAsTextMarkedAsJSON, v)

	_, err = pg2parquet.ParseJSONHandling("binary")
	require.Error(t, err)
}

func TestParseEnumHandling(t *testing.T) {
	t.Parallel()

	v, err := pg2parquet.ParseEnumHandling("int")
	require.NoError(t, err)
	assert.Equal(t, pg2parquet.EnumAsInt, v)

	_, err = pg2parquet.ParseEnumHandling("varint")
	require.Error(t, err)
}

func TestParseIntervalHandling(t *testing.T) {
	t.Parallel()

	v, err := pg2parquet.ParseIntervalHandling("struct")
	require.NoError(t, err)
	assert.Equal(t, pg2parquet.IntervalAsStruct, v)

	_, err = pg2parquet.ParseIntervalHandling("iso8601")
	require.Error(t, err)
}

func TestParseNumericHandling(t *testing.T) {
	t.Parallel()

	v, err := pg2parquet.ParseNumericHandling("float32")
	require.NoError(t, err)
	assert.Equal(t, pg2parquet.NumericAsFloat32, v)

	_, err = pg2parquet.ParseNumericHandling("float64")
	require.Error(t, err)
}

func TestParseArrayHandling(t *testing.T) {
	t.Parallel()

	v, err := pg2parquet.ParseArrayHandling("dimensions+lowerbound")
	require.NoError(t, err)
	assert.Equal(t, pg2parquet.ArrayDimensionsLowerBound, v)

	_, err = pg2parquet.ParseArrayHandling("json")
	require.Error(t, err)
}

func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	s := pg2parquet.DefaultSettings()
	assert.Equal(t, pg2parquet.MacaddrAsText, s.Macaddr)
	assert.Equal(t, pg2parquet.JSONAsText, s.JSON)
	assert.Equal(t, pg2parquet.EnumAsText, s.Enum)
	assert.Equal(t, pg2parquet.IntervalAsInterval, s.Interval)
	assert.Equal(t, pg2parquet.NumericAsDecimal, s.Numeric)
	assert.Equal(t, pg2parquet.ArrayPlain, s.Array)
	assert.Equal(t, int32(38), s.NumericPrecision)
	assert.Equal(t, int32(18), s.NumericScale)
	assert.Equal(t, "zstd", s.CompressionCodec)
}
