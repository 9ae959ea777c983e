package pg2parquet

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodedNumeric_String(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		n    decodedNumeric
		want string
	}{
		{"positive with scale", decodedNumeric{unscaled: big.NewInt(12345), scale: 2}, "123.45"},
		{"negative with scale", decodedNumeric{unscaled: big.NewInt(12345), scale: 2, neg: true}, "-123.45"},
		{"zero scale", decodedNumeric{unscaled: big.NewInt(42), scale: 0}, "42"},
		{"leading zero padding", decodedNumeric{unscaled: big.NewInt(5), scale: 3}, "0.005"},
		{"NaN", decodedNumeric{isNaN: true}, "NaN"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.n.String())
		})
	}
}

func TestDecodedNumeric_RescaleInt64(t *testing.T) {
	t.Parallel()

	n := decodedNumeric{unscaled: big.NewInt(12345), scale: 2} // 123.45
	v, err := n.rescaleInt64(4)
	require.NoError(t, err)
	assert.Equal(t, int64(1234500), v) // 123.4500

	v, err = n.rescaleInt64(0)
	require.NoError(t, err)
	assert.Equal(t, int64(123), v) // truncated fraction

	neg := decodedNumeric{unscaled: big.NewInt(500), scale: 2, neg: true}
	v, err = neg.rescaleInt64(2)
	require.NoError(t, err)
	assert.Equal(t, int64(-500), v)
}

func TestDecodedNumeric_RescaleInt64Overflow(t *testing.T) {
	t.Parallel()

	huge := decodedNumeric{unscaled: new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil), scale: 0}
	_, err := huge.rescaleInt64(0)
	require.Error(t, err)
}

func TestDecodedNumeric_RescaleBytes(t *testing.T) {
	t.Parallel()

	zero := decodedNumeric{unscaled: big.NewInt(0), scale: 0}
	b, err := zero.rescaleBytes(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, b)

	pos := decodedNumeric{unscaled: big.NewInt(200), scale: 0} // would be 0xC8, needs a leading zero byte to stay non-negative
	b, err = pos.rescaleBytes(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xC8}, b)

	neg := decodedNumeric{unscaled: big.NewInt(1), scale: 0, neg: true}
	b, err = neg.rescaleBytes(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, b) // -1 in minimal two's complement
}

func TestDecodeMoney(t *testing.T) {
	t.Parallel()

	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, uint64(12345)) // 12345 cents ($123.45)
	v, err := decodeMoney(data)
	require.NoError(t, err)
	assert.Equal(t, int64(1234500), v) // rescaled from cents (scale 2) to DECIMAL(19,4)
}

func TestIntervalComponents(t *testing.T) {
	t.Parallel()

	data := make([]byte, 16)
	binary.BigEndian.PutUint64(data[0:8], uint64(90000000)) // 90 seconds in micros
	binary.BigEndian.PutUint32(data[8:12], uint32(3))       // days
	binary.BigEndian.PutUint32(data[12:16], uint32(14))     // months

	months, days, micros, err := intervalComponents(data)
	require.NoError(t, err)
	assert.Equal(t, int32(14), months)
	assert.Equal(t, int32(3), days)
	assert.Equal(t, int64(90000000), micros)
}

func TestDecodeMacaddrInt64(t *testing.T) {
	t.Parallel()

	v, err := decodeMacaddrInt64([]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55})
	require.NoError(t, err)
	assert.Equal(t, int64(0x001122334455), v)

	_, err = decodeMacaddrInt64([]byte{0x01})
	require.Error(t, err)
}

func TestDecodeMacaddrString(t *testing.T) {
	t.Parallel()

	s, err := decodeMacaddrString([]byte{0x08, 0x00, 0x27, 0xde, 0xad, 0xbe})
	require.NoError(t, err)
	assert.Equal(t, "08:00:27:de:ad:be", s)
}
