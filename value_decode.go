package pg2parquet

import (
	"fmt"
	"math"
	"math/big"
	"net/netip"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// PostgresDateEpochDays is the number of days between the Unix epoch
// and 2000-01-01, the epoch PostgreSQL's date/timestamp wire formats
// are relative to.
const PostgresDateEpochDays = 10957

// PostgresTimestampEpochMicros is PostgresDateEpochDays expressed in
// microseconds, used to rebase timestamp/timestamptz values onto the
// Unix epoch.
const PostgresTimestampEpochMicros = int64(PostgresDateEpochDays) * 24 * 3600 * 1000000

func decodeBool(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	v, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	return v != 0, nil
}

func decodeInt16(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	v, err := d.ReadI16()
	return int32(v), err
}

func decodeInt32(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	return d.ReadI32()
}

func decodeInt64(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	return d.ReadI64()
}

func decodeFloat32(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	return d.ReadF32()
}

func decodeFloat64(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	return d.ReadF64()
}

func decodeText(data []byte) (any, error) {
	return string(data), nil
}

func decodeBytea(data []byte) (any, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// decodeJSONB strips the single version byte every jsonb value is
// prefixed with on the wire (always 0x01 today) before handing the
// text payload back.
func decodeJSONB(data []byte) (any, error) {
	if len(data) == 0 {
		return "", nil
	}
	return string(data[1:]), nil
}

func decodeDate(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	days, err := d.ReadI32()
	if err != nil {
		return nil, err
	}
	return days + PostgresDateEpochDays, nil
}

func decodeTime(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	return d.ReadI64()
}

func decodeTimestamp(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	micros, err := d.ReadI64()
	if err != nil {
		return nil, err
	}
	return micros + PostgresTimestampEpochMicros, nil
}

// decodeInterval reads PostgreSQL's (microseconds, days, months) wire
// layout and returns it reordered into Parquet's INTERVAL convention
// of (months, days, milliseconds) as a 12-byte little-endian struct.
func decodeInterval(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	micros, err := d.ReadI64()
	if err != nil {
		return nil, err
	}
	days, err := d.ReadI32()
	if err != nil {
		return nil, err
	}
	months, err := d.ReadI32()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 12)
	putU32LE(out[0:4], uint32(months))
	putU32LE(out[4:8], uint32(days))
	putU32LE(out[8:12], uint32(micros/1000))
	return out, nil
}

func putU32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// intervalComponents decodes PostgreSQL's (microseconds, days, months)
// wire triple without reordering it into Parquet's INTERVAL convention,
// for interval_handling=struct's three independent sub-fields.
func intervalComponents(data []byte) (months, days int32, micros int64, err error) {
	d := NewFieldDecoder(data)
	if micros, err = d.ReadI64(); err != nil {
		return
	}
	if days, err = d.ReadI32(); err != nil {
		return
	}
	if months, err = d.ReadI32(); err != nil {
		return
	}
	return
}

func decodeUUID(data []byte) (any, error) {
	if len(data) != 16 {
		return nil, fmt.Errorf("uuid field is %d bytes, want 16", len(data))
	}
	var u uuid.UUID
	copy(u[:], data)
	return u[:], nil
}

func decodeMacaddrString(data []byte) (any, error) {
	if len(data) != 6 {
		return nil, fmt.Errorf("macaddr field is %d bytes, want 6", len(data))
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", data[0], data[1], data[2], data[3], data[4], data[5]), nil
}

func decodeMacaddrBytes(data []byte) (any, error) {
	return decodeBytea(data)
}

// decodeMacaddrInt64 packs a 6-byte macaddr into the low 48 bits of an
// int64, the same layout most network tooling uses when a MAC address
// needs to sort and compare as a plain integer.
func decodeMacaddrInt64(data []byte) (any, error) {
	if len(data) != 6 {
		return nil, fmt.Errorf("macaddr field is %d bytes, want 6", len(data))
	}
	var v int64
	for _, b := range data {
		v = v<<8 | int64(b)
	}
	return v, nil
}

func decodeMacaddr8String(data []byte) (any, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("macaddr8 field is %d bytes, want 8", len(data))
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x:%02x:%02x", data[0], data[1], data[2], data[3], data[4], data[5], data[6], data[7]), nil
}

// decodeInet handles both inet and cidr, which share a wire format:
// family byte, bits byte, is_cidr byte, address length byte, then the
// address bytes (4 for IPv4, 16 for IPv6).
func decodeInet(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	family, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	bits, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	if _, err := d.ReadU8(); err != nil { // is_cidr, unused
		return nil, err
	}
	addrLen, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	addr, err := d.ReadBytes(int(addrLen))
	if err != nil {
		return nil, err
	}
	var ip netip.Addr
	var ok bool
	switch len(addr) {
	case 4:
		var a4 [4]byte
		copy(a4[:], addr)
		ip = netip.AddrFrom4(a4)
		ok = true
	case 16:
		var a16 [16]byte
		copy(a16[:], addr)
		ip = netip.AddrFrom16(a16)
		ok = true
	}
	if !ok {
		return nil, fmt.Errorf("inet/cidr address has unexpected length %d", len(addr))
	}
	_ = family
	return fmt.Sprintf("%s/%d", ip.String(), bits), nil
}

// decodeMoney reads money_recv's int64 payload - the amount in cents,
// independent of the server's lc_monetary - and rescales it to
// DECIMAL(19,4)'s fixed-point representation by multiplying by 100,
// since money's own native 2 fractional digits don't match the target
// scale of 4.
func decodeMoney(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	cents, err := d.ReadI64()
	if err != nil {
		return nil, err
	}
	return cents * 100, nil
}

// decodeBit reads a bit/varbit value: int32 bit length followed by the
// bits packed 8 to a byte, most significant bit first, into a string
// of '0'/'1' characters.
func decodeBit(data []byte) (any, error) {
	d := NewFieldDecoder(data)
	bitLen, err := d.ReadI32()
	if err != nil {
		return nil, err
	}
	rest := d.ReadRest()
	var sb strings.Builder
	sb.Grow(int(bitLen))
	for i := int32(0); i < bitLen; i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		if int(byteIdx) >= len(rest) {
			break
		}
		if rest[byteIdx]&(1<<bitIdx) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String(), nil
}

// numericSign values from PostgreSQL's numeric wire format.
const (
	numericSignPositive = 0x0000
	numericSignNegative = 0x4000
	numericSignNaN      = 0xC000
)

// decodedNumeric is the intermediate representation every numeric
// handling mode formats from.
type decodedNumeric struct {
	isNaN bool
	neg   bool
	// unscaled holds the digits with no decimal point, scale says how
	// many of the low-order digits are fractional.
	unscaled *big.Int
	scale    int32
}

func parseNumericField(data []byte) (decodedNumeric, error) {
	d := NewFieldDecoder(data)
	nDigits, err := d.ReadI16()
	if err != nil {
		return decodedNumeric{}, err
	}
	weight, err := d.ReadI16()
	if err != nil {
		return decodedNumeric{}, err
	}
	sign, err := d.ReadU16()
	if err != nil {
		return decodedNumeric{}, err
	}
	dscale, err := d.ReadI16()
	if err != nil {
		return decodedNumeric{}, err
	}
	if sign == numericSignNaN {
		return decodedNumeric{isNaN: true}, nil
	}

	digits := make([]int16, nDigits)
	for i := range digits {
		v, err := d.ReadI16()
		if err != nil {
			return decodedNumeric{}, err
		}
		digits[i] = v
	}

	unscaled := big.NewInt(0)
	base := big.NewInt(10000)
	for _, dg := range digits {
		unscaled.Mul(unscaled, base)
		unscaled.Add(unscaled, big.NewInt(int64(dg)))
	}

	// The digits array represents base-10000 "mantissa" groups starting
	// at 10^(4*weight); shift unscaled so that dscale decimal digits
	// remain fractional.
	impliedScale := int32(len(digits)-int(weight)-1) * 4
	if impliedScale > int32(dscale) {
		div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(impliedScale-int32(dscale))), nil)
		unscaled.Quo(unscaled, div)
	} else if impliedScale < int32(dscale) {
		mul := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(int32(dscale)-impliedScale)), nil)
		unscaled.Mul(unscaled, mul)
	}

	return decodedNumeric{
		neg:      sign == numericSignNegative,
		unscaled: unscaled,
		scale:    int32(dscale),
	}, nil
}

func (n decodedNumeric) String() string {
	if n.isNaN {
		return "NaN"
	}
	s := n.unscaled.String()
	neg := n.neg && n.unscaled.Sign() != 0
	if n.scale <= 0 {
		if neg {
			return "-" + s
		}
		return s
	}
	for int32(len(s)) <= n.scale {
		s = "0" + s
	}
	intPart := s[:len(s)-int(n.scale)]
	fracPart := s[len(s)-int(n.scale):]
	out := intPart + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

func (n decodedNumeric) Float64() float64 {
	if n.isNaN {
		return math.NaN()
	}
	f, _ := strconv.ParseFloat(n.String(), 64)
	return f
}

// rescaleInt64 re-bases n's unscaled value to targetScale and returns
// it as a plain int64, for the INT32/INT64 decimal physical types
// small precisions use instead of a byte array.
func (n decodedNumeric) rescaleInt64(targetScale int32) (int64, error) {
	v := rescaledBigInt(n, targetScale)
	if !v.IsInt64() {
		return 0, fmt.Errorf("numeric value overflows decimal(_, %d) stored as int64", targetScale)
	}
	return v.Int64(), nil
}

// rescaleBytes re-bases n's unscaled value to targetScale and returns
// it as a minimal-length big-endian two's complement byte slice, the
// layout Parquet's DECIMAL logical type uses on a BYTE_ARRAY physical
// type.
func (n decodedNumeric) rescaleBytes(targetScale int32) ([]byte, error) {
	v := rescaledBigInt(n, targetScale)
	if v.Sign() == 0 {
		return []byte{0}, nil
	}
	if v.Sign() > 0 {
		b := v.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b, nil
	}
	nBytes := new(big.Int).Not(v).BitLen()/8 + 1
	mod := new(big.Int).Lsh(big.NewInt(1), uint(8*nBytes))
	twos := new(big.Int).Add(mod, v)
	b := twos.Bytes()
	for len(b) < nBytes {
		b = append([]byte{0}, b...)
	}
	return b, nil
}

func rescaledBigInt(n decodedNumeric, targetScale int32) *big.Int {
	v := new(big.Int).Set(n.unscaled)
	if targetScale > n.scale {
		mul := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(targetScale-n.scale)), nil)
		v.Mul(v, mul)
	} else if targetScale < n.scale {
		div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.scale-targetScale)), nil)
		v.Quo(v, div)
	}
	if n.neg {
		v.Neg(v)
	}
	return v
}
