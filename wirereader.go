package pg2parquet

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// copyBinarySignature is the fixed 11-byte magic PostgreSQL prefixes every
// COPY BINARY stream with: "PGCOPY\n\xff\r\n\x00".
var copyBinarySignature = [11]byte{'P', 'G', 'C', 'O', 'P', 'Y', '\n', 0xff, '\r', '\n', 0}

// WireReader decodes a PostgreSQL COPY BINARY stream tuple-by-tuple. It owns
// no connection; it is handed whatever io.Reader reassembles the backend's
// CopyData frames into a contiguous byte stream (see exporter.go).
//
// WireReader is not safe for concurrent use; it advances strictly forward
// and never rewinds.
type WireReader struct {
	r          io.Reader
	lenBuf     [4]byte
	fieldBuf   []byte // reused scratch for the current field's payload
	headerDone bool
}

// NewWireReader creates a reader over r, which must begin with a COPY
// BINARY header (see ReadHeader).
func NewWireReader(r io.Reader) *WireReader {
	return &WireReader{
		r:        r,
		fieldBuf: make([]byte, 0, 256),
	}
}

// ReadHeader validates the PGCOPY magic, reads the flags word and the
// header-extension area, and discards the extension bytes. It must be
// called exactly once before StartRow.
func (w *WireReader) ReadHeader() error {
	var sig [11]byte
	if _, err := io.ReadFull(w.r, sig[:]); err != nil {
		return &ProtocolError{Context: "reading header signature", Err: err}
	}
	if sig != copyBinarySignature {
		return &ProtocolError{Context: "header signature", Err: fmt.Errorf("invalid PGCOPY magic")}
	}

	var flags uint32
	if err := binary.Read(w.r, binary.BigEndian, &flags); err != nil {
		return &ProtocolError{Context: "reading header flags", Err: err}
	}

	var extLen uint32
	if err := binary.Read(w.r, binary.BigEndian, &extLen); err != nil {
		return &ProtocolError{Context: "reading header extension length", Err: err}
	}
	if extLen > 0 {
		if _, err := io.CopyN(io.Discard, w.r, int64(extLen)); err != nil {
			return &ProtocolError{Context: "discarding header extension", Err: err}
		}
	}

	w.headerDone = true
	return nil
}

// StartRow reads the Int16 field-count that precedes every tuple. ok is
// false once the end-of-stream sentinel (-1) is read; no further calls are
// valid after that.
func (w *WireReader) StartRow() (fieldCount int, ok bool, err error) {
	var buf [2]byte
	if _, err := io.ReadFull(w.r, buf[:]); err != nil {
		return 0, false, &ProtocolError{Context: "reading tuple field count", Err: err}
	}
	n := int16(binary.BigEndian.Uint16(buf[:]))
	if n == -1 {
		return 0, false, nil
	}
	if n < -1 {
		return 0, false, &ProtocolError{Context: "tuple field count", Err: fmt.Errorf("invalid field count %d", n)}
	}
	return int(n), true, nil
}

// NextField reads the Int32 length prefix and, unless the field is NULL,
// that many bytes of payload. The returned slice is only valid until the
// next call to NextField; writers must copy out whatever they retain past
// that point.
func (w *WireReader) NextField() (data []byte, isNull bool, err error) {
	if _, err := io.ReadFull(w.r, w.lenBuf[:]); err != nil {
		return nil, false, &ProtocolError{Context: "reading field length", Err: err}
	}
	length := int32(binary.BigEndian.Uint32(w.lenBuf[:]))
	if length == -1 {
		return nil, true, nil
	}
	if length < -1 {
		return nil, false, &ProtocolError{Context: "field length", Err: fmt.Errorf("invalid field length %d", length)}
	}

	if cap(w.fieldBuf) < int(length) {
		w.fieldBuf = make([]byte, length)
	} else {
		w.fieldBuf = w.fieldBuf[:length]
	}
	if length > 0 {
		if _, err := io.ReadFull(w.r, w.fieldBuf); err != nil {
			return nil, false, &ProtocolError{Context: "reading field payload", Err: err}
		}
	}
	return w.fieldBuf, false, nil
}

// FieldDecoder wraps one already-buffered field payload (the bytes NextField
// returned) and offers typed helpers over it, plus the array/composite/range
// sub-iterators spec'd in §4.1. It assumes it is positioned at the start of
// the payload; all typed Read* helpers advance its cursor.
type FieldDecoder struct {
	data []byte
	pos  int
}

// NewFieldDecoder wraps data for decoding. Callers that need the bytes to
// outlive the next WireReader.NextField call must copy data first.
func NewFieldDecoder(data []byte) *FieldDecoder {
	return &FieldDecoder{data: data}
}

func (f *FieldDecoder) Len() int         { return len(f.data) }
func (f *FieldDecoder) Remaining() int   { return len(f.data) - f.pos }
func (f *FieldDecoder) Bytes() []byte    { return f.data }
func (f *FieldDecoder) AtEnd() bool      { return f.pos >= len(f.data) }

func (f *FieldDecoder) readN(n int) ([]byte, error) {
	if f.pos+n > len(f.data) {
		return nil, fmt.Errorf("short field payload: need %d bytes, have %d", n, len(f.data)-f.pos)
	}
	b := f.data[f.pos : f.pos+n]
	f.pos += n
	return b, nil
}

// ReadBytes returns the next n raw bytes and advances the cursor.
func (f *FieldDecoder) ReadBytes(n int) ([]byte, error) { return f.readN(n) }

// ReadRest returns every byte from the cursor to the end of the payload.
func (f *FieldDecoder) ReadRest() []byte {
	b := f.data[f.pos:]
	f.pos = len(f.data)
	return b
}

func (f *FieldDecoder) ReadI8() (int8, error) {
	b, err := f.readN(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (f *FieldDecoder) ReadU8() (uint8, error) {
	b, err := f.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (f *FieldDecoder) ReadI16() (int16, error) {
	b, err := f.readN(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (f *FieldDecoder) ReadU16() (uint16, error) {
	b, err := f.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (f *FieldDecoder) ReadI32() (int32, error) {
	b, err := f.readN(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (f *FieldDecoder) ReadU32() (uint32, error) {
	b, err := f.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (f *FieldDecoder) ReadI64() (int64, error) {
	b, err := f.readN(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (f *FieldDecoder) ReadU64() (uint64, error) {
	b, err := f.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (f *FieldDecoder) ReadF32() (float32, error) {
	bits, err := f.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (f *FieldDecoder) ReadF64() (float64, error) {
	bits, err := f.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// ReadText returns the remainder of the payload decoded as UTF-8 text.
// PostgreSQL's send functions for text-like types emit the raw bytes with
// no additional framing.
func (f *FieldDecoder) ReadText() string {
	return string(f.ReadRest())
}

// ArrayHeader is the fixed portion of array_recv's wire layout, preceding
// the per-dimension bounds and the element stream.
type ArrayHeader struct {
	NDim        int32
	HasNulls    bool
	ElemOID     uint32
	Dims        []int32
	LowerBounds []int32
}

// ReadArrayHeader decodes the ndim/flags/elem-oid/bounds prefix of an
// array_recv payload (spec.md §4.1). After this call the cursor is
// positioned at the first element's (length, bytes|NULL) frame.
func (f *FieldDecoder) ReadArrayHeader() (*ArrayHeader, error) {
	ndim, err := f.ReadI32()
	if err != nil {
		return nil, err
	}
	hasNullsFlag, err := f.ReadI32()
	if err != nil {
		return nil, err
	}
	elemOID, err := f.ReadU32()
	if err != nil {
		return nil, err
	}
	if ndim < 0 {
		return nil, fmt.Errorf("invalid array ndim %d", ndim)
	}

	h := &ArrayHeader{NDim: ndim, HasNulls: hasNullsFlag != 0, ElemOID: elemOID}
	if ndim == 0 {
		return h, nil
	}
	h.Dims = make([]int32, ndim)
	h.LowerBounds = make([]int32, ndim)
	for i := int32(0); i < ndim; i++ {
		d, err := f.ReadI32()
		if err != nil {
			return nil, err
		}
		lb, err := f.ReadI32()
		if err != nil {
			return nil, err
		}
		h.Dims[i] = d
		h.LowerBounds[i] = lb
	}
	return h, nil
}

// ElementCount is the product of all dimension lengths (0 for a 0-dim
// array, i.e. an empty array).
func (h *ArrayHeader) ElementCount() int {
	if h.NDim == 0 {
		return 0
	}
	n := 1
	for _, d := range h.Dims {
		n *= int(d)
	}
	return n
}

// ArrayElementIter yields each element of an array_recv payload in
// row-major order, flattening multi-dimensional arrays (spec.md §4.1 and
// §9 Open Questions).
type ArrayElementIter struct {
	f         *FieldDecoder
	remaining int
}

// ArrayIter decodes the array header and returns an iterator over its
// elements, flattened row-major across all dimensions.
func (f *FieldDecoder) ArrayIter() (*ArrayHeader, *ArrayElementIter, error) {
	h, err := f.ReadArrayHeader()
	if err != nil {
		return nil, nil, err
	}
	return h, &ArrayElementIter{f: f, remaining: h.ElementCount()}, nil
}

// Next returns the next element's raw payload (nil, true if SQL NULL) and
// ok=false once every element has been consumed.
func (it *ArrayElementIter) Next() (data []byte, isNull bool, ok bool, err error) {
	if it.remaining <= 0 {
		return nil, false, false, nil
	}
	it.remaining--
	length, err := it.f.ReadI32()
	if err != nil {
		return nil, false, false, err
	}
	if length == -1 {
		return nil, true, true, nil
	}
	if length < -1 {
		return nil, false, false, fmt.Errorf("invalid array element length %d", length)
	}
	b, err := it.f.ReadBytes(int(length))
	if err != nil {
		return nil, false, false, err
	}
	return b, false, true, nil
}

// CompositeFieldIter yields each field of a composite (record) payload.
type CompositeFieldIter struct {
	f         *FieldDecoder
	remaining int
}

// CompositeIter decodes the leading Int32 field-count of a composite
// payload and returns an iterator over its fields.
func (f *FieldDecoder) CompositeIter() (*CompositeFieldIter, error) {
	n, err := f.ReadI32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("invalid composite field count %d", n)
	}
	return &CompositeFieldIter{f: f, remaining: int(n)}, nil
}

// Next returns the next field's declared type OID and payload (nil, true
// if SQL NULL).
func (it *CompositeFieldIter) Next() (fieldOID uint32, data []byte, isNull bool, ok bool, err error) {
	if it.remaining <= 0 {
		return 0, nil, false, false, nil
	}
	it.remaining--
	oid, err := it.f.ReadU32()
	if err != nil {
		return 0, nil, false, false, err
	}
	length, err := it.f.ReadI32()
	if err != nil {
		return 0, nil, false, false, err
	}
	if length == -1 {
		return oid, nil, true, true, nil
	}
	if length < -1 {
		return 0, nil, false, false, fmt.Errorf("invalid composite field length %d", length)
	}
	b, err := it.f.ReadBytes(int(length))
	if err != nil {
		return 0, nil, false, false, err
	}
	return oid, b, false, true, nil
}

// RangeFlags decodes the single flag byte that precedes a range_recv
// payload (spec.md §4.1).
type RangeFlags byte

const (
	rangeFlagEmpty          RangeFlags = 0x01
	rangeFlagLowerInf       RangeFlags = 0x02
	rangeFlagUpperInf       RangeFlags = 0x04
	rangeFlagLowerInclusive RangeFlags = 0x08
	rangeFlagUpperInclusive RangeFlags = 0x10
)

func (r RangeFlags) IsEmpty() bool          { return r&rangeFlagEmpty != 0 }
func (r RangeFlags) LowerInfinite() bool    { return r&rangeFlagLowerInf != 0 }
func (r RangeFlags) UpperInfinite() bool    { return r&rangeFlagUpperInf != 0 }
func (r RangeFlags) LowerInclusive() bool   { return r&rangeFlagLowerInclusive != 0 }
func (r RangeFlags) UpperInclusive() bool   { return r&rangeFlagUpperInclusive != 0 }

// ReadRangeFlags reads the leading flag byte of a range payload.
func (f *FieldDecoder) ReadRangeFlags() (RangeFlags, error) {
	b, err := f.ReadU8()
	if err != nil {
		return 0, err
	}
	return RangeFlags(b), nil
}

// ReadRangeBound reads one (length, bytes) bound frame. Callers must only
// call this when the corresponding flag says the bound is finite and the
// range is not empty.
func (f *FieldDecoder) ReadRangeBound() ([]byte, error) {
	length, err := f.ReadI32()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("invalid range bound length %d", length)
	}
	return f.ReadBytes(int(length))
}
