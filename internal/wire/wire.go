// Package wire holds the protobuf field codec shared by the relay and auth
// wrapper envelopes.
//
// Messages are encoded by hand with protowire following proto3 rules: zero
// values are omitted on encode, unknown fields are skipped on decode and
// repeated scalars are accepted both packed and unpacked.
package wire

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrWireType is returned when a known field arrives with the wrong wire type.
var ErrWireType = errors.New("unexpected wire type")

// Reader iterates over the fields of one encoded message.
type Reader struct {
	b []byte
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// More reports whether unread fields remain.
func (r *Reader) More() bool {
	return len(r.b) > 0
}

// Next reads the next field tag.
func (r *Reader) Next() (protowire.Number, protowire.Type, error) {
	num, typ, n := protowire.ConsumeTag(r.b)
	if n < 0 {
		return 0, 0, fmt.Errorf("reading tag: %w", protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return num, typ, nil
}

// Bytes reads a length-delimited value. The result is a copy.
func (r *Reader) Bytes(typ protowire.Type) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, fmt.Errorf("%w: %d", ErrWireType, typ)
	}
	v, n := protowire.ConsumeBytes(r.b)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	r.b = r.b[n:]
	return bytes.Clone(v), nil
}

// String reads a length-delimited value as a string.
func (r *Reader) String(typ protowire.Type) (string, error) {
	b, err := r.Bytes(typ)
	return string(b), err
}

// Varint reads a varint value.
func (r *Reader) Varint(typ protowire.Type) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("%w: %d", ErrWireType, typ)
	}
	v, n := protowire.ConsumeVarint(r.b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	r.b = r.b[n:]
	return v, nil
}

// Uint32s reads a repeated uint32 field, packed or not, appending to dst.
func (r *Reader) Uint32s(typ protowire.Type, dst []uint32) ([]uint32, error) {
	switch typ {
	case protowire.VarintType:
		v, err := r.Varint(typ)
		if err != nil {
			return dst, err
		}
		return append(dst, uint32(v)), nil

	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(r.b)
		if n < 0 {
			return dst, protowire.ParseError(n)
		}
		r.b = r.b[n:]
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return dst, fmt.Errorf("packed element: %w", protowire.ParseError(m))
			}
			packed = packed[m:]
			dst = append(dst, uint32(v))
		}
		return dst, nil

	default:
		return dst, fmt.Errorf("%w: %d", ErrWireType, typ)
	}
}

// Skip discards the value of an unknown field.
func (r *Reader) Skip(num protowire.Number, typ protowire.Type) error {
	n := protowire.ConsumeFieldValue(num, typ, r.b)
	if n < 0 {
		return fmt.Errorf("skipping field %d: %w", num, protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return nil
}

// AppendBytes appends a length-delimited field unless v is empty.
func AppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendString appends a string field unless v is empty.
func AppendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// AppendVarint appends a varint field unless v is zero.
func AppendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// AppendPackedUint32s appends a packed repeated uint32 field unless vs is
// empty.
func AppendPackedUint32s(b []byte, num protowire.Number, vs []uint32) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// AppendMessage appends an embedded message field. Embedded messages are
// always written, even when empty, so presence survives a round trip.
func AppendMessage(b []byte, num protowire.Number, encoded []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, encoded)
}
