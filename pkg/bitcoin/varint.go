package bitcoin

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrVarIntTooShort is returned when the input ends inside a CompactSize.
	ErrVarIntTooShort = errors.New("varint too short")

	// ErrVarIntNonMinimal is returned when a CompactSize uses a wider
	// encoding than its value needs.
	ErrVarIntNonMinimal = errors.New("varint non-minimal")
)

// ReadVarInt reads a Bitcoin-style variable-length integer.
func ReadVarInt(r io.Reader) (uint64, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, ErrVarIntTooShort
	}

	var (
		v   uint64
		min uint64
	)
	switch first[0] {
	case 0xfd:
		var x uint16
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return 0, ErrVarIntTooShort
		}
		v, min = uint64(x), 0xfd
	case 0xfe:
		var x uint32
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return 0, ErrVarIntTooShort
		}
		v, min = uint64(x), 0x10000
	case 0xff:
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, ErrVarIntTooShort
		}
		min = 0x100000000
	default:
		return uint64(first[0]), nil
	}

	if v < min {
		return 0, fmt.Errorf("%w: 0x%x encoded with prefix 0x%02x", ErrVarIntNonMinimal, v, first[0])
	}
	return v, nil
}

// AppendVarInt appends the minimal CompactSize encoding of v.
func AppendVarInt(b []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(b, byte(v))
	case v <= 0xffff:
		b = append(b, 0xfd)
		return binary.LittleEndian.AppendUint16(b, uint16(v))
	case v <= 0xffffffff:
		b = append(b, 0xfe)
		return binary.LittleEndian.AppendUint32(b, uint32(v))
	default:
		b = append(b, 0xff)
		return binary.LittleEndian.AppendUint64(b, v)
	}
}

// VarIntSize returns the encoded length of v.
func VarIntSize(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= 0xffff:
		return 3
	case v <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
