package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestReaderFields(t *testing.T) {
	var b []byte
	b = AppendBytes(b, 1, []byte{0xaa, 0xbb})
	b = AppendVarint(b, 2, 300)
	b = AppendString(b, 3, "kind")
	b = AppendPackedUint32s(b, 4, []uint32{1, 500})
	// Unpacked element of the same repeated field.
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	// Unknown fixed64 field.
	b = protowire.AppendTag(b, 9, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 42)

	r := NewReader(b)
	var (
		raw   []byte
		n     uint64
		s     string
		vouts []uint32
	)
	for r.More() {
		num, typ, err := r.Next()
		require.NoError(t, err)
		switch num {
		case 1:
			raw, err = r.Bytes(typ)
		case 2:
			n, err = r.Varint(typ)
		case 3:
			s, err = r.String(typ)
		case 4:
			vouts, err = r.Uint32s(typ, vouts)
		default:
			err = r.Skip(num, typ)
		}
		require.NoError(t, err)
	}

	assert.Equal(t, []byte{0xaa, 0xbb}, raw)
	assert.Equal(t, uint64(300), n)
	assert.Equal(t, "kind", s)
	assert.Equal(t, []uint32{1, 500, 7}, vouts)
}

func TestReaderErrors(t *testing.T) {
	b := AppendVarint(nil, 1, 5)
	r := NewReader(b)
	_, typ, err := r.Next()
	require.NoError(t, err)
	_, err = r.Bytes(typ)
	assert.ErrorIs(t, err, ErrWireType)

	// Length prefix runs past the end.
	r = NewReader([]byte{0x0a, 0x05, 0x01})
	_, typ, err = r.Next()
	require.NoError(t, err)
	_, err = r.Bytes(typ)
	assert.Error(t, err)

	_, _, err = NewReader([]byte{0x80}).Next()
	assert.Error(t, err)
}

func TestZeroValuesOmitted(t *testing.T) {
	var b []byte
	b = AppendBytes(b, 1, nil)
	b = AppendVarint(b, 2, 0)
	b = AppendString(b, 3, "")
	b = AppendPackedUint32s(b, 4, nil)
	assert.Empty(t, b)

	assert.NotEmpty(t, AppendMessage(nil, 5, nil))
}
