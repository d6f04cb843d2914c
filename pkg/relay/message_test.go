package relay

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/cashweb-relay/pkg/bitcoin"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
	"github.com/suffix-labs/cashweb-relay/pkg/digest"
	"github.com/suffix-labs/cashweb-relay/pkg/stamp"
)

type parties struct {
	source      *crypto.PrivateKey
	destination *crypto.PrivateKey
}

func newParties(t *testing.T) parties {
	t.Helper()
	source, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	destination, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return parties{source: source, destination: destination}
}

// fundStamp pays every derived stamp output, one output per transaction entry.
func fundStamp(destination *crypto.PublicKey, profile []uint32) StampFunc {
	return func(payloadDigest [digest.Size]byte) (*stamp.Stamp, error) {
		scripts, err := stamp.OutputScripts(destination, payloadDigest, profile)
		if err != nil {
			return nil, err
		}

		txs := make([]*bitcoin.Transaction, len(scripts))
		for i, txScripts := range scripts {
			tx := &bitcoin.Transaction{
				Version: 2,
				Inputs: []bitcoin.Input{{
					Outpoint: bitcoin.Outpoint{TxID: sha256.Sum256([]byte{byte(i)})},
					Sequence: 0xffffffff,
				}},
			}
			for _, s := range txScripts {
				tx.Outputs = append(tx.Outputs, bitcoin.Output{Value: 1000, Script: s})
			}
			txs[i] = tx
		}

		outpoints, err := stamp.BuildOutpoints(txs, profile)
		if err != nil {
			return nil, err
		}
		return &stamp.Stamp{Type: stamp.TypeMessageCommitment, Outpoints: outpoints}, nil
	}
}

func testPayload() *Payload {
	return &Payload{
		Timestamp: 1700000000000,
		Entries: []*PayloadEntry{
			{
				Kind:      "text-utf8",
				Headers:   []*Header{{Name: "lang", Value: "en"}},
				EntryData: []byte("hello from the relay"),
			},
			{Kind: "reply", EntryData: []byte{0x01, 0x02}},
		},
	}
}

func sealed(t *testing.T, p parties, scheme EncryptionScheme) *Message {
	t.Helper()
	msg, err := Seal(SealParams{
		Source:       p.source,
		Destination:  p.destination.PublicKey(),
		Payload:      testPayload(),
		Scheme:       scheme,
		ReceivedTime: 42,
		Stamp:        fundStamp(p.destination.PublicKey(), []uint32{2, 1}),
	})
	require.NoError(t, err)
	return msg
}

func TestMessageWireRoundTrip(t *testing.T) {
	msg := sealed(t, newParties(t), SchemeEphemeralDH)

	decoded := &Message{}
	require.NoError(t, decoded.Unmarshal(msg.Marshal()))
	assert.Equal(t, msg, decoded)
	assert.Len(t, decoded.Stamp.StampOutpoints, 2)
	assert.Equal(t, []uint32{0, 1}, decoded.Stamp.StampOutpoints[0].Vouts)
}

func TestMessageUnmarshalErrors(t *testing.T) {
	msg := sealed(t, newParties(t), SchemeEphemeralDH).Marshal()

	assert.Error(t, (&Message{}).Unmarshal(msg[:len(msg)-1]))
	// Field 1 as a varint.
	assert.Error(t, (&Message{}).Unmarshal([]byte{0x08, 0x01}))
}

func TestParseDigestRoundTrip(t *testing.T) {
	msg := sealed(t, newParties(t), SchemeEphemeralDH)

	parsed, err := msg.Parse()
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(msg.Payload), parsed.PayloadDigest)

	// Digest derived from the payload when absent.
	msg.PayloadDigest = nil
	parsed, err = msg.Parse()
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(msg.Payload), parsed.PayloadDigest)

	for bit := 0; bit < 8; bit++ {
		flipped := sha256.Sum256(msg.Payload)
		flipped[bit*4] ^= 1 << bit
		msg.PayloadDigest = flipped[:]
		_, err = msg.Parse()
		assert.ErrorIs(t, err, ErrFraudulentDigest)
	}
}

func TestParseDigestOnly(t *testing.T) {
	msg := sealed(t, newParties(t), SchemeEphemeralDH)
	want := sha256.Sum256(msg.Payload)
	msg.Payload = nil

	parsed, err := msg.Parse()
	require.NoError(t, err)
	assert.Equal(t, want, parsed.PayloadDigest)
}

func TestParseErrors(t *testing.T) {
	p := newParties(t)

	tests := []struct {
		name    string
		mutate  func(m *Message)
		wantErr error
	}{
		{"digest and payload missing", func(m *Message) { m.PayloadDigest, m.Payload = nil, nil }, ErrDigestAndPayloadMissing},
		{"short digest", func(m *Message) { m.PayloadDigest = m.PayloadDigest[:16] }, ErrUnexpectedLengthDigest},
		{"missing stamp", func(m *Message) { m.Stamp = nil }, ErrMissingStamp},
		{"unknown scheme", func(m *Message) { m.Scheme = 9 }, ErrUnsupportedStampType},
		{"unknown stamp type", func(m *Message) { m.Stamp.StampType = 4 }, ErrUnsupportedStampType},
		{"short hmac", func(m *Message) { m.PayloadHmac = m.PayloadHmac[:31] }, ErrUnexpectedLengthPayloadHmac},
		{"missing hmac", func(m *Message) { m.PayloadHmac = nil }, ErrUnexpectedLengthPayloadHmac},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := sealed(t, p, SchemeEphemeralDH)
			tt.mutate(msg)
			_, err := msg.Parse()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParsePublicKeyErrors(t *testing.T) {
	msg := sealed(t, newParties(t), SchemeEphemeralDH)
	msg.SourcePublicKey = []byte{0x02, 0x01}

	_, err := msg.Parse()
	var keyErr *PublicKeyError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, FieldSourcePublicKey, keyErr.Field)

	msg = sealed(t, newParties(t), SchemeEphemeralDH)
	msg.DestinationPublicKey = nil
	_, err = msg.Parse()
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, FieldDestinationPublicKey, keyErr.Field)
}

func TestParsedMessageRoundTrip(t *testing.T) {
	msg := sealed(t, newParties(t), SchemeEphemeralDH)
	parsed, err := msg.Parse()
	require.NoError(t, err)

	assert.Equal(t, msg, parsed.Message())
}
