// Package relay parses, seals and opens relay protocol messages.
//
// A message travels as wire bytes, is decoded into a Message, validated into
// a ParsedMessage and finally opened:
//
//	Message --Parse--> ParsedMessage --Open(priv)--> Opened{Txs, Payload}
//
// Opening verifies the stamp, derives the shared key, authenticates the
// payload digest and only then decrypts and decodes the payload. A failure at
// any stage is an *OpenError naming that stage, so callers can tell an
// unpaid message from one addressed to someone else.
//
// The sender side mirrors this. Seal encrypts the payload, computes its
// digest and HMAC, and asks a StampFunc for a stamp funded against that
// digest. The outputs to fund come from stamp.OutputScripts.
//
// Mailbox pages are handled by MessagePage. PayloadPage strips a page down to
// the raw payload bytes without a key, while OpenPage and OpenBatch open
// messages for their recipient.
package relay

import (
	"errors"
	"fmt"

	"github.com/suffix-labs/cashweb-relay/pkg/bitcoin"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
	"github.com/suffix-labs/cashweb-relay/pkg/digest"
	"github.com/suffix-labs/cashweb-relay/pkg/stamp"
)

// HmacSize is the length of payload_hmac.
const HmacSize = 32

// Digest errors shared with the auth wrapper.
var (
	ErrDigestAndPayloadMissing = digest.ErrDigestAndPayloadMissing
	ErrFraudulentDigest        = digest.ErrFraudulentDigest
	ErrUnexpectedLengthDigest  = digest.ErrUnexpectedLengthDigest
)

var (
	// ErrMissingStamp is returned when a message carries no stamp.
	ErrMissingStamp = errors.New("missing stamp")

	// ErrUnsupportedStampType is returned for unknown encryption schemes and
	// stamp types.
	ErrUnsupportedStampType = errors.New("unsupported stamp type")

	// ErrUnexpectedLengthPayloadHmac is returned when payload_hmac is not 32
	// bytes.
	ErrUnexpectedLengthPayloadHmac = errors.New("unexpected payload hmac length")
)

// Public key fields named by PublicKeyError.
const (
	FieldSourcePublicKey      = "source_public_key"
	FieldDestinationPublicKey = "destination_public_key"
)

// PublicKeyError is returned when a public key field does not parse.
type PublicKeyError struct {
	Field string
	Cause error
}

func (e *PublicKeyError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Cause)
}

func (e *PublicKeyError) Unwrap() error {
	return e.Cause
}

// ParsedMessage is a validated message.
type ParsedMessage struct {
	SourcePublicKey      *crypto.PublicKey
	DestinationPublicKey *crypto.PublicKey
	ReceivedTime         int64
	PayloadDigest        [digest.Size]byte
	Stamp                *stamp.Stamp
	Scheme               EncryptionScheme
	Salt                 []byte
	PayloadHmac          [HmacSize]byte
	PayloadSize          uint64
	Payload              []byte
}

// Digest resolves the payload digest of m.
func (m *Message) Digest() ([digest.Size]byte, error) {
	return digest.Resolve(m.PayloadDigest, m.Payload)
}

// Parse validates m.
//
// Returns an error if:
//   - a public key is malformed (*PublicKeyError)
//   - the digest is missing, fraudulent or the wrong length
//   - the stamp is absent (ErrMissingStamp)
//   - the scheme or stamp type is unknown (ErrUnsupportedStampType)
//   - payload_hmac is not 32 bytes (ErrUnexpectedLengthPayloadHmac)
func (m *Message) Parse() (*ParsedMessage, error) {
	source, err := crypto.ParsePublicKey(m.SourcePublicKey)
	if err != nil {
		return nil, &PublicKeyError{Field: FieldSourcePublicKey, Cause: err}
	}
	destination, err := crypto.ParsePublicKey(m.DestinationPublicKey)
	if err != nil {
		return nil, &PublicKeyError{Field: FieldDestinationPublicKey, Cause: err}
	}

	payloadDigest, err := m.Digest()
	if err != nil {
		return nil, err
	}

	if m.Stamp == nil {
		return nil, ErrMissingStamp
	}

	switch m.Scheme {
	case SchemeNone, SchemeEphemeralDH:
	default:
		return nil, fmt.Errorf("%w: scheme %s", ErrUnsupportedStampType, m.Scheme)
	}

	parsedStamp, err := m.Stamp.Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedStampType, err)
	}

	if len(m.PayloadHmac) != HmacSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrUnexpectedLengthPayloadHmac, len(m.PayloadHmac))
	}

	parsed := &ParsedMessage{
		SourcePublicKey:      source,
		DestinationPublicKey: destination,
		ReceivedTime:         m.ReceivedTime,
		PayloadDigest:        payloadDigest,
		Stamp:                parsedStamp,
		Scheme:               m.Scheme,
		Salt:                 m.Salt,
		PayloadSize:          m.PayloadSize,
		Payload:              m.Payload,
	}
	copy(parsed.PayloadHmac[:], m.PayloadHmac)
	return parsed, nil
}

// Message returns the wire form of p. The digest is always written.
func (p *ParsedMessage) Message() *Message {
	return &Message{
		SourcePublicKey:      p.SourcePublicKey.Bytes(),
		DestinationPublicKey: p.DestinationPublicKey.Bytes(),
		ReceivedTime:         p.ReceivedTime,
		PayloadDigest:        append([]byte(nil), p.PayloadDigest[:]...),
		Stamp:                NewStamp(p.Stamp),
		Scheme:               p.Scheme,
		Salt:                 p.Salt,
		PayloadHmac:          append([]byte(nil), p.PayloadHmac[:]...),
		PayloadSize:          p.PayloadSize,
		Payload:              p.Payload,
	}
}

// VerifyStamp checks the stamp against the payload digest and destination.
func (p *ParsedMessage) VerifyStamp() ([]*bitcoin.Transaction, error) {
	return p.Stamp.Verify(p.PayloadDigest, p.DestinationPublicKey)
}
