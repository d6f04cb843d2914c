package relay

import (
	"crypto/rand"
	"fmt"

	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
	"github.com/suffix-labs/cashweb-relay/pkg/digest"
	"github.com/suffix-labs/cashweb-relay/pkg/stamp"
)

// SaltSize is the length of salts generated by Seal.
const SaltSize = 32

// StampFunc builds the stamp for a sealed payload digest. The sender funds
// the outputs returned by stamp.OutputScripts for that digest and passes the
// resulting transactions back here.
type StampFunc func(payloadDigest [digest.Size]byte) (*stamp.Stamp, error)

// SealParams describes a message to seal.
type SealParams struct {
	Source       *crypto.PrivateKey
	Destination  *crypto.PublicKey
	Payload      *Payload
	Scheme       EncryptionScheme
	Salt         []byte // random SaltSize bytes when nil
	ReceivedTime int64
	Stamp        StampFunc
}

// Seal builds a message that the holder of the destination private key can
// Open.
//
// A stamp is required: Open rejects every message without a funded stamp, so
// Seal fails with ErrMissingStamp rather than produce one. Callers that only
// need the digest to fund can return an error of their own from Stamp.
func Seal(params SealParams) (*Message, error) {
	if params.Source == nil || params.Destination == nil || params.Payload == nil {
		return nil, fmt.Errorf("seal: source, destination and payload are required")
	}
	if params.Stamp == nil {
		return nil, ErrMissingStamp
	}

	salt := params.Salt
	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generating salt: %w", err)
		}
	}

	sharedKey, err := CreateSharedKey(params.Destination, params.Source, salt)
	if err != nil {
		return nil, err
	}
	defer clear(sharedKey[:])

	body := params.Payload.Marshal()
	switch params.Scheme {
	case SchemeNone:
	case SchemeEphemeralDH:
		if body, err = EncryptPayloadInPlace(sharedKey, body); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: scheme %s", ErrUnsupportedStampType, params.Scheme)
	}

	payloadDigest, err := digest.Resolve(nil, body)
	if err != nil {
		return nil, err
	}
	payloadHmac := PayloadHmac(sharedKey, payloadDigest)

	s, err := params.Stamp(payloadDigest)
	if err != nil {
		return nil, fmt.Errorf("building stamp: %w", err)
	}
	if s == nil {
		return nil, ErrMissingStamp
	}

	return &Message{
		SourcePublicKey:      params.Source.PublicKey().Bytes(),
		DestinationPublicKey: params.Destination.Bytes(),
		ReceivedTime:         params.ReceivedTime,
		PayloadDigest:        payloadDigest[:],
		Stamp:                NewStamp(s),
		Scheme:               params.Scheme,
		Salt:                 salt,
		PayloadHmac:          payloadHmac[:],
		PayloadSize:          uint64(len(body)),
		Payload:              body,
	}, nil
}
