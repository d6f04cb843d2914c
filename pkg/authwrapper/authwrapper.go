// Package authwrapper parses and verifies signed auth wrappers.
//
// An auth wrapper carries a payload (or only its digest), the signer's
// public key and a signature over the SHA-256 payload digest. Keyserver
// entries and relay profiles travel inside one.
package authwrapper

import (
	"errors"
	"fmt"

	"github.com/suffix-labs/cashweb-relay/internal/wire"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
	"github.com/suffix-labs/cashweb-relay/pkg/digest"
)

// SignatureScheme identifies the signature algorithm.
type SignatureScheme int32

const (
	// SchemeSchnorr is the wire default. Wrappers using it parse, but Verify
	// rejects them with ErrUnsupportedScheme.
	SchemeSchnorr SignatureScheme = 0
	// SchemeECDSA is a 64-byte r || s secp256k1 ECDSA signature over the
	// payload digest.
	SchemeECDSA SignatureScheme = 1
)

func (s SignatureScheme) String() string {
	switch s {
	case SchemeSchnorr:
		return "SCHNORR"
	case SchemeECDSA:
		return "ECDSA"
	default:
		return fmt.Sprintf("SignatureScheme(%d)", int32(s))
	}
}

// Field names reported by FieldError.
const (
	FieldPublicKey = "public_key"
	FieldSignature = "signature"
)

var (
	// ErrUnsupportedScheme is returned for unknown schemes at parse time and
	// for Schnorr at verify time.
	ErrUnsupportedScheme = errors.New("unsupported signature scheme")

	// ErrInvalidSignature is returned when the signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
)

// FieldError is returned when a key or signature field is malformed.
type FieldError struct {
	Field string
	Cause error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Cause)
}

func (e *FieldError) Unwrap() error {
	return e.Cause
}

// AuthWrapper is the wire form.
//
// Either Payload or PayloadDigest may be empty. When both are set the digest
// must be the SHA-256 of the payload, which lets a server store the payload
// separately and still hand out a verifiable wrapper.
type AuthWrapper struct {
	PublicKey     []byte          // 1
	Signature     []byte          // 2
	Scheme        SignatureScheme // 3
	Payload       []byte          // 4
	PayloadDigest []byte          // 5
}

// ParsedAuthWrapper is a validated auth wrapper. Its key and signature are
// well formed, but the signature has not been checked until Verify.
type ParsedAuthWrapper struct {
	PublicKey     *crypto.PublicKey
	Signature     *crypto.Signature
	Scheme        SignatureScheme
	Payload       []byte
	PayloadDigest [digest.Size]byte
}

// Parse validates w.
func (w *AuthWrapper) Parse() (*ParsedAuthWrapper, error) {
	publicKey, err := crypto.ParsePublicKey(w.PublicKey)
	if err != nil {
		return nil, &FieldError{Field: FieldPublicKey, Cause: err}
	}

	switch w.Scheme {
	case SchemeSchnorr, SchemeECDSA:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, w.Scheme)
	}

	signature, err := crypto.ParseCompactSignature(w.Signature)
	if err != nil {
		return nil, &FieldError{Field: FieldSignature, Cause: err}
	}

	payloadDigest, err := digest.Resolve(w.PayloadDigest, w.Payload)
	if err != nil {
		return nil, err
	}

	return &ParsedAuthWrapper{
		PublicKey:     publicKey,
		Signature:     signature,
		Scheme:        w.Scheme,
		Payload:       w.Payload,
		PayloadDigest: payloadDigest,
	}, nil
}

// Verify checks the signature over the payload digest.
func (p *ParsedAuthWrapper) Verify() error {
	if p.Scheme != SchemeECDSA {
		return fmt.Errorf("%w: %s", ErrUnsupportedScheme, p.Scheme)
	}
	if !p.Signature.Verify(p.PayloadDigest, p.PublicKey) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign wraps payload in an ECDSA auth wrapper signed by priv.
func Sign(priv *crypto.PrivateKey, payload []byte) (*AuthWrapper, error) {
	payloadDigest, err := digest.Resolve(nil, payload)
	if err != nil {
		return nil, err
	}
	signature := priv.SignCompact(payloadDigest)

	return &AuthWrapper{
		PublicKey:     priv.PublicKey().Bytes(),
		Signature:     signature[:],
		Scheme:        SchemeECDSA,
		Payload:       payload,
		PayloadDigest: payloadDigest[:],
	}, nil
}

// Marshal encodes w.
func (w *AuthWrapper) Marshal() []byte {
	var b []byte
	b = wire.AppendBytes(b, 1, w.PublicKey)
	b = wire.AppendBytes(b, 2, w.Signature)
	b = wire.AppendVarint(b, 3, uint64(int64(w.Scheme)))
	b = wire.AppendBytes(b, 4, w.Payload)
	return wire.AppendBytes(b, 5, w.PayloadDigest)
}

// Unmarshal decodes b into w.
func (w *AuthWrapper) Unmarshal(b []byte) error {
	*w = AuthWrapper{}
	r := wire.NewReader(b)
	for r.More() {
		num, typ, err := r.Next()
		if err != nil {
			return fmt.Errorf("decoding auth wrapper: %w", err)
		}

		switch num {
		case 1:
			w.PublicKey, err = r.Bytes(typ)
		case 2:
			w.Signature, err = r.Bytes(typ)
		case 3:
			var v uint64
			v, err = r.Varint(typ)
			w.Scheme = SignatureScheme(int32(v))
		case 4:
			w.Payload, err = r.Bytes(typ)
		case 5:
			w.PayloadDigest, err = r.Bytes(typ)
		default:
			err = r.Skip(num, typ)
		}
		if err != nil {
			return fmt.Errorf("decoding auth wrapper field %d: %w", num, err)
		}
	}
	return nil
}
