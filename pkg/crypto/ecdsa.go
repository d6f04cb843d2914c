package crypto

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// CompactSignatureSize is the length of an r || s signature.
const CompactSignatureSize = 64

// ErrInvalidSignatureEncoding is returned for malformed compact signatures.
var ErrInvalidSignatureEncoding = errors.New("invalid signature encoding")

// Signature is a parsed ECDSA signature.
type Signature struct {
	sig *ecdsa.Signature
}

// SignCompact signs hash and returns the 64-byte r || s encoding used by
// auth wrappers.
func (pk *PrivateKey) SignCompact(hash [32]byte) [CompactSignatureSize]byte {
	// <recovery code><r><s>; the recovery code is not part of the wire form.
	recoverable := ecdsa.SignCompact(pk.key, hash[:], true)

	var out [CompactSignatureSize]byte
	copy(out[:], recoverable[1:])
	return out
}

// ParseCompactSignature parses a 64-byte r || s signature. Both halves must be
// non-zero scalars below the curve order.
func ParseCompactSignature(b []byte) (*Signature, error) {
	if len(b) != CompactSignatureSize {
		return nil, fmt.Errorf("%w: compact signature must be %d bytes, got %d",
			ErrInvalidSignatureEncoding, CompactSignatureSize, len(b))
	}

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(b[:32]); overflow || r.IsZero() {
		return nil, fmt.Errorf("%w: r out of range", ErrInvalidSignatureEncoding)
	}
	if overflow := s.SetByteSlice(b[32:]); overflow || s.IsZero() {
		return nil, fmt.Errorf("%w: s out of range", ErrInvalidSignatureEncoding)
	}
	return &Signature{sig: ecdsa.NewSignature(&r, &s)}, nil
}

// Verify reports whether the signature covers hash under pub.
func (s *Signature) Verify(hash [32]byte, pub *PublicKey) bool {
	return s.sig.Verify(hash[:], pub.key)
}

// Compact returns the 64-byte r || s encoding.
func (s *Signature) Compact() [CompactSignatureSize]byte {
	var out [CompactSignatureSize]byte
	r, sv := s.sig.R(), s.sig.S()
	r.PutBytesUnchecked(out[:32])
	sv.PutBytesUnchecked(out[32:])
	return out
}
