// Package digest resolves the payload digest carried by relay messages and
// auth wrappers.
//
// Both envelopes carry an optional 32-byte SHA-256 digest next to an
// optional payload. A digest-only envelope references a payload stored
// elsewhere; a payload-only envelope has its digest computed on demand.
package digest

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
)

// Size is the length of a payload digest.
const Size = sha256.Size

var (
	// ErrDigestAndPayloadMissing is returned when neither a digest nor a
	// payload is present.
	ErrDigestAndPayloadMissing = errors.New("payload digest and payload missing")

	// ErrFraudulentDigest is returned when the supplied digest does not match
	// SHA256(payload).
	ErrFraudulentDigest = errors.New("fraudulent payload digest")

	// ErrUnexpectedLengthDigest is returned for digests that are neither
	// empty nor 32 bytes.
	ErrUnexpectedLengthDigest = errors.New("unexpected payload digest length")
)

// Resolve returns the digest of payload, checking it against supplied when
// both are present.
//
//	len(supplied)  payload    result
//	0              non-empty  SHA256(payload)
//	0              empty      ErrDigestAndPayloadMissing
//	32             non-empty  supplied if it equals SHA256(payload), else ErrFraudulentDigest
//	32             empty      supplied
//	other          any        ErrUnexpectedLengthDigest
func Resolve(supplied, payload []byte) ([Size]byte, error) {
	var out [Size]byte

	switch len(supplied) {
	case 0:
		if len(payload) == 0 {
			return out, ErrDigestAndPayloadMissing
		}
		return sha256.Sum256(payload), nil

	case Size:
		copy(out[:], supplied)
		if len(payload) == 0 {
			return out, nil
		}
		computed := sha256.Sum256(payload)
		if subtle.ConstantTimeCompare(computed[:], out[:]) != 1 {
			return [Size]byte{}, ErrFraudulentDigest
		}
		return out, nil

	default:
		return out, fmt.Errorf("%w: %d bytes", ErrUnexpectedLengthDigest, len(supplied))
	}
}
