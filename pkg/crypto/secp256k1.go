// Package crypto implements the secp256k1 primitives used by the relay
// protocol.
//
// Relay messages, stamps and auth wrappers are all keyed on Bitcoin-style
// secp256k1 keys. This package wraps the decred implementation with the
// handful of point and scalar operations the protocol needs: tweak-addition
// for hierarchical derivation, point combination for stamp master keys, and
// point multiplication for the Diffie-Hellman merged key.
//
// Key formats:
//   - Private keys: raw 32 bytes (big-endian scalar) or WIF
//   - Public keys: 33-byte compressed SEC1 (0x02/0x03 prefix + x-coordinate)
//   - Signatures: 64-byte compact (r || s)
//
// Every degenerate case (zero scalar, scalar >= n, point at infinity) is
// returned as an error. Nothing here panics on attacker-controlled input.
package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"
)

const (
	// PrivateKeySize is the length of a serialized private scalar.
	PrivateKeySize = 32

	// PublicKeySize is the length of a compressed public key.
	PublicKeySize = 33
)

var (
	// ErrInvalidScalar is returned when 32 bytes do not encode a scalar in
	// [1, n-1].
	ErrInvalidScalar = errors.New("invalid scalar")

	// ErrZeroScalar is returned when a scalar addition wraps to zero.
	ErrZeroScalar = errors.New("scalar addition produced zero")

	// ErrPointAtInfinity is returned when a point operation produces the
	// identity element, which has no serialization.
	ErrPointAtInfinity = errors.New("point at infinity")
)

// PrivateKey wraps secp256k1 private key
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey wraps secp256k1 public key
type PublicKey struct {
	key *secp256k1.PublicKey
}

// GeneratePrivateKey returns a new random private key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generating private key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a private key from raw bytes.
//
// Unlike secp256k1.PrivKeyFromBytes the value is not reduced: anything
// outside [1, n-1] is rejected with ErrInvalidScalar.
func PrivateKeyFromBytes(keyBytes []byte) (*PrivateKey, error) {
	if len(keyBytes) != PrivateKeySize {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(keyBytes))
	}

	scalar, err := parseScalar(keyBytes)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(scalar)}, nil
}

// parseScalar interprets b as a big-endian scalar in [1, n-1].
func parseScalar(b []byte) (*secp256k1.ModNScalar, error) {
	if len(b) != PrivateKeySize {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidScalar, len(b))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow {
		return nil, fmt.Errorf("%w: not below curve order", ErrInvalidScalar)
	}
	if s.IsZero() {
		return nil, fmt.Errorf("%w: zero", ErrInvalidScalar)
	}
	return &s, nil
}

// PublicKey derives the public key
func (pk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: pk.key.PubKey()}
}

// Bytes returns the raw 32-byte private key
func (pk *PrivateKey) Bytes() []byte {
	return pk.key.Serialize()
}

// Scalar returns the private key as a fixed-size big-endian array.
func (pk *PrivateKey) Scalar() [32]byte {
	return pk.key.Key.Bytes()
}

// Equal reports whether both keys hold the same scalar.
func (pk *PrivateKey) Equal(other *PrivateKey) bool {
	return pk.key.Key.Equals(&other.key.Key)
}

// Add returns (pk + tweak) mod n as a new key. The receiver is unchanged.
func (pk *PrivateKey) Add(tweak [32]byte) (*PrivateKey, error) {
	var t secp256k1.ModNScalar
	if overflow := t.SetBytes(&tweak); overflow != 0 {
		return nil, fmt.Errorf("%w: tweak not below curve order", ErrInvalidScalar)
	}

	var sum secp256k1.ModNScalar
	sum.Add2(&pk.key.Key, &t)
	if sum.IsZero() {
		return nil, ErrZeroScalar
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&sum)}, nil
}

// Zero clears the private scalar from memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// SerializeCompressed returns the 33-byte compressed public key
func (pub *PublicKey) SerializeCompressed() [33]byte {
	var result [33]byte
	copy(result[:], pub.key.SerializeCompressed())
	return result
}

// Bytes returns the compressed public key bytes
func (pub *PublicKey) Bytes() []byte {
	return pub.key.SerializeCompressed()
}

// Equal reports whether both keys are the same curve point.
func (pub *PublicKey) Equal(other *PublicKey) bool {
	return pub.key.IsEqual(other.key)
}

// ParsePublicKey parses a SEC1 encoded public key. Both the compressed and
// uncompressed forms are accepted.
func ParsePublicKey(pubKeyBytes []byte) (*PublicKey, error) {
	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return &PublicKey{key: pubKey}, nil
}

// Combine returns pub + other.
//
// ErrPointAtInfinity is returned when other is the negation of pub.
func (pub *PublicKey) Combine(other *PublicKey) (*PublicKey, error) {
	var p1, p2, sum secp256k1.JacobianPoint
	pub.key.AsJacobian(&p1)
	other.key.AsJacobian(&p2)
	secp256k1.AddNonConst(&p1, &p2, &sum)
	return fromJacobian(&sum)
}

// AddExp returns pub + tweak*G, the public half of Add.
func (pub *PublicKey) AddExp(tweak [32]byte) (*PublicKey, error) {
	var t secp256k1.ModNScalar
	if overflow := t.SetBytes(&tweak); overflow != 0 {
		return nil, fmt.Errorf("%w: tweak not below curve order", ErrInvalidScalar)
	}

	var p, tG, sum secp256k1.JacobianPoint
	pub.key.AsJacobian(&p)
	secp256k1.ScalarBaseMultNonConst(&t, &tG)
	secp256k1.AddNonConst(&p, &tG, &sum)
	return fromJacobian(&sum)
}

// Mul returns scalar*pub. The scalar must be a valid private key encoding.
func (pub *PublicKey) Mul(scalar []byte) (*PublicKey, error) {
	s, err := parseScalar(scalar)
	if err != nil {
		return nil, err
	}

	var p, product secp256k1.JacobianPoint
	pub.key.AsJacobian(&p)
	secp256k1.ScalarMultNonConst(s, &p, &product)
	s.Zero()
	return fromJacobian(&product)
}

// PublicKeyFromScalar returns scalar*G.
func PublicKeyFromScalar(scalar [32]byte) (*PublicKey, error) {
	priv, err := PrivateKeyFromBytes(scalar[:])
	if err != nil {
		return nil, err
	}
	return priv.PublicKey(), nil
}

func fromJacobian(p *secp256k1.JacobianPoint) (*PublicKey, error) {
	if isInfinity(p) {
		return nil, ErrPointAtInfinity
	}
	p.ToAffine()
	return &PublicKey{key: secp256k1.NewPublicKey(&p.X, &p.Y)}, nil
}

func isInfinity(p *secp256k1.JacobianPoint) bool {
	return (p.X.IsZero() && p.Y.IsZero()) || p.Z.IsZero()
}

// Hash160 returns RIPEMD160(SHA256(data)), the hash committed to by P2PKH
// scripts.
func Hash160(data []byte) [20]byte {
	sha := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sha[:])

	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Hash160 returns the hash of the compressed serialization of pub.
func (pub *PublicKey) Hash160() [20]byte {
	return Hash160(pub.key.SerializeCompressed())
}
