// Package bip32 implements hierarchical deterministic key derivation.
//
// Derivation follows BIP-32 on secp256k1: a 32-byte chain code accompanies
// each key and
//
//	I = HMAC-SHA512(key = chain_code, data)
//	child_key   = parent + I_L      (scalar or point tweak)
//	child_chain = I_R
//
// where data is serP(K) || ser32(i) for normal children and
// 0x00 || ser256(k) || ser32(i) for hardened children. In both cases i is the
// 31-bit index without the hardened marker bit. Public keys can only derive
// normal children.
//
// Reference: https://github.com/bitcoin/bips/blob/master/bip-0032.mediawiki
package bip32

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
)

// ChainCodeSize is the length of a chain code.
const ChainCodeSize = 32

// HardenedOffset is the top bit marking a hardened index in its raw form.
const HardenedOffset uint32 = 1 << 31

var (
	// ErrHardenedDerive is returned when deriving a hardened child from a
	// public key.
	ErrHardenedDerive = errors.New("cannot derive hardened child from public key")

	// ErrInvalidTweak is the sentinel matched by every *TweakError.
	ErrInvalidTweak = errors.New("invalid tweak")
)

// IndexError is returned when a child index does not fit in 31 bits.
type IndexError struct {
	Index uint32
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("child index %d out of range [0, 2^31)", e.Index)
}

// TweakError is returned when I_L is not a valid scalar or the tweaked key is
// degenerate.
type TweakError struct {
	Child ChildNumber
	Cause error
}

func (e *TweakError) Error() string {
	return fmt.Sprintf("invalid tweak deriving child %s: %v", e.Child, e.Cause)
}

func (e *TweakError) Unwrap() []error {
	return []error{ErrInvalidTweak, e.Cause}
}

// ChildNumber is a derivation index, either normal or hardened.
type ChildNumber struct {
	Index    uint32
	Hardened bool
}

// NormalChild returns a normal child number. Index must be below 2^31.
func NormalChild(index uint32) (ChildNumber, error) {
	if index&HardenedOffset != 0 {
		return ChildNumber{}, &IndexError{Index: index}
	}
	return ChildNumber{Index: index}, nil
}

// HardenedChild returns a hardened child number. Index must be below 2^31.
func HardenedChild(index uint32) (ChildNumber, error) {
	if index&HardenedOffset != 0 {
		return ChildNumber{}, &IndexError{Index: index}
	}
	return ChildNumber{Index: index, Hardened: true}, nil
}

// ChildNumberFromUint32 interprets the top bit as the hardened marker.
func ChildNumberFromUint32(raw uint32) ChildNumber {
	if raw&HardenedOffset != 0 {
		return ChildNumber{Index: raw ^ HardenedOffset, Hardened: true}
	}
	return ChildNumber{Index: raw}
}

// Uint32 returns the raw index, with the top bit set for hardened children.
func (c ChildNumber) Uint32() uint32 {
	if c.Hardened {
		return c.Index | HardenedOffset
	}
	return c.Index
}

func (c ChildNumber) String() string {
	if c.Hardened {
		return fmt.Sprintf("%d'", c.Index)
	}
	return fmt.Sprintf("%d", c.Index)
}

// ExtendedPublicKey is a public key paired with its chain code.
type ExtendedPublicKey struct {
	publicKey *crypto.PublicKey
	chainCode [ChainCodeSize]byte
}

// NewMasterPublicKey constructs a master extended public key.
func NewMasterPublicKey(publicKey *crypto.PublicKey, chainCode [ChainCodeSize]byte) *ExtendedPublicKey {
	return &ExtendedPublicKey{publicKey: publicKey, chainCode: chainCode}
}

// PublicKey returns the underlying public key.
func (k *ExtendedPublicKey) PublicKey() *crypto.PublicKey {
	return k.publicKey
}

// ChainCode returns the chain code.
func (k *ExtendedPublicKey) ChainCode() [ChainCodeSize]byte {
	return k.chainCode
}

// DerivePublicChild derives the child at a normal index.
func (k *ExtendedPublicKey) DerivePublicChild(child ChildNumber) (*ExtendedPublicKey, error) {
	if child.Hardened {
		return nil, ErrHardenedDerive
	}

	data := make([]byte, 0, crypto.PublicKeySize+4)
	data = append(data, k.publicKey.Bytes()...)
	data = binary.BigEndian.AppendUint32(data, child.Index)
	tweak, chainCode := hmacSplit(k.chainCode, data)

	publicKey, err := k.publicKey.AddExp(tweak)
	if err != nil {
		return nil, &TweakError{Child: child, Cause: err}
	}
	return &ExtendedPublicKey{publicKey: publicKey, chainCode: chainCode}, nil
}

// DerivePublicPath folds DerivePublicChild over path. An empty path returns a
// copy of k.
func (k *ExtendedPublicKey) DerivePublicPath(path []ChildNumber) (*ExtendedPublicKey, error) {
	current := &ExtendedPublicKey{publicKey: k.publicKey, chainCode: k.chainCode}
	for i, child := range path {
		next, err := current.DerivePublicChild(child)
		if err != nil {
			return nil, fmt.Errorf("path element %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}

// ExtendedPrivateKey is a private key paired with its chain code.
type ExtendedPrivateKey struct {
	privateKey *crypto.PrivateKey
	chainCode  [ChainCodeSize]byte
}

// NewMasterPrivateKey constructs a master extended private key.
func NewMasterPrivateKey(privateKey *crypto.PrivateKey, chainCode [ChainCodeSize]byte) *ExtendedPrivateKey {
	return &ExtendedPrivateKey{privateKey: privateKey, chainCode: chainCode}
}

// PrivateKey returns the underlying private key.
func (k *ExtendedPrivateKey) PrivateKey() *crypto.PrivateKey {
	return k.privateKey
}

// ChainCode returns the chain code.
func (k *ExtendedPrivateKey) ChainCode() [ChainCodeSize]byte {
	return k.chainCode
}

// ExtendedPublicKey returns the public counterpart sharing the chain code.
func (k *ExtendedPrivateKey) ExtendedPublicKey() *ExtendedPublicKey {
	return &ExtendedPublicKey{publicKey: k.privateKey.PublicKey(), chainCode: k.chainCode}
}

// Equal reports whether both keys hold the same scalar and chain code.
func (k *ExtendedPrivateKey) Equal(other *ExtendedPrivateKey) bool {
	return k.chainCode == other.chainCode && k.privateKey.Equal(other.privateKey)
}

// DerivePrivateChild derives a normal or hardened child.
func (k *ExtendedPrivateKey) DerivePrivateChild(child ChildNumber) (*ExtendedPrivateKey, error) {
	data := make([]byte, 0, 1+crypto.PrivateKeySize+4)
	if child.Hardened {
		data = append(data, 0x00)
		data = append(data, k.privateKey.Bytes()...)
	} else {
		data = append(data, k.privateKey.PublicKey().Bytes()...)
	}
	data = binary.BigEndian.AppendUint32(data, child.Index)
	tweak, chainCode := hmacSplit(k.chainCode, data)

	privateKey, err := k.privateKey.Add(tweak)
	if err != nil {
		return nil, &TweakError{Child: child, Cause: err}
	}
	return &ExtendedPrivateKey{privateKey: privateKey, chainCode: chainCode}, nil
}

// DerivePrivatePath folds DerivePrivateChild over path. An empty path returns
// a copy of k.
func (k *ExtendedPrivateKey) DerivePrivatePath(path []ChildNumber) (*ExtendedPrivateKey, error) {
	current := &ExtendedPrivateKey{privateKey: k.privateKey, chainCode: k.chainCode}
	for i, child := range path {
		next, err := current.DerivePrivateChild(child)
		if err != nil {
			return nil, fmt.Errorf("path element %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}

// hmacSplit computes HMAC-SHA512(chainCode, data) and splits it into I_L and
// I_R.
func hmacSplit(chainCode [ChainCodeSize]byte, data []byte) (il, ir [32]byte) {
	mac := hmac.New(sha512.New, chainCode[:])
	mac.Write(data)
	sum := mac.Sum(nil)
	copy(il[:], sum[:32])
	copy(ir[:], sum[32:])
	return il, ir
}
