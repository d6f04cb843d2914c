// Package stamp binds relay messages to Bitcoin transaction outputs.
//
// A stamp proves the sender paid to addresses derived from both the payload
// digest and the recipient's public key, so a stamp cannot be replayed for a
// different message or recipient. The address tree is
//
//	combined = destination + digest*G
//	master   = (combined, chain code = digest)
//	output   = master / 44 / 145 / tx_num / vout
//
// with every step a normal BIP32 derivation. The recipient verifies with the
// public tree (Verify); the sender derives the same tree from its key
// material (CreatePrivateKeys, DeriveOutputKeys).
package stamp

import (
	"fmt"

	"github.com/suffix-labs/cashweb-relay/pkg/bip32"
	"github.com/suffix-labs/cashweb-relay/pkg/bitcoin"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
)

// Type identifies how a stamp commits to the message. It is carried as the
// stamp_type field of the wire Stamp.
type Type int32

const (
	// TypeNone marks an unstamped message. It parses, but Verify always
	// rejects it with ErrNoneType.
	TypeNone Type = 0
	// TypeMessageCommitment stamps pay P2PKH outputs derived from the
	// payload digest and the destination key.
	TypeMessageCommitment Type = 1
)

// ParseType converts a wire value into a Type.
func ParseType(v int32) (Type, error) {
	switch t := Type(v); t {
	case TypeNone, TypeMessageCommitment:
		return t, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedType, v)
	}
}

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "NONE"
	case TypeMessageCommitment:
		return "MESSAGE_COMMITMENT"
	default:
		return fmt.Sprintf("Type(%d)", int32(t))
	}
}

// PathPrefix is the fixed derivation prefix below the stamp master key.
var PathPrefix = [2]uint32{44, 145}

// Outpoints is one stamp transaction and the output indices it pays.
//
// StampTx is the raw serialized transaction; it is only decoded during
// verification. Each vout is both an index into the transaction's outputs
// and the last normal child index of that output's derivation path.
type Outpoints struct {
	StampTx []byte
	Vouts   []uint32
}

// Stamp is the ordered list of stamp transactions of a message. The position
// of each entry is its tx_num in the derivation path.
type Stamp struct {
	Type      Type
	Outpoints []Outpoints
}

// Verify checks the stamp against a payload digest and recipient.
func (s *Stamp) Verify(payloadDigest [32]byte, destination *crypto.PublicKey) ([]*bitcoin.Transaction, error) {
	return Verify(s.Outpoints, payloadDigest, destination, s.Type)
}

func prefixPath() []bip32.ChildNumber {
	return []bip32.ChildNumber{
		{Index: PathPrefix[0]},
		{Index: PathPrefix[1]},
	}
}

// child returns the normal child number for a tx_num or vout.
func child(index uint64) (bip32.ChildNumber, error) {
	if index >= uint64(bip32.HardenedOffset) {
		return bip32.ChildNumber{}, fmt.Errorf("%w: %d", ErrChildNumberOverflow, index)
	}
	return bip32.ChildNumber{Index: uint32(index)}, nil
}
