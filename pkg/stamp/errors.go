package stamp

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrNoneType is returned when verifying a stamp of TypeNone.
	ErrNoneType = errors.New("stamp type is none")

	// ErrUnsupportedType is returned for stamp types this package cannot verify.
	ErrUnsupportedType = errors.New("unsupported stamp type")

	// ErrInvalidDigestScalar is returned when the payload digest is zero or not
	// below the curve order and therefore cannot act as a private scalar.
	ErrInvalidDigestScalar = errors.New("payload digest is not a valid scalar")

	// ErrDegenerateCombination is returned when destination + digest*G is the
	// point at infinity.
	ErrDegenerateCombination = errors.New("degenerate key combination")

	// ErrMissingOutput is returned when a claimed vout does not exist.
	ErrMissingOutput = errors.New("missing output")

	// ErrNotP2PKH is returned when a claimed output is not pay-to-pubkey-hash.
	ErrNotP2PKH = errors.New("output is not p2pkh")

	// ErrUnexpectedAddress is matched by every *UnexpectedAddressError.
	ErrUnexpectedAddress = errors.New("unexpected address")

	// ErrChildNumberOverflow is returned when a tx_num or vout does not fit a
	// normal child index.
	ErrChildNumberOverflow = errors.New("child number overflow")
)

// DecodeError is returned when a stamp transaction fails to decode.
type DecodeError struct {
	TxNum int
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding stamp tx %d: %v", e.TxNum, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// UnexpectedAddressError is returned when a claimed output pays a hash other
// than the one derived for its position.
type UnexpectedAddressError struct {
	TxNum    int
	Vout     uint32
	Actual   [20]byte // hash found in the output script
	Expected [20]byte // hash of the derived key
}

func (e *UnexpectedAddressError) Error() string {
	return fmt.Sprintf("unexpected address at tx %d vout %d: got %s, expected %s",
		e.TxNum, e.Vout, hex.EncodeToString(e.Actual[:]), hex.EncodeToString(e.Expected[:]))
}

func (e *UnexpectedAddressError) Unwrap() error {
	return ErrUnexpectedAddress
}

// KeyError is returned when sender-side key derivation fails.
type KeyError struct {
	TxNum int // -1 when the failure precedes per-transaction derivation
	Vout  uint32
	Cause error
}

func (e *KeyError) Error() string {
	if e.TxNum < 0 {
		return fmt.Sprintf("deriving stamp master key: %v", e.Cause)
	}
	return fmt.Sprintf("deriving stamp key for tx %d vout %d: %v", e.TxNum, e.Vout, e.Cause)
}

func (e *KeyError) Unwrap() error {
	return e.Cause
}
