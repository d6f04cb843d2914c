package stamp

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/suffix-labs/cashweb-relay/internal/log"
	"github.com/suffix-labs/cashweb-relay/pkg/bip32"
	"github.com/suffix-labs/cashweb-relay/pkg/bitcoin"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
)

// Verify checks that every claimed output pays the address derived for its
// position and returns the decoded transactions in order.
//
// Verification stops at the first failure. Returns an error if:
//   - t is TypeNone (ErrNoneType) or unknown (ErrUnsupportedType)
//   - the digest is not a valid scalar (ErrInvalidDigestScalar)
//   - destination + digest*G is infinity (ErrDegenerateCombination)
//   - a transaction does not decode (*DecodeError)
//   - a vout is out of range (ErrMissingOutput) or not P2PKH (ErrNotP2PKH)
//   - a P2PKH hash differs from the derived one (*UnexpectedAddressError)
func Verify(
	outpoints []Outpoints,
	payloadDigest [32]byte,
	destination *crypto.PublicKey,
	t Type,
) ([]*bitcoin.Transaction, error) {
	switch t {
	case TypeNone:
		return nil, ErrNoneType
	case TypeMessageCommitment:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}

	intermediate, err := intermediatePublic(destination, payloadDigest)
	if err != nil {
		return nil, err
	}

	txs := make([]*bitcoin.Transaction, 0, len(outpoints))
	for txNum, entry := range outpoints {
		tx, err := verifyOutpoints(intermediate, txNum, entry)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	log.Debug("stamp verified", zap.Int("txs", len(txs)))
	return txs, nil
}

func verifyOutpoints(intermediate *bip32.ExtendedPublicKey, txNum int, entry Outpoints) (*bitcoin.Transaction, error) {
	tx, err := bitcoin.DecodeTransaction(entry.StampTx)
	if err != nil {
		return nil, &DecodeError{TxNum: txNum, Cause: err}
	}

	txChild, err := child(uint64(txNum))
	if err != nil {
		return nil, err
	}
	txKey, err := intermediate.DerivePublicChild(txChild)
	if err != nil {
		return nil, fmt.Errorf("deriving tx %d key: %w", txNum, err)
	}

	for _, vout := range entry.Vouts {
		if int64(vout) >= int64(len(tx.Outputs)) {
			return nil, fmt.Errorf("%w: tx %d vout %d, have %d outputs",
				ErrMissingOutput, txNum, vout, len(tx.Outputs))
		}
		actual, ok := tx.Outputs[vout].Script.PubKeyHash()
		if !ok {
			return nil, fmt.Errorf("%w: tx %d vout %d", ErrNotP2PKH, txNum, vout)
		}

		voutChild, err := child(uint64(vout))
		if err != nil {
			return nil, err
		}
		outputKey, err := txKey.DerivePublicChild(voutChild)
		if err != nil {
			return nil, fmt.Errorf("deriving tx %d vout %d key: %w", txNum, vout, err)
		}

		if expected := outputKey.PublicKey().Hash160(); actual != expected {
			return nil, &UnexpectedAddressError{
				TxNum:    txNum,
				Vout:     vout,
				Actual:   actual,
				Expected: expected,
			}
		}
	}
	return tx, nil
}

// intermediatePublic derives master / 44 / 145 from the recipient key.
func intermediatePublic(destination *crypto.PublicKey, payloadDigest [32]byte) (*bip32.ExtendedPublicKey, error) {
	payloadKey, err := crypto.PublicKeyFromScalar(payloadDigest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDigestScalar, err)
	}

	combined, err := destination.Combine(payloadKey)
	if err != nil {
		if errors.Is(err, crypto.ErrPointAtInfinity) {
			return nil, ErrDegenerateCombination
		}
		return nil, fmt.Errorf("combining keys: %w", err)
	}

	master := bip32.NewMasterPublicKey(combined, payloadDigest)
	intermediate, err := master.DerivePublicPath(prefixPath())
	if err != nil {
		return nil, fmt.Errorf("deriving stamp prefix: %w", err)
	}
	return intermediate, nil
}
