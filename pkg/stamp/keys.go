package stamp

import (
	"fmt"

	"github.com/suffix-labs/cashweb-relay/pkg/bip32"
	"github.com/suffix-labs/cashweb-relay/pkg/bitcoin"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
)

// CreatePrivateKeys derives the private keys controlling the stamp outputs a
// sender must fund.
//
// privateKey is the recipient-side key whose public half is the message
// destination. outputProfile[txNum] is the number of stamp outputs in that
// transaction; keys[txNum][vout] controls output vout.
func CreatePrivateKeys(
	privateKey *crypto.PrivateKey,
	payloadDigest [32]byte,
	outputProfile []uint32,
) ([][]*crypto.PrivateKey, error) {
	if err := checkProfile(outputProfile); err != nil {
		return nil, err
	}

	combined, err := privateKey.Add(payloadDigest)
	if err != nil {
		return nil, &KeyError{TxNum: -1, Cause: err}
	}

	master := bip32.NewMasterPrivateKey(combined, payloadDigest)
	intermediate, err := master.DerivePrivatePath(prefixPath())
	if err != nil {
		return nil, &KeyError{TxNum: -1, Cause: err}
	}

	keys := make([][]*crypto.PrivateKey, len(outputProfile))
	for txNum, numOutputs := range outputProfile {
		txChild, err := child(uint64(txNum))
		if err != nil {
			return nil, &KeyError{TxNum: txNum, Cause: err}
		}
		txKey, err := intermediate.DerivePrivateChild(txChild)
		if err != nil {
			return nil, &KeyError{TxNum: txNum, Cause: err}
		}

		keys[txNum] = make([]*crypto.PrivateKey, numOutputs)
		for vout := uint32(0); vout < numOutputs; vout++ {
			voutChild, err := child(uint64(vout))
			if err != nil {
				return nil, &KeyError{TxNum: txNum, Vout: vout, Cause: err}
			}
			outputKey, err := txKey.DerivePrivateChild(voutChild)
			if err != nil {
				return nil, &KeyError{TxNum: txNum, Vout: vout, Cause: err}
			}
			keys[txNum][vout] = outputKey.PrivateKey()
		}
	}
	return keys, nil
}

// checkProfile rejects profiles whose indices cannot be normal children,
// before anything is allocated for them.
func checkProfile(outputProfile []uint32) error {
	for txNum, numOutputs := range outputProfile {
		if _, err := child(uint64(txNum)); err != nil {
			return &KeyError{TxNum: txNum, Cause: err}
		}
		if numOutputs > bip32.HardenedOffset {
			_, err := child(uint64(bip32.HardenedOffset))
			return &KeyError{TxNum: txNum, Vout: bip32.HardenedOffset, Cause: err}
		}
	}
	return nil
}

// DeriveOutputKeys derives the public keys a sender must pay, using only the
// destination public key. keys[txNum][vout] matches CreatePrivateKeys.
func DeriveOutputKeys(
	destination *crypto.PublicKey,
	payloadDigest [32]byte,
	outputProfile []uint32,
) ([][]*crypto.PublicKey, error) {
	if err := checkProfile(outputProfile); err != nil {
		return nil, err
	}

	intermediate, err := intermediatePublic(destination, payloadDigest)
	if err != nil {
		return nil, &KeyError{TxNum: -1, Cause: err}
	}

	keys := make([][]*crypto.PublicKey, len(outputProfile))
	for txNum, numOutputs := range outputProfile {
		txChild, err := child(uint64(txNum))
		if err != nil {
			return nil, &KeyError{TxNum: txNum, Cause: err}
		}
		txKey, err := intermediate.DerivePublicChild(txChild)
		if err != nil {
			return nil, &KeyError{TxNum: txNum, Cause: err}
		}

		keys[txNum] = make([]*crypto.PublicKey, numOutputs)
		for vout := uint32(0); vout < numOutputs; vout++ {
			voutChild, err := child(uint64(vout))
			if err != nil {
				return nil, &KeyError{TxNum: txNum, Vout: vout, Cause: err}
			}
			outputKey, err := txKey.DerivePublicChild(voutChild)
			if err != nil {
				return nil, &KeyError{TxNum: txNum, Vout: vout, Cause: err}
			}
			keys[txNum][vout] = outputKey.PublicKey()
		}
	}
	return keys, nil
}

// OutputScripts returns the P2PKH scripts for DeriveOutputKeys.
func OutputScripts(
	destination *crypto.PublicKey,
	payloadDigest [32]byte,
	outputProfile []uint32,
) ([][]bitcoin.Script, error) {
	keys, err := DeriveOutputKeys(destination, payloadDigest, outputProfile)
	if err != nil {
		return nil, err
	}

	scripts := make([][]bitcoin.Script, len(keys))
	for txNum, txKeys := range keys {
		scripts[txNum] = make([]bitcoin.Script, len(txKeys))
		for vout, key := range txKeys {
			scripts[txNum][vout] = bitcoin.NewP2PKHScript(key.Hash160())
		}
	}
	return scripts, nil
}

// BuildOutpoints pairs funded stamp transactions with the vouts that pay the
// derived scripts, in the order Verify expects.
func BuildOutpoints(txs []*bitcoin.Transaction, outputProfile []uint32) ([]Outpoints, error) {
	if len(txs) != len(outputProfile) {
		return nil, fmt.Errorf("have %d transactions for %d profile entries", len(txs), len(outputProfile))
	}

	outpoints := make([]Outpoints, len(txs))
	for i, tx := range txs {
		vouts := make([]uint32, outputProfile[i])
		for v := range vouts {
			vouts[v] = uint32(v)
		}
		outpoints[i] = Outpoints{StampTx: tx.Encode(), Vouts: vouts}
	}
	return outpoints, nil
}
