package stamp

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/suffix-labs/cashweb-relay/pkg/bip32"
	"github.com/suffix-labs/cashweb-relay/pkg/bitcoin"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
)

type vectorOutput struct {
	TxNum      int    `yaml:"tx_num"`
	Vout       uint32 `yaml:"vout"`
	Hash160    string `yaml:"hash160"`
	PrivateKey string `yaml:"private_key"`
}

type vectors struct {
	DestinationPrivateKey string         `yaml:"destination_private_key"`
	DestinationPublicKey  string         `yaml:"destination_public_key"`
	PayloadDigest         string         `yaml:"payload_digest"`
	OutputProfile         []uint32       `yaml:"output_profile"`
	Outputs               []vectorOutput `yaml:"outputs"`
	NegatedDigestKey      string         `yaml:"negated_digest_key"`
}

type fixture struct {
	vectors
	destPriv *crypto.PrivateKey
	destPub  *crypto.PublicKey
	digest   [32]byte
}

func loadFixture(t *testing.T) *fixture {
	t.Helper()
	raw, err := os.ReadFile("testdata/vectors.yaml")
	require.NoError(t, err)

	f := &fixture{}
	require.NoError(t, yaml.Unmarshal(raw, &f.vectors))

	f.destPriv, err = crypto.PrivateKeyFromBytes(mustHex(t, f.DestinationPrivateKey))
	require.NoError(t, err)
	f.destPub = f.destPriv.PublicKey()
	require.Equal(t, f.DestinationPublicKey, hex.EncodeToString(f.destPub.Bytes()))
	copy(f.digest[:], mustHex(t, f.PayloadDigest))
	return f
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func hash20(t *testing.T, s string) [20]byte {
	t.Helper()
	var h [20]byte
	copy(h[:], mustHex(t, s))
	return h
}

func stampTx(scripts ...bitcoin.Script) *bitcoin.Transaction {
	tx := &bitcoin.Transaction{
		Version: 1,
		Inputs: []bitcoin.Input{{
			Outpoint: bitcoin.Outpoint{TxID: sha256.Sum256([]byte("funding")), Vout: 0},
			Sequence: 0xffffffff,
		}},
	}
	for _, s := range scripts {
		tx.Outputs = append(tx.Outputs, bitcoin.Output{Value: 546, Script: s})
	}
	return tx
}

// fundedStamp builds transactions paying every vector output, in order.
func (f *fixture) fundedStamp(t *testing.T) []Outpoints {
	t.Helper()
	txs := make([]*bitcoin.Transaction, len(f.OutputProfile))
	for i := range txs {
		txs[i] = stampTx()
	}
	for _, out := range f.Outputs {
		tx := txs[out.TxNum]
		tx.Outputs = append(tx.Outputs, bitcoin.Output{
			Value:  546,
			Script: bitcoin.NewP2PKHScript(hash20(t, out.Hash160)),
		})
	}
	outpoints, err := BuildOutpoints(txs, f.OutputProfile)
	require.NoError(t, err)
	return outpoints
}

func TestDeriveOutputKeysMatchesVectors(t *testing.T) {
	f := loadFixture(t)

	keys, err := DeriveOutputKeys(f.destPub, f.digest, f.OutputProfile)
	require.NoError(t, err)
	privKeys, err := CreatePrivateKeys(f.destPriv, f.digest, f.OutputProfile)
	require.NoError(t, err)
	scripts, err := OutputScripts(f.destPub, f.digest, f.OutputProfile)
	require.NoError(t, err)

	require.Len(t, keys, 2)
	require.Len(t, keys[0], 2)
	require.Len(t, keys[1], 1)

	for _, out := range f.Outputs {
		pub := keys[out.TxNum][out.Vout]
		assert.Equal(t, out.Hash160, hex.EncodeToString(func() []byte { h := pub.Hash160(); return h[:] }()))

		priv := privKeys[out.TxNum][out.Vout]
		assert.Equal(t, out.PrivateKey, hex.EncodeToString(priv.Bytes()))
		assert.True(t, priv.PublicKey().Equal(pub))

		hash, ok := scripts[out.TxNum][out.Vout].PubKeyHash()
		require.True(t, ok)
		assert.Equal(t, hash20(t, out.Hash160), hash)
	}
}

func TestVerifyP2PKHMatch(t *testing.T) {
	f := loadFixture(t)
	first := f.Outputs[0]

	tx := stampTx(bitcoin.NewP2PKHScript(hash20(t, first.Hash160)))
	outpoints := []Outpoints{{StampTx: tx.Encode(), Vouts: []uint32{0}}}

	txs, err := Verify(outpoints, f.digest, f.destPub, TypeMessageCommitment)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, tx.TxID(), txs[0].TxID())
}

func TestVerifyMultipleTransactions(t *testing.T) {
	f := loadFixture(t)
	s := &Stamp{Type: TypeMessageCommitment, Outpoints: f.fundedStamp(t)}

	txs, err := s.Verify(f.digest, f.destPub)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	// Order is part of the commitment.
	swapped := []Outpoints{s.Outpoints[1], s.Outpoints[0]}
	_, err = Verify(swapped, f.digest, f.destPub, TypeMessageCommitment)
	assert.ErrorIs(t, err, ErrUnexpectedAddress)
}

func TestVerifyNotTransferable(t *testing.T) {
	f := loadFixture(t)
	outpoints := f.fundedStamp(t)

	otherDigest := f.digest
	otherDigest[31] ^= 0x01
	_, err := Verify(outpoints, otherDigest, f.destPub, TypeMessageCommitment)
	var addrErr *UnexpectedAddressError
	require.True(t, errors.As(err, &addrErr))
	assert.Equal(t, 0, addrErr.TxNum)
	assert.Equal(t, uint32(0), addrErr.Vout)
	assert.Equal(t, hash20(t, f.Outputs[0].Hash160), addrErr.Actual)
	assert.NotEqual(t, addrErr.Actual, addrErr.Expected)

	other, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	_, err = Verify(outpoints, f.digest, other.PublicKey(), TypeMessageCommitment)
	require.True(t, errors.As(err, &addrErr))
	assert.Equal(t, hash20(t, f.Outputs[0].Hash160), addrErr.Actual)
}

func TestVerifyNotP2PKH(t *testing.T) {
	f := loadFixture(t)
	tx := stampTx(bitcoin.NewOpReturnScript([]byte("not a payment")))

	_, err := Verify([]Outpoints{{StampTx: tx.Encode(), Vouts: []uint32{0}}},
		f.digest, f.destPub, TypeMessageCommitment)
	assert.ErrorIs(t, err, ErrNotP2PKH)
}

func TestVerifyMissingOutput(t *testing.T) {
	f := loadFixture(t)
	tx := stampTx(bitcoin.NewP2PKHScript(hash20(t, f.Outputs[0].Hash160)))

	_, err := Verify([]Outpoints{{StampTx: tx.Encode(), Vouts: []uint32{5}}},
		f.digest, f.destPub, TypeMessageCommitment)
	assert.ErrorIs(t, err, ErrMissingOutput)
}

func TestVerifyDecodeError(t *testing.T) {
	f := loadFixture(t)
	outpoints := f.fundedStamp(t)
	outpoints[1].StampTx = outpoints[1].StampTx[:10]

	_, err := Verify(outpoints, f.digest, f.destPub, TypeMessageCommitment)
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, 1, decodeErr.TxNum)
}

func TestVerifyTypes(t *testing.T) {
	f := loadFixture(t)
	outpoints := f.fundedStamp(t)

	_, err := Verify(outpoints, f.digest, f.destPub, TypeNone)
	assert.ErrorIs(t, err, ErrNoneType)

	_, err = Verify(outpoints, f.digest, f.destPub, Type(7))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	parsed, err := ParseType(1)
	require.NoError(t, err)
	assert.Equal(t, TypeMessageCommitment, parsed)
	_, err = ParseType(2)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestVerifyDegenerateInputs(t *testing.T) {
	f := loadFixture(t)

	negated, err := crypto.PrivateKeyFromBytes(mustHex(t, f.NegatedDigestKey))
	require.NoError(t, err)
	_, err = Verify(nil, f.digest, negated.PublicKey(), TypeMessageCommitment)
	assert.ErrorIs(t, err, ErrDegenerateCombination)

	_, err = Verify(nil, [32]byte{}, f.destPub, TypeMessageCommitment)
	assert.ErrorIs(t, err, ErrInvalidDigestScalar)

	var overOrder [32]byte
	copy(overOrder[:], bytes.Repeat([]byte{0xff}, 32))
	_, err = CreatePrivateKeys(f.destPriv, overOrder, []uint32{1})
	var keyErr *KeyError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, -1, keyErr.TxNum)
	assert.ErrorIs(t, err, crypto.ErrInvalidScalar)

	_, err = CreatePrivateKeys(negated, f.digest, []uint32{1})
	assert.ErrorIs(t, err, crypto.ErrZeroScalar)
}

func TestVerifyEmptyStamp(t *testing.T) {
	f := loadFixture(t)
	txs, err := Verify(nil, f.digest, f.destPub, TypeMessageCommitment)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestBuildOutpointsMismatch(t *testing.T) {
	_, err := BuildOutpoints([]*bitcoin.Transaction{stampTx()}, []uint32{1, 1})
	assert.Error(t, err)
}

func TestChildOverflow(t *testing.T) {
	_, err := child(1 << 31)
	assert.ErrorIs(t, err, ErrChildNumberOverflow)

	c, err := child(145)
	require.NoError(t, err)
	assert.Equal(t, uint32(145), c.Uint32())
}

func TestOversizedProfileRejectedBeforeDerivation(t *testing.T) {
	f := loadFixture(t)
	profile := []uint32{1, bip32.HardenedOffset + 1}

	_, err := CreatePrivateKeys(f.destPriv, f.digest, profile)
	var keyErr *KeyError
	require.True(t, errors.As(err, &keyErr), "got %v", err)
	assert.Equal(t, 1, keyErr.TxNum)
	assert.Equal(t, bip32.HardenedOffset, keyErr.Vout)
	assert.ErrorIs(t, err, ErrChildNumberOverflow)

	_, err = DeriveOutputKeys(f.destPub, f.digest, []uint32{0xffffffff})
	assert.ErrorIs(t, err, ErrChildNumberOverflow)

	_, err = OutputScripts(f.destPub, f.digest, []uint32{0xffffffff})
	assert.ErrorIs(t, err, ErrChildNumberOverflow)
}
