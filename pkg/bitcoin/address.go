package bitcoin

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// Network is one of the standard Bitcoin networks.
type Network string

// Networks.
const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Regtest Network = "regtest"
)

// ErrUnexpectedNetwork is returned for unknown network names and address
// versions.
var ErrUnexpectedNetwork = errors.New("unexpected network")

// ParseNetwork parses a lowercase network name.
func ParseNetwork(name string) (Network, error) {
	switch n := Network(name); n {
	case Mainnet, Testnet, Regtest:
		return n, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnexpectedNetwork, name)
	}
}

func (n Network) String() string {
	return string(n)
}

// IsTest reports whether keys and addresses use the test version bytes.
func (n Network) IsTest() bool {
	return n != Mainnet
}

// P2PKHVersion returns the base58check version byte for P2PKH addresses.
func (n Network) P2PKHVersion() byte {
	if n.IsTest() {
		return 0x6f
	}
	return 0x00
}

// P2PKHAddress encodes a public key hash as a base58check address.
func P2PKHAddress(pubKeyHash [20]byte, network Network) string {
	return base58.CheckEncode(pubKeyHash[:], network.P2PKHVersion())
}

// DecodeP2PKHAddress decodes a base58check P2PKH address and reports the
// network it belongs to. Testnet and regtest share a version byte, so
// Testnet is returned for both.
func DecodeP2PKHAddress(address string) ([20]byte, Network, error) {
	var hash [20]byte

	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return hash, "", fmt.Errorf("decoding address: %w", err)
	}
	if len(payload) != len(hash) {
		return hash, "", fmt.Errorf("address payload must be 20 bytes, got %d", len(payload))
	}

	var network Network
	switch version {
	case Mainnet.P2PKHVersion():
		network = Mainnet
	case Testnet.P2PKHVersion():
		network = Testnet
	default:
		return hash, "", fmt.Errorf("%w: version 0x%02x", ErrUnexpectedNetwork, version)
	}

	copy(hash[:], payload)
	return hash, network, nil
}
