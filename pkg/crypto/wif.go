package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// WIF version bytes.
const (
	WIFVersionMainnet byte = 0x80
	WIFVersionTestnet byte = 0xef
)

// ParsePrivateKeyWIF parses a WIF-encoded private key. The returned flag
// reports whether the key was marked for compressed public keys.
func ParsePrivateKeyWIF(wif string) (*PrivateKey, bool, error) {
	decoded, compressed, err := decodeWIF(wif)
	if err != nil {
		return nil, false, err
	}

	key, err := PrivateKeyFromBytes(decoded)
	if err != nil {
		return nil, false, fmt.Errorf("wif payload: %w", err)
	}
	return key, compressed, nil
}

// decodeWIF decodes a WIF-encoded private key
// WIF format: version_byte || private_key (32 bytes) || [compression_flag] || checksum (4 bytes)
func decodeWIF(wif string) ([]byte, bool, error) {
	decoded := base58.Decode(wif)
	if len(decoded) != 37 && len(decoded) != 38 {
		return nil, false, errors.New("invalid WIF length")
	}

	version := decoded[0]
	if version != WIFVersionMainnet && version != WIFVersionTestnet {
		return nil, false, fmt.Errorf("invalid WIF version byte: 0x%02x", version)
	}

	checksumOffset := len(decoded) - 4
	payload := decoded[:checksumOffset]
	checksum := doubleSHA256(payload)
	if subtle.ConstantTimeCompare(decoded[checksumOffset:], checksum[:4]) != 1 {
		return nil, false, errors.New("WIF checksum mismatch")
	}

	compressed := len(payload) == 34
	if compressed && payload[33] != 0x01 {
		return nil, false, fmt.Errorf("invalid WIF compression flag: 0x%02x", payload[33])
	}
	return payload[1:33], compressed, nil
}

// EncodeWIF encodes a private key to WIF format
func EncodeWIF(key *PrivateKey, compressed bool, testnet bool) string {
	version := WIFVersionMainnet
	if testnet {
		version = WIFVersionTestnet
	}

	payload := make([]byte, 0, 38)
	payload = append(payload, version)
	payload = append(payload, key.Bytes()...)
	if compressed {
		payload = append(payload, 0x01)
	}

	checksum := doubleSHA256(payload)
	payload = append(payload, checksum[:4]...)
	return base58.Encode(payload)
}

func doubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}
