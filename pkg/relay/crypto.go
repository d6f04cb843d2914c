package relay

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
	"github.com/suffix-labs/cashweb-relay/pkg/digest"
)

// SharedKeySize is the length of the symmetric key derived per message. The
// first half keys AES-128, the second half is the CBC IV.
const SharedKeySize = 32

var (
	// ErrInvalidHmac is returned when payload_hmac does not authenticate the
	// payload digest.
	ErrInvalidHmac = errors.New("invalid payload hmac")

	// ErrInvalidCiphertextLength is returned when the ciphertext is empty or
	// not a multiple of the AES block size.
	ErrInvalidCiphertextLength = errors.New("invalid ciphertext length")

	// ErrInvalidPadding is returned when PKCS7 padding is malformed.
	ErrInvalidPadding = errors.New("invalid padding")
)

// CreateMergedKey returns priv * source, the Diffie-Hellman point shared by
// the two parties.
func CreateMergedKey(source *crypto.PublicKey, priv *crypto.PrivateKey) (*crypto.PublicKey, error) {
	scalar := priv.Scalar()
	merged, err := source.Mul(scalar[:])
	clear(scalar[:])
	if err != nil {
		return nil, fmt.Errorf("merging keys: %w", err)
	}
	return merged, nil
}

// CreateSharedKey returns HMAC-SHA256(key = compressed merged key, salt).
//
// Sender and receiver reach the same key: the sender passes the destination
// public key with its own private key, the receiver the source public key
// with its own.
func CreateSharedKey(source *crypto.PublicKey, priv *crypto.PrivateKey, salt []byte) ([SharedKeySize]byte, error) {
	var key [SharedKeySize]byte

	merged, err := CreateMergedKey(source, priv)
	if err != nil {
		return key, err
	}
	secret := merged.SerializeCompressed()

	mac := hmac.New(sha256.New, secret[:])
	mac.Write(salt)
	copy(key[:], mac.Sum(nil))
	clear(secret[:])
	return key, nil
}

// PayloadHmac returns HMAC-SHA256(sharedKey, payloadDigest).
func PayloadHmac(sharedKey [SharedKeySize]byte, payloadDigest [digest.Size]byte) [HmacSize]byte {
	mac := hmac.New(sha256.New, sharedKey[:])
	mac.Write(payloadDigest[:])

	var out [HmacSize]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// Authenticate checks payloadHmac against the digest in constant time.
func Authenticate(sharedKey [SharedKeySize]byte, payloadDigest [digest.Size]byte, payloadHmac [HmacSize]byte) error {
	expected := PayloadHmac(sharedKey, payloadDigest)
	if !hmac.Equal(expected[:], payloadHmac[:]) {
		return ErrInvalidHmac
	}
	return nil
}

// EncryptPayload returns the AES-128-CBC encryption of plaintext with PKCS7
// padding. plaintext is not modified.
func EncryptPayload(sharedKey [SharedKeySize]byte, plaintext []byte) ([]byte, error) {
	buf := make([]byte, len(plaintext), len(plaintext)+aes.BlockSize)
	copy(buf, plaintext)
	return EncryptPayloadInPlace(sharedKey, buf)
}

// EncryptPayloadInPlace pads and encrypts buf, reusing its backing array when
// it has room for the padding. The returned slice holds the ciphertext.
func EncryptPayloadInPlace(sharedKey [SharedKeySize]byte, buf []byte) ([]byte, error) {
	block, err := aes.NewCipher(sharedKey[:aes.BlockSize])
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}

	buf = pkcs7Pad(buf)
	cipher.NewCBCEncrypter(block, sharedKey[aes.BlockSize:]).CryptBlocks(buf, buf)
	return buf, nil
}

// DecryptPayload returns the plaintext of ciphertext, leaving ciphertext
// intact.
func DecryptPayload(sharedKey [SharedKeySize]byte, ciphertext []byte) ([]byte, error) {
	return DecryptPayloadInPlace(sharedKey, append([]byte(nil), ciphertext...))
}

// DecryptPayloadInPlace decrypts buf in place and returns the unpadded
// plaintext, a prefix of buf. On error buf holds the ciphertext again.
func DecryptPayloadInPlace(sharedKey [SharedKeySize]byte, buf []byte) ([]byte, error) {
	if len(buf) == 0 || len(buf)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidCiphertextLength, len(buf))
	}

	block, err := aes.NewCipher(sharedKey[:aes.BlockSize])
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	iv := sharedKey[aes.BlockSize:]
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(buf, buf)

	plaintext, err := pkcs7Unpad(buf)
	if err != nil {
		// CBC re-encryption of the decrypted blocks reproduces the input.
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf, buf)
		return nil, err
	}
	return plaintext, nil
}

func pkcs7Pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	for i := 0; i < n; i++ {
		b = append(b, byte(n))
	}
	return b
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrInvalidPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrInvalidPadding
		}
	}
	return b[:len(b)-n], nil
}
