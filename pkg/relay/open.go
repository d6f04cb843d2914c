package relay

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/suffix-labs/cashweb-relay/internal/log"
	"github.com/suffix-labs/cashweb-relay/pkg/bitcoin"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
)

// Open stage codes carried by OpenError.
const (
	CodeStamp          = "STAMP"
	CodeSharedKey      = "SHARED_KEY"
	CodeAuthentication = "AUTHENTICATION"
	CodeDecrypt        = "DECRYPT"
	CodePayload        = "PAYLOAD"
)

// OpenError is returned when opening a message fails. Code names the stage
// and Cause holds the underlying error.
type OpenError struct {
	Code  string
	Cause error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open failed [%s]: %v", e.Code, e.Cause)
}

func (e *OpenError) Unwrap() error {
	return e.Cause
}

func openError(code string, cause error) *OpenError {
	log.Debug("open failed", zap.String("stage", code))
	return &OpenError{Code: code, Cause: cause}
}

// Opened is the result of opening a message.
type Opened struct {
	Txs     []*bitcoin.Transaction
	Payload *Payload
}

// Open verifies and decrypts p with the recipient's private key. p is not
// modified.
//
// Stages run in order and stop at the first failure: stamp verification,
// shared key derivation, HMAC authentication, decryption and payload
// decoding. Ciphertext is never decrypted before the HMAC passes.
func (p *ParsedMessage) Open(priv *crypto.PrivateKey) (*Opened, error) {
	return p.open(priv, false)
}

// OpenInPlace is Open, decrypting into the payload buffer. On success
// p.Payload holds the serialized plaintext. If decryption fails p.Payload
// still holds the ciphertext.
func (p *ParsedMessage) OpenInPlace(priv *crypto.PrivateKey) (*Opened, error) {
	return p.open(priv, true)
}

func (p *ParsedMessage) open(priv *crypto.PrivateKey, inPlace bool) (*Opened, error) {
	txs, err := p.VerifyStamp()
	if err != nil {
		return nil, openError(CodeStamp, err)
	}

	sharedKey, err := CreateSharedKey(p.SourcePublicKey, priv, p.Salt)
	if err != nil {
		return nil, openError(CodeSharedKey, err)
	}
	defer clear(sharedKey[:])

	if err := Authenticate(sharedKey, p.PayloadDigest, p.PayloadHmac); err != nil {
		return nil, openError(CodeAuthentication, err)
	}

	plaintext := p.Payload
	if p.Scheme == SchemeEphemeralDH {
		if inPlace {
			plaintext, err = DecryptPayloadInPlace(sharedKey, p.Payload)
		} else {
			plaintext, err = DecryptPayload(sharedKey, p.Payload)
		}
		if err != nil {
			return nil, openError(CodeDecrypt, err)
		}
	}
	if inPlace {
		p.Payload = plaintext
	}

	payload := &Payload{}
	if err := payload.Unmarshal(plaintext); err != nil {
		return nil, openError(CodePayload, err)
	}

	log.Debug("message opened", zap.Int("stamp_txs", len(txs)), zap.Int("entries", len(payload.Entries)))
	return &Opened{Txs: txs, Payload: payload}, nil
}
