package authwrapper

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
	"github.com/suffix-labs/cashweb-relay/pkg/digest"
)

func signed(t *testing.T) *AuthWrapper {
	t.Helper()
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	w, err := Sign(priv, []byte("profile entry"))
	require.NoError(t, err)
	return w
}

func TestSignVerify(t *testing.T) {
	w := signed(t)

	decoded := &AuthWrapper{}
	require.NoError(t, decoded.Unmarshal(w.Marshal()))
	assert.Equal(t, w, decoded)

	parsed, err := decoded.Parse()
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256([]byte("profile entry")), parsed.PayloadDigest)
	assert.NoError(t, parsed.Verify())
}

func TestVerifyDigestOnly(t *testing.T) {
	w := signed(t)
	w.Payload = nil

	parsed, err := w.Parse()
	require.NoError(t, err)
	assert.NoError(t, parsed.Verify())
}

func TestVerifyRejectsTampering(t *testing.T) {
	w := signed(t)
	w.Payload = []byte("profile entrY")
	w.PayloadDigest = nil

	parsed, err := w.Parse()
	require.NoError(t, err)
	assert.ErrorIs(t, parsed.Verify(), ErrInvalidSignature)

	other := signed(t)
	w = signed(t)
	w.PublicKey = other.PublicKey
	parsed, err = w.Parse()
	require.NoError(t, err)
	assert.ErrorIs(t, parsed.Verify(), ErrInvalidSignature)
}

func TestVerifySchnorrUnsupported(t *testing.T) {
	w := signed(t)
	w.Scheme = SchemeSchnorr

	parsed, err := w.Parse()
	require.NoError(t, err)
	assert.ErrorIs(t, parsed.Verify(), ErrUnsupportedScheme)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(w *AuthWrapper)
		wantErr   error
		wantField string
	}{
		{"bad public key", func(w *AuthWrapper) { w.PublicKey = w.PublicKey[:20] }, nil, FieldPublicKey},
		{"short signature", func(w *AuthWrapper) { w.Signature = w.Signature[:63] }, crypto.ErrInvalidSignatureEncoding, FieldSignature},
		{"zero signature", func(w *AuthWrapper) { w.Signature = make([]byte, 64) }, crypto.ErrInvalidSignatureEncoding, FieldSignature},
		{"unknown scheme", func(w *AuthWrapper) { w.Scheme = 3 }, ErrUnsupportedScheme, ""},
		{"fraudulent digest", func(w *AuthWrapper) { w.PayloadDigest[0] ^= 0x01 }, digest.ErrFraudulentDigest, ""},
		{"nothing signed", func(w *AuthWrapper) { w.Payload, w.PayloadDigest = nil, nil }, digest.ErrDigestAndPayloadMissing, ""},
		{"short digest", func(w *AuthWrapper) { w.PayloadDigest = w.PayloadDigest[:8] }, digest.ErrUnexpectedLengthDigest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := signed(t)
			tt.mutate(w)

			_, err := w.Parse()
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantField != "" {
				var fieldErr *FieldError
				require.True(t, errors.As(err, &fieldErr))
				assert.Equal(t, tt.wantField, fieldErr.Field)
			}
		})
	}
}
