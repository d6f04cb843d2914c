package digest

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	payload := []byte("relay payload")
	sum := sha256.Sum256(payload)

	flipped := sum
	flipped[0] ^= 0x80

	tests := []struct {
		name     string
		supplied []byte
		payload  []byte
		want     [Size]byte
		wantErr  error
	}{
		{"computed from payload", nil, payload, sum, nil},
		{"matching digest", sum[:], payload, sum, nil},
		{"digest only", flipped[:], nil, flipped, nil},
		{"flipped bit", flipped[:], payload, [Size]byte{}, ErrFraudulentDigest},
		{"nothing", nil, nil, [Size]byte{}, ErrDigestAndPayloadMissing},
		{"short digest", sum[:31], payload, [Size]byte{}, ErrUnexpectedLengthDigest},
		{"long digest", append(sum[:], 0), nil, [Size]byte{}, ErrUnexpectedLengthDigest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.supplied, tt.payload)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
