package bitmask_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impresso-project/content-authz/internal/bitmask"
)

func TestFromBytesRoundTrip(t *testing.T) {
	m, err := bitmask.FromBytes([]byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, bitmask.FromInt(0x0102), m)
	assert.Equal(t, []byte{0x01, 0x02}, m.Bytes())
}

func TestFromBytesTooLong(t *testing.T) {
	_, err := bitmask.FromBytes(make([]byte, 9))
	assert.ErrorIs(t, err, bitmask.ErrTooLong)
}

func TestFromBase64RoundTrip(t *testing.T) {
	original := bitmask.FromInt(0xABCDEF)
	decoded, err := bitmask.FromBase64(original.Base64())
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestFromBase64Invalid(t *testing.T) {
	_, err := bitmask.FromBase64("not-valid-base64!!")
	assert.Error(t, err)
}

func TestIsAccessAllowed(t *testing.T) {
	assert.True(t, bitmask.IsAccessAllowed(bitmask.FromInt(0b0110), bitmask.FromInt(0b0010)))
	assert.False(t, bitmask.IsAccessAllowed(bitmask.FromInt(0b0100), bitmask.FromInt(0b0010)))
	assert.False(t, bitmask.IsAccessAllowed(bitmask.FromInt(0), bitmask.FromInt(0)))
}

func TestStringIsFixedWidth(t *testing.T) {
	s := bitmask.FromInt(1).String()
	assert.Len(t, s, 64)
	assert.Equal(t, byte('1'), s[63])
}
