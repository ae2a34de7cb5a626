package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	s, err := NewSealerFromBase64(key)
	require.NoError(t, err)
	return s
}

func TestNewSealer(t *testing.T) {
	t.Run("valid key size", func(t *testing.T) {
		s, err := NewSealer(make([]byte, 32))
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("invalid key size", func(t *testing.T) {
		s, err := NewSealer(make([]byte, 16))
		assert.ErrorIs(t, err, ErrInvalidKeySize)
		assert.Nil(t, s)
	})

	t.Run("invalid base64", func(t *testing.T) {
		s, err := NewSealerFromBase64("not-valid-base64!!!")
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestSealOpen(t *testing.T) {
	s := newTestSealer(t)
	owner := []byte("user:7")

	sealed, err := s.Seal("9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b", owner)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "9944b091")

	opened, err := s.Open(sealed, owner)
	require.NoError(t, err)
	assert.Equal(t, "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b", opened)

	again, err := s.Seal("9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b", owner)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "random nonce per seal")
}

func TestOpenErrors(t *testing.T) {
	s := newTestSealer(t)
	sealed, err := s.Seal("secret", []byte("user:1"))
	require.NoError(t, err)

	t.Run("wrong context", func(t *testing.T) {
		_, err := s.Open(sealed, []byte("user:2"))
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := newTestSealer(t).Open(sealed, []byte("user:1"))
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("tampered", func(t *testing.T) {
		data, _ := base64.StdEncoding.DecodeString(sealed)
		data[len(data)-1] ^= 0xFF
		_, err := s.Open(base64.StdEncoding.EncodeToString(data), []byte("user:1"))
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := s.Open(base64.StdEncoding.EncodeToString([]byte("short")), nil)
		assert.ErrorIs(t, err, ErrCiphertextTooShort)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := s.Open("%%%", nil)
		assert.Error(t, err)
	})
}

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(20)
	require.NoError(t, err)
	b, err := RandomHex(20)
	require.NoError(t, err)

	assert.Len(t, a, 40)
	assert.NotEqual(t, a, b)
}
