package vault

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNew(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		v, err := New(testKey())
		require.NoError(t, err)
		assert.NotNil(t, v)
	})

	t.Run("rejects short key", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString(make([]byte, 16))
		_, err := New(short)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("rejects non-base64 key", func(t *testing.T) {
		_, err := New("not base64!!!")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("rejects empty key", func(t *testing.T) {
		_, err := New("")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestVaultRoundTrip(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	t.Run("encrypt then decrypt", func(t *testing.T) {
		ct, err := v.Encrypt(`{"username":"admin","password":"s3cret"}`)
		require.NoError(t, err)

		parts := strings.Split(ct, "|")
		require.Len(t, parts, 2)

		pt, err := v.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, `{"username":"admin","password":"s3cret"}`, pt)
	})

	t.Run("ciphertext differs per call", func(t *testing.T) {
		a, err := v.Encrypt("same input")
		require.NoError(t, err)
		b, err := v.Encrypt("same input")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty plaintext round trips", func(t *testing.T) {
		ct, err := v.Encrypt("")
		require.NoError(t, err)
		pt, err := v.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, "", pt)
	})
}

func TestVaultDecryptFailures(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	t.Run("missing separator", func(t *testing.T) {
		_, err := v.Decrypt("no-separator-here")
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})

	t.Run("bad nonce encoding", func(t *testing.T) {
		_, err := v.Decrypt("!!!|" + base64.StdEncoding.EncodeToString([]byte("x")))
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		ct, err := v.Encrypt("payload")
		require.NoError(t, err)

		parts := strings.Split(ct, "|")
		raw, err := base64.StdEncoding.DecodeString(parts[1])
		require.NoError(t, err)
		raw[0] ^= 0xFF
		tampered := parts[0] + "|" + base64.StdEncoding.EncodeToString(raw)

		_, err = v.Decrypt(tampered)
		assert.ErrorIs(t, err, ErrDecryptFailed)
	})

	t.Run("wrong key fails authentication", func(t *testing.T) {
		other := make([]byte, 32)
		for i := range other {
			other[i] = byte(255 - i)
		}
		v2, err := New(base64.StdEncoding.EncodeToString(other))
		require.NoError(t, err)

		ct, err := v.Encrypt("payload")
		require.NoError(t, err)
		_, err = v2.Decrypt(ct)
		assert.ErrorIs(t, err, ErrDecryptFailed)
	})
}
