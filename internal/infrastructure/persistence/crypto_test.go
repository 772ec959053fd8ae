package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCipherRoundTrip(t *testing.T) {
	cipher := testCipher(t)

	sealed, err := cipher.Encrypt("sk_live_secret")
	require.NoError(t, err)
	assert.NotEqual(t, "sk_live_secret", sealed)

	plain, err := cipher.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk_live_secret", plain)
}

func TestTokenCipherEmptyPassthrough(t *testing.T) {
	cipher := testCipher(t)

	sealed, err := cipher.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := cipher.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestTokenCipherNoncesDiffer(t *testing.T) {
	cipher := testCipher(t)

	first, err := cipher.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := cipher.Encrypt("same plaintext")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestTokenCipherRejectsWrongKey(t *testing.T) {
	cipher := testCipher(t)
	sealed, err := cipher.Encrypt("token")
	require.NoError(t, err)

	otherKey := make([]byte, 32)
	copy(otherKey, "ffffffffffffffffffffffffffffffff")
	other, err := NewTokenCipher(otherKey)
	require.NoError(t, err)

	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
}

func TestTokenCipherRejectsGarbage(t *testing.T) {
	cipher := testCipher(t)

	_, err := cipher.Decrypt("not base64!!!")
	assert.Error(t, err)

	_, err = cipher.Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}

func TestNewTokenCipherRejectsBadKeySize(t *testing.T) {
	_, err := NewTokenCipher([]byte("too short"))
	assert.Error(t, err)
}
