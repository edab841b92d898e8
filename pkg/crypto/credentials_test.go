package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCredentialEncryptorEmptyKey(t *testing.T) {
	_, err := NewCredentialEncryptor("")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	enc, err := NewCredentialEncryptor("test-passphrase")
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", ciphertext)

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)
}

func TestEncryptEmptyString(t *testing.T) {
	enc, err := NewCredentialEncryptor("k")
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", ciphertext)
}

func TestBase64KeyUsedDirectly(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	enc, err := NewCredentialEncryptor(key)
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("secret")
	require.NoError(t, err)
	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "secret", plaintext)
}

func TestDecryptWrongKey(t *testing.T) {
	enc1, err := NewCredentialEncryptor("key-one")
	require.NoError(t, err)
	enc2, err := NewCredentialEncryptor("key-two")
	require.NoError(t, err)

	ciphertext, err := enc1.Encrypt("secret")
	require.NoError(t, err)

	_, err = enc2.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptGarbage(t *testing.T) {
	enc, err := NewCredentialEncryptor("k")
	require.NoError(t, err)

	_, err = enc.Decrypt("not-base64!!!")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = enc.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestEncryptMapRoundtrip(t *testing.T) {
	enc, err := NewCredentialEncryptor("k")
	require.NoError(t, err)

	credentials := map[string]any{
		"username": "reporting",
		"password": "hunter2",
	}

	ciphertext, err := enc.EncryptMap(credentials)
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "hunter2")

	decrypted, err := enc.DecryptMap(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, credentials, decrypted)
}

func TestEncryptMapEmpty(t *testing.T) {
	enc, err := NewCredentialEncryptor("k")
	require.NoError(t, err)

	ciphertext, err := enc.EncryptMap(nil)
	require.NoError(t, err)
	assert.Equal(t, "", ciphertext)

	decrypted, err := enc.DecryptMap("")
	require.NoError(t, err)
	assert.Empty(t, decrypted)
}
