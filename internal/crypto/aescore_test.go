package crypto

import (
	"testing"

	"voicecore/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	plaintext := []byte(`{"family":["called mom"],"business":[],"misc":[]}`)
	blob, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, blob)

	out, err := Decrypt(key, blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key, _ := GenerateKey()
	other, _ := GenerateKey()

	blob, err := Encrypt(key, []byte("secret"))
	require.NoError(t, err)

	_, err = Decrypt(other, blob)
	require.Error(t, err)
	assert.Equal(t, apperr.IntegrityFailure, apperr.CategoryOf(err))
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	key, _ := GenerateKey()
	blob, err := Encrypt(key, []byte("secret"))
	require.NoError(t, err)

	blob[len(blob)-1] ^= 0xFF

	_, err = Decrypt(key, blob)
	require.Error(t, err)
	assert.Equal(t, apperr.IntegrityFailure, apperr.CategoryOf(err))
}

func TestDecryptTruncatedFails(t *testing.T) {
	key, _ := GenerateKey()
	_, err := Decrypt(key, []byte("short"))
	require.Error(t, err)
	assert.Equal(t, apperr.IntegrityFailure, apperr.CategoryOf(err))
}

func TestEncryptRejectsWrongKeySize(t *testing.T) {
	_, err := Encrypt([]byte("tooshort"), []byte("data"))
	require.Error(t, err)
	assert.Equal(t, apperr.IntegrityFailure, apperr.CategoryOf(err))
}
