package vault

import (
	"testing"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_EmptyKeyRefused(t *testing.T) {
	_, err := NewService("", common.GetLogger())
	require.Error(t, err)

	var cfgErr *models.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "vault.encryption_key", cfgErr.Setting)
}

func TestVault_RoundTrip(t *testing.T) {
	v, err := NewService("correct horse battery staple", common.GetLogger())
	require.NoError(t, err)

	plaintext := []byte(`{"cookies":[{"name":"auth","value":"tok"}]}`)
	encoded, err := v.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, encoded, "auth", "ciphertext must not leak plaintext")

	decrypted, err := v.Decrypt(encoded)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestVault_NoncesDiffer(t *testing.T) {
	v, err := NewService("passphrase", common.GetLogger())
	require.NoError(t, err)

	a, err := v.Encrypt([]byte("same input"))
	require.NoError(t, err)
	b, err := v.Encrypt([]byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "repeated encryption must use fresh nonces")
}

func TestVault_WrongKeyFailsAuthentication(t *testing.T) {
	v1, err := NewService("key one", common.GetLogger())
	require.NoError(t, err)
	v2, err := NewService("key two", common.GetLogger())
	require.NoError(t, err)

	encoded, err := v1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = v2.Decrypt(encoded)
	var decErr *models.DecryptionError
	assert.ErrorAs(t, err, &decErr)
}

func TestVault_TamperedCiphertextRejected(t *testing.T) {
	v, err := NewService("passphrase", common.GetLogger())
	require.NoError(t, err)

	encoded, err := v.Encrypt([]byte("secret"))
	require.NoError(t, err)

	tampered := []byte(encoded)
	tampered[len(tampered)-5] ^= 0x01

	_, err = v.Decrypt(string(tampered))
	var decErr *models.DecryptionError
	assert.ErrorAs(t, err, &decErr)
}

func TestVault_GarbageInputRejected(t *testing.T) {
	v, err := NewService("passphrase", common.GetLogger())
	require.NoError(t, err)

	var decErr *models.DecryptionError

	_, err = v.Decrypt("not base64 at all!!!")
	assert.ErrorAs(t, err, &decErr)

	_, err = v.Decrypt("c2hvcnQ=") // valid base64, shorter than a nonce
	assert.ErrorAs(t, err, &decErr)
}

func TestVault_SnapshotRoundTrip(t *testing.T) {
	v, err := NewService("passphrase", common.GetLogger())
	require.NoError(t, err)

	snap := &models.SessionSnapshot{
		Cookies: []models.Cookie{{Name: "auth", Value: "tok", Domain: "portal.example.com", Path: "/"}},
		Origins: []models.OriginStorage{{Origin: "https://portal.example.com", Entries: map[string]string{"token": "abc"}}},
	}

	encoded, err := v.SealSnapshot(snap)
	require.NoError(t, err)

	got, err := v.OpenSnapshot(encoded)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}
