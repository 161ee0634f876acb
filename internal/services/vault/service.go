// -----------------------------------------------------------------------
// Session Vault - AES-256-GCM encryption of session state at rest
// -----------------------------------------------------------------------

package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/ternarybob/arbor"
)

// Service encrypts session snapshots with AES-256-GCM. The key is derived
// from the operator passphrase with SHA-256, so any passphrase length works
// while the cipher always gets a 32-byte key. GCM authenticates the
// ciphertext: a flipped bit or a wrong passphrase both surface as a
// DecryptionError, never as silently corrupt plaintext.
type Service struct {
	key    []byte
	logger arbor.ILogger
}

// NewService creates a vault from the operator passphrase. An empty
// passphrase is a configuration error: the vault refuses to start rather
// than silently storing sessions unprotected.
func NewService(passphrase string, logger arbor.ILogger) (interfaces.SessionVault, error) {
	if passphrase == "" {
		return nil, &models.ConfigurationError{
			Setting: "vault.encryption_key",
			Reason:  "no encryption key configured, set FIELDREACH_VAULT_KEY or vault.encryption_key",
		}
	}

	key := sha256.Sum256([]byte(passphrase))

	return &Service{
		key:    key[:],
		logger: logger,
	}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (s *Service) Encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens base64(nonce || ciphertext). Tampered data and wrong keys
// fail GCM authentication and return a DecryptionError.
func (s *Service) Decrypt(encoded string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &models.DecryptionError{Reason: "session state is not valid base64"}
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, &models.DecryptionError{Reason: "session state is truncated"}
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &models.DecryptionError{Reason: "session state failed authentication, wrong key or corrupt data"}
	}

	return plaintext, nil
}

// SealSnapshot serializes and encrypts a session snapshot for storage.
func (s *Service) SealSnapshot(snapshot *models.SessionSnapshot) (string, error) {
	data, err := snapshot.ToJSON()
	if err != nil {
		return "", err
	}
	return s.Encrypt(data)
}

// OpenSnapshot decrypts and deserializes a stored session snapshot.
func (s *Service) OpenSnapshot(encoded string) (*models.SessionSnapshot, error) {
	data, err := s.Decrypt(encoded)
	if err != nil {
		return nil, err
	}
	return models.SnapshotFromJSON(data)
}
