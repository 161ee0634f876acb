package interfaces

import (
	"github.com/fieldreach/fieldreach/internal/models"
)

// SessionVault encrypts and decrypts session state at rest. Implementations
// must refuse to operate without a configured encryption key and must return
// a models.DecryptionError when ciphertext cannot be authenticated.
type SessionVault interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(encoded string) ([]byte, error)

	// SealSnapshot serializes and encrypts a session snapshot for storage.
	SealSnapshot(snapshot *models.SessionSnapshot) (string, error)

	// OpenSnapshot decrypts and deserializes a stored session snapshot.
	OpenSnapshot(encoded string) (*models.SessionSnapshot, error)
}
