// -----------------------------------------------------------------------
// Portal Session - Encrypted browser-session snapshot records
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Session is a persisted, encrypted snapshot of an authenticated portal
// browser session. The plaintext snapshot never touches disk; EncryptedState
// holds the vault ciphertext.
type Session struct {
	ID             string    `json:"id" badgerhold:"key"`
	Label          string    `json:"label"`
	EncryptedState string    `json:"encrypted_state"`
	ExpiresAt      time.Time `json:"expires_at"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsUsable reports whether the session may back an extraction run:
// active and not yet expired. Pure function of the record and the clock.
func (s *Session) IsUsable(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}

// Cookie mirrors the browser cookie fields the portal session depends on.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"` // Unix seconds, 0 = session cookie
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
	SameSite string  `json:"same_site,omitempty"`
}

// OriginStorage carries one origin's localStorage entries.
type OriginStorage struct {
	Origin  string            `json:"origin"`
	Entries map[string]string `json:"entries"`
}

// SessionSnapshot is the serialized browser-session state (cookies plus
// per-origin localStorage) that lets a fresh browser context resume an
// authenticated portal session without re-login.
type SessionSnapshot struct {
	Cookies []Cookie        `json:"cookies"`
	Origins []OriginStorage `json:"origins,omitempty"`
}

// ToJSON serializes the snapshot for vault encryption.
func (s *SessionSnapshot) ToJSON() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	return data, nil
}

// SnapshotFromJSON deserializes a decrypted snapshot blob.
func SnapshotFromJSON(data []byte) (*SessionSnapshot, error) {
	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}
	return &snap, nil
}
