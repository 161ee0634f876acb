package interfaces

import (
	"context"
	"time"

	"github.com/fieldreach/fieldreach/internal/models"
)

// SessionService manages encrypted portal sessions end to end: creation from
// a captured snapshot or from credentials, validation, listing, and expiry.
type SessionService interface {
	// CreateSession encrypts the snapshot and persists it with the given
	// label and time to live.
	CreateSession(ctx context.Context, label string, snapshot *models.SessionSnapshot, ttl time.Duration) (*models.Session, error)

	// CreateSessionFromCredentials runs the portal login flow and stores the
	// resulting snapshot as a new session.
	CreateSessionFromCredentials(ctx context.Context, label, username, password string, ttl time.Duration) (*models.Session, error)

	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context) ([]*models.Session, error)

	// OpenSnapshot decrypts the session's stored browser state. Returns
	// SessionExpiredError when the session is expired or deactivated.
	OpenSnapshot(ctx context.Context, session *models.Session) (*models.SessionSnapshot, error)

	// ValidateSession checks a stored session against the live portal
	// without performing any extraction.
	ValidateSession(ctx context.Context, id string) error

	// DeactivateSession marks a session unusable without deleting its record.
	DeactivateSession(ctx context.Context, id string) error

	// DeactivateExpired sweeps all active sessions past their expiry.
	DeactivateExpired(ctx context.Context) (int, error)
}
