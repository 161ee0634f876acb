// -----------------------------------------------------------------------
// Session Service - Encrypted portal session lifecycle
// -----------------------------------------------------------------------

package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/ternarybob/arbor"
)

const defaultSessionTTL = 12 * time.Hour

// Service manages encrypted portal sessions: creation from captured
// snapshots or credentials, validation against the live portal, and expiry.
type Service struct {
	storage    interfaces.SessionStorage
	vault      interfaces.SessionVault
	automation interfaces.AutomationService
	logger     arbor.ILogger
}

// NewService creates a session service.
func NewService(storage interfaces.SessionStorage, vault interfaces.SessionVault, automation interfaces.AutomationService, logger arbor.ILogger) interfaces.SessionService {
	return &Service{
		storage:    storage,
		vault:      vault,
		automation: automation,
		logger:     logger,
	}
}

// CreateSession encrypts the snapshot and persists it. The plaintext
// snapshot is discarded once the ciphertext is stored.
func (s *Service) CreateSession(ctx context.Context, label string, snapshot *models.SessionSnapshot, ttl time.Duration) (*models.Session, error) {
	if snapshot == nil || len(snapshot.Cookies) == 0 {
		return nil, fmt.Errorf("session snapshot has no cookies, nothing to persist")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	encrypted, err := s.vault.SealSnapshot(snapshot)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &models.Session{
		ID:             common.NewSessionID(),
		Label:          label,
		EncryptedState: encrypted,
		ExpiresAt:      now.Add(ttl),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("label", label).
		Str("expires_at", session.ExpiresAt.Format(time.RFC3339)).
		Msg("Session created")

	return session, nil
}

// CreateSessionFromCredentials runs the portal login flow and stores the
// resulting snapshot. Credentials are used once and never persisted.
func (s *Service) CreateSessionFromCredentials(ctx context.Context, label, username, password string, ttl time.Duration) (*models.Session, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	snapshot, err := s.automation.LoginWithCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}

	// Round-trip the snapshot through a fresh browser context before
	// storing it. A snapshot that cannot be restored is worthless.
	if err := s.automation.ValidateSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}

	return s.CreateSession(ctx, label, snapshot, ttl)
}

func (s *Service) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return s.storage.GetSession(ctx, id)
}

func (s *Service) ListSessions(ctx context.Context) ([]*models.Session, error) {
	return s.storage.ListSessions(ctx)
}

// OpenSnapshot decrypts the session's stored browser state. Expired and
// deactivated sessions are refused before any decryption work happens.
func (s *Service) OpenSnapshot(ctx context.Context, session *models.Session) (*models.SessionSnapshot, error) {
	if !session.IsUsable(time.Now()) {
		return nil, &models.SessionExpiredError{
			Reason: fmt.Sprintf("session %s is expired or deactivated, create a new session", session.ID),
		}
	}
	return s.vault.OpenSnapshot(session.EncryptedState)
}

// ValidateSession checks a stored session against the live portal without
// performing any extraction. A session the portal rejects is deactivated so
// no run picks it up afterwards.
func (s *Service) ValidateSession(ctx context.Context, id string) error {
	session, err := s.storage.GetSession(ctx, id)
	if err != nil {
		return err
	}

	snapshot, err := s.OpenSnapshot(ctx, session)
	if err != nil {
		return err
	}

	if err := s.automation.ValidateSnapshot(ctx, snapshot); err != nil {
		if models.IsSessionFailure(err) {
			if deactivateErr := s.DeactivateSession(ctx, id); deactivateErr != nil {
				s.logger.Warn().Err(deactivateErr).Str("session_id", id).Msg("Failed to deactivate rejected session")
			}
		}
		return err
	}

	s.logger.Debug().Str("session_id", id).Msg("Session validated against portal")
	return nil
}

// DeactivateSession marks a session unusable without deleting its record.
func (s *Service) DeactivateSession(ctx context.Context, id string) error {
	session, err := s.storage.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if !session.IsActive {
		return nil
	}

	session.IsActive = false
	if err := s.storage.SaveSession(ctx, session); err != nil {
		return err
	}

	s.logger.Info().Str("session_id", id).Msg("Session deactivated")
	return nil
}

// DeactivateExpired sweeps all active sessions past their expiry.
func (s *Service) DeactivateExpired(ctx context.Context) (int, error) {
	count, err := s.storage.DeactivateExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info().Int("count", count).Msg("Expired sessions deactivated")
	}
	return count, nil
}
