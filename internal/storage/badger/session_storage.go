package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// SessionStorage implements the SessionStorage interface for Badger
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SessionStorage) SaveSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	session.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(session.ID, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := s.db.Store().Get(id, &session); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("session not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (s *SessionStorage) ListSessions(ctx context.Context) ([]*models.Session, error) {
	var sessions []models.Session
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&sessions, query); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	result := make([]*models.Session, len(sessions))
	for i := range sessions {
		result[i] = &sessions[i]
	}
	return result, nil
}

func (s *SessionStorage) ListActiveSessions(ctx context.Context) ([]*models.Session, error) {
	var sessions []models.Session
	query := badgerhold.Where("IsActive").Eq(true).SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&sessions, query); err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}

	result := make([]*models.Session, len(sessions))
	for i := range sessions {
		result[i] = &sessions[i]
	}
	return result, nil
}

func (s *SessionStorage) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Session{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("session not found: %s", id)
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SessionStorage) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	var sessions []models.Session
	query := badgerhold.Where("IsActive").Eq(true)
	if err := s.db.Store().Find(&sessions, query); err != nil {
		return 0, fmt.Errorf("failed to query active sessions: %w", err)
	}

	deactivated := 0
	for i := range sessions {
		if sessions[i].ExpiresAt.After(now) {
			continue
		}
		sessions[i].IsActive = false
		sessions[i].UpdatedAt = now
		if err := s.db.Store().Upsert(sessions[i].ID, &sessions[i]); err != nil {
			return deactivated, fmt.Errorf("failed to deactivate session %s: %w", sessions[i].ID, err)
		}
		s.logger.Debug().
			Str("session_id", sessions[i].ID).
			Str("expired_at", sessions[i].ExpiresAt.Format(time.RFC3339)).
			Msg("Deactivated expired session")
		deactivated++
	}
	return deactivated, nil
}
