// -----------------------------------------------------------------------
// Run Service - Batch extraction run lifecycle
// -----------------------------------------------------------------------

package runs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/ternarybob/arbor"
)

// Service manages extraction runs. Creation and the queued-to-running
// transition are serialized under a mutex so a run can never be started
// twice; processing itself is delegated to the orchestrator.
type Service struct {
	storage    interfaces.RunStorage
	properties interfaces.PropertyStorage
	sessions   interfaces.SessionService
	automation interfaces.AutomationService
	logger     arbor.ILogger

	startMu sync.Mutex
}

// NewService creates a run service.
func NewService(storage interfaces.RunStorage, properties interfaces.PropertyStorage, sessions interfaces.SessionService, automation interfaces.AutomationService, logger arbor.ILogger) interfaces.RunService {
	return &Service{
		storage:    storage,
		properties: properties,
		sessions:   sessions,
		automation: automation,
		logger:     logger,
	}
}

// CreateRun creates a run and one queued item per property, in the order
// the property IDs are given. The session and every property must exist
// before anything is written.
func (s *Service) CreateRun(ctx context.Context, sessionID string, propertyIDs []string) (*models.Run, error) {
	if len(propertyIDs) == 0 {
		return nil, fmt.Errorf("run needs at least one property")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsUsable(time.Now()) {
		return nil, &models.SessionExpiredError{
			Reason: fmt.Sprintf("session %s is expired or deactivated, create a new session", sessionID),
		}
	}

	for _, propertyID := range propertyIDs {
		if _, err := s.properties.GetProperty(ctx, propertyID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	run := &models.Run{
		ID:         common.NewRunID(),
		SessionID:  sessionID,
		Status:     models.RunStatusQueued,
		TotalCount: len(propertyIDs),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	items := make([]*models.RunItem, 0, len(propertyIDs))
	for seq, propertyID := range propertyIDs {
		items = append(items, &models.RunItem{
			ID:         common.NewRunItemID(),
			RunID:      run.ID,
			PropertyID: propertyID,
			Seq:        seq,
			Status:     models.RunItemStatusQueued,
			UpdatedAt:  now,
		})
	}

	if err := s.storage.SaveRun(ctx, run); err != nil {
		return nil, err
	}
	if err := s.storage.SaveRunItems(ctx, items); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("run_id", run.ID).
		Str("session_id", sessionID).
		Int("items", len(items)).
		Msg("Run created")

	return run, nil
}

// StartRun transitions a queued run to running. The check-and-set is held
// under a mutex: two concurrent starts see exactly one winner, the loser
// gets a state error.
func (s *Service) StartRun(ctx context.Context, runID string) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	run, err := s.storage.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	if run.Status != models.RunStatusQueued {
		return fmt.Errorf("run %s is %s, only queued runs can be started", runID, run.Status)
	}

	run.MarkStarted()
	if err := s.storage.SaveRun(ctx, run); err != nil {
		return err
	}

	s.logger.Info().Str("run_id", runID).Msg("Run started")
	return nil
}

func (s *Service) GetRun(ctx context.Context, runID string) (*models.Run, []*models.RunItem, error) {
	run, err := s.storage.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.storage.GetRunItems(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return run, items, nil
}

func (s *Service) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	return s.storage.ListRuns(ctx, limit)
}
