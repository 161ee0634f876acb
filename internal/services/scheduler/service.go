// -----------------------------------------------------------------------
// Scheduler - Cron-driven background maintenance
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Service runs periodic maintenance: sweeping expired sessions so that no
// run can pick up a session the portal would reject anyway.
type Service struct {
	cron     *cron.Cron
	sessions interfaces.SessionService
	schedule string
	logger   arbor.ILogger
}

// NewService creates a scheduler with the configured sweep cron schedule.
func NewService(sessions interfaces.SessionService, config *common.SchedulerConfig, logger arbor.ILogger) (*Service, error) {
	schedule := config.SessionSweepSchedule
	if schedule == "" {
		schedule = "*/15 * * * *"
	}

	// Validate the expression up front so a bad config fails at startup,
	// not at first tick.
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid session sweep schedule %q: %w", schedule, err)
	}

	return &Service{
		cron:     cron.New(),
		sessions: sessions,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start registers the sweep job and starts the cron loop. One sweep runs
// immediately so a restart never leaves stale sessions active until the
// next tick.
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.sweep)
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("Scheduler started")

	common.SafeGo(s.logger, "initialSessionSweep", s.sweep)
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Service) sweep() {
	count, err := s.sessions.DeactivateExpired(context.Background())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Session sweep failed")
		return
	}
	if count > 0 {
		s.logger.Info().Int("deactivated", count).Msg("Session sweep completed")
	}
}
