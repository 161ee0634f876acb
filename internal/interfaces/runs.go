package interfaces

import (
	"context"

	"github.com/fieldreach/fieldreach/internal/models"
)

// RunService manages batch extraction runs over a shared portal session.
type RunService interface {
	// CreateRun atomically creates a run and one queued item per property,
	// in the order the property IDs are given.
	CreateRun(ctx context.Context, sessionID string, propertyIDs []string) (*models.Run, error)

	// StartRun transitions a queued run to running. Returns an error when
	// the run is not in the queued state, so a run can never be started
	// twice.
	StartRun(ctx context.Context, runID string) error

	// ProcessRun executes a running run to completion: items in sequence
	// order, fail-fast on session failures, continue on address-level
	// misses. Terminal status and counts are persisted before it returns.
	ProcessRun(ctx context.Context, runID string) error

	GetRun(ctx context.Context, runID string) (*models.Run, []*models.RunItem, error)
	ListRuns(ctx context.Context, limit int) ([]*models.Run, error)
}
