package interfaces

import (
	"context"
	"time"

	"github.com/fieldreach/fieldreach/internal/models"
)

// SessionStorage - interface for persisted portal session records
type SessionStorage interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context) ([]*models.Session, error)
	ListActiveSessions(ctx context.Context) ([]*models.Session, error)
	DeleteSession(ctx context.Context, id string) error

	// DeactivateExpired flips IsActive off for every active session whose
	// ExpiresAt is at or before now. Returns the number of sessions changed.
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
}

// PropertyStorage - interface for property record persistence
type PropertyStorage interface {
	SaveProperty(ctx context.Context, property *models.Property) error
	SaveProperties(ctx context.Context, properties []*models.Property) error
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	ListProperties(ctx context.Context, opts *PropertyListOptions) ([]*models.Property, error)
	DeleteProperty(ctx context.Context, id string) error
	CountProperties(ctx context.Context) (int, error)
}

// PropertyListOptions filters and pages property listings
type PropertyListOptions struct {
	Status models.PropertyStatus
	Limit  int
	Offset int
}

// RunStorage - interface for extraction run and run item persistence
type RunStorage interface {
	SaveRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*models.Run, error)

	SaveRunItem(ctx context.Context, item *models.RunItem) error
	SaveRunItems(ctx context.Context, items []*models.RunItem) error

	// GetRunItems returns the items of a run ordered by Seq ascending.
	GetRunItems(ctx context.Context, runID string) ([]*models.RunItem, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	SessionStorage() SessionStorage
	PropertyStorage() PropertyStorage
	RunStorage() RunStorage
	DB() interface{}
	Close() error
}
