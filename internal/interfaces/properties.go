package interfaces

import (
	"context"

	"github.com/fieldreach/fieldreach/internal/models"
)

// PropertyService manages the property records that extraction runs target.
type PropertyService interface {
	CreateProperty(ctx context.Context, property *models.Property) (*models.Property, error)
	ImportProperties(ctx context.Context, properties []*models.Property) ([]*models.Property, error)
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	ListProperties(ctx context.Context, opts *PropertyListOptions) ([]*models.Property, error)
	DeleteProperty(ctx context.Context, id string) error
}
