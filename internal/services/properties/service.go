// -----------------------------------------------------------------------
// Property Service - Address intake for extraction runs
// -----------------------------------------------------------------------

package properties

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/ternarybob/arbor"
)

// Service manages the property records extraction runs target.
type Service struct {
	storage interfaces.PropertyStorage
	logger  arbor.ILogger
}

// NewService creates a property service.
func NewService(storage interfaces.PropertyStorage, logger arbor.ILogger) interfaces.PropertyService {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// CreateProperty validates and stores a single property.
func (s *Service) CreateProperty(ctx context.Context, property *models.Property) (*models.Property, error) {
	if err := prepare(property); err != nil {
		return nil, err
	}
	if err := s.storage.SaveProperty(ctx, property); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("property_id", property.ID).
		Str("street", property.Street).
		Msg("Property created")

	return property, nil
}

// ImportProperties stores a batch of properties. The batch is all-or-nothing
// on validation: one bad address rejects the whole import before anything is
// written.
func (s *Service) ImportProperties(ctx context.Context, properties []*models.Property) ([]*models.Property, error) {
	if len(properties) == 0 {
		return nil, fmt.Errorf("import contains no properties")
	}

	for i, property := range properties {
		if err := prepare(property); err != nil {
			return nil, fmt.Errorf("property %d: %w", i, err)
		}
	}

	if err := s.storage.SaveProperties(ctx, properties); err != nil {
		return nil, err
	}

	s.logger.Info().Int("count", len(properties)).Msg("Properties imported")
	return properties, nil
}

func (s *Service) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	return s.storage.GetProperty(ctx, id)
}

func (s *Service) ListProperties(ctx context.Context, opts *interfaces.PropertyListOptions) ([]*models.Property, error) {
	return s.storage.ListProperties(ctx, opts)
}

func (s *Service) DeleteProperty(ctx context.Context, id string) error {
	return s.storage.DeleteProperty(ctx, id)
}

// prepare fills defaults and rejects unusable records.
func prepare(property *models.Property) error {
	if property.Street == "" {
		return fmt.Errorf("street is required")
	}
	if property.Zip == "" {
		return fmt.Errorf("zip is required")
	}
	if property.ID == "" {
		property.ID = common.NewPropertyID()
	}
	if property.Status == "" {
		property.Status = models.PropertyStatusPending
	}
	if property.CreatedAt.IsZero() {
		property.CreatedAt = time.Now()
	}
	return nil
}
