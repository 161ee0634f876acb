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

// PropertyStorage implements the PropertyStorage interface for Badger
type PropertyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPropertyStorage creates a new PropertyStorage instance
func NewPropertyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PropertyStorage {
	return &PropertyStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PropertyStorage) SaveProperty(ctx context.Context, property *models.Property) error {
	if property.ID == "" {
		return fmt.Errorf("property ID is required")
	}
	property.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(property.ID, property); err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}
	return nil
}

func (s *PropertyStorage) SaveProperties(ctx context.Context, properties []*models.Property) error {
	for _, property := range properties {
		if err := s.SaveProperty(ctx, property); err != nil {
			return err
		}
	}
	return nil
}

func (s *PropertyStorage) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	if err := s.db.Store().Get(id, &property); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("property not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &property, nil
}

func (s *PropertyStorage) ListProperties(ctx context.Context, opts *interfaces.PropertyListOptions) ([]*models.Property, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}
	query = query.SortBy("CreatedAt").Reverse()

	var properties []models.Property
	if err := s.db.Store().Find(&properties, query); err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	result := make([]*models.Property, len(properties))
	for i := range properties {
		result[i] = &properties[i]
	}
	return result, nil
}

func (s *PropertyStorage) DeleteProperty(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Property{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("property not found: %s", id)
		}
		return fmt.Errorf("failed to delete property: %w", err)
	}
	return nil
}

func (s *PropertyStorage) CountProperties(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Property{}, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return int(count), nil
}
