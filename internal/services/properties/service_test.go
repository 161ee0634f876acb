package properties

import (
	"context"
	"fmt"
	"testing"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPropertyStorage struct {
	properties map[string]*models.Property
	saves      int
}

func newMockPropertyStorage() *mockPropertyStorage {
	return &mockPropertyStorage{properties: make(map[string]*models.Property)}
}

func (m *mockPropertyStorage) SaveProperty(ctx context.Context, property *models.Property) error {
	m.saves++
	m.properties[property.ID] = property
	return nil
}

func (m *mockPropertyStorage) SaveProperties(ctx context.Context, properties []*models.Property) error {
	for _, p := range properties {
		if err := m.SaveProperty(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockPropertyStorage) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	p, ok := m.properties[id]
	if !ok {
		return nil, fmt.Errorf("property not found: %s", id)
	}
	return p, nil
}

func (m *mockPropertyStorage) ListProperties(ctx context.Context, opts *interfaces.PropertyListOptions) ([]*models.Property, error) {
	var result []*models.Property
	for _, p := range m.properties {
		result = append(result, p)
	}
	return result, nil
}

func (m *mockPropertyStorage) DeleteProperty(ctx context.Context, id string) error {
	delete(m.properties, id)
	return nil
}

func (m *mockPropertyStorage) CountProperties(ctx context.Context) (int, error) {
	return len(m.properties), nil
}

func TestCreateProperty_FillsDefaults(t *testing.T) {
	storage := newMockPropertyStorage()
	svc := NewService(storage, common.GetLogger())

	p, err := svc.CreateProperty(context.Background(), &models.Property{Street: "123 Main St", Zip: "30301"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, models.PropertyStatusPending, p.Status)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestCreateProperty_RequiresStreetAndZip(t *testing.T) {
	svc := NewService(newMockPropertyStorage(), common.GetLogger())
	ctx := context.Background()

	_, err := svc.CreateProperty(ctx, &models.Property{Zip: "30301"})
	assert.ErrorContains(t, err, "street is required")

	_, err = svc.CreateProperty(ctx, &models.Property{Street: "123 Main St"})
	assert.ErrorContains(t, err, "zip is required")
}

func TestImportProperties_RejectsWholeBatchOnBadRecord(t *testing.T) {
	storage := newMockPropertyStorage()
	svc := NewService(storage, common.GetLogger())

	_, err := svc.ImportProperties(context.Background(), []*models.Property{
		{Street: "123 Main St", Zip: "30301"},
		{Street: "", Zip: "30302"},
	})
	assert.ErrorContains(t, err, "property 1")
	assert.Equal(t, 0, storage.saves, "nothing may be written when validation fails")
}

func TestImportProperties(t *testing.T) {
	storage := newMockPropertyStorage()
	svc := NewService(storage, common.GetLogger())

	imported, err := svc.ImportProperties(context.Background(), []*models.Property{
		{Street: "123 Main St", Zip: "30301"},
		{Street: "456 Oak Ave", Zip: "30302"},
	})
	require.NoError(t, err)
	assert.Len(t, imported, 2)
	assert.Equal(t, 2, storage.saves)
}
