package zones

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles delivery zone persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to zone operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActiveByStore returns the store's active zones, oldest first.
func (r *Repository) ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]models.DeliveryZone, error) {
	var rows []models.DeliveryZone
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindSettings loads the store's delivery fallbacks. Missing rows yield gorm.ErrRecordNotFound.
func (r *Repository) FindSettings(ctx context.Context, storeID uuid.UUID) (*models.StoreDeliverySettings, error) {
	var settings models.StoreDeliverySettings
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}
