package promotions

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles promotion and order-history reads.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to promotion operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActiveByStore returns the store's active promotions, oldest first.
func (r *Repository) ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]models.Promotion, error) {
	var rows []models.Promotion
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountPriorOrders counts the customer's completed (delivered) orders at the
// store. Pending, confirmed and cancelled orders do not count.
func (r *Repository) CountPriorOrders(ctx context.Context, storeID, customerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("store_id = ? AND customer_id = ? AND status = ?", storeID, customerID, models.OrderStatusDelivered).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
