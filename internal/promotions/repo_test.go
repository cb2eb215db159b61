package promotions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPromotionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	promotions := `
CREATE TABLE IF NOT EXISTS promotions (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  promotion_type TEXT NOT NULL,
  scope TEXT NOT NULL DEFAULT 'store',
  category_ids TEXT,
  product_ids TEXT,
  discount_percentage NUMERIC,
  discount_amount NUMERIC,
  buy_quantity INTEGER,
  get_quantity INTEGER,
  applies_to_delivery INTEGER NOT NULL DEFAULT 1,
  applies_to_pickup INTEGER NOT NULL DEFAULT 1,
  first_order_only INTEGER NOT NULL DEFAULT 0,
  minimum_order_value NUMERIC,
  max_uses INTEGER,
  max_uses_per_customer INTEGER,
  start_date DATETIME,
  end_date DATETIME,
  allowed_days TEXT,
  start_time TEXT,
  end_time TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_visible INTEGER NOT NULL DEFAULT 1,
  show_popup INTEGER NOT NULL DEFAULT 0,
  popup_title TEXT,
  popup_message TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(promotions).Error)
	require.NoError(t, db.Exec(orders).Error)
	return db
}

func TestRepositoryListActiveByStore(t *testing.T) {
	db := setupPromotionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	storeID := uuid.New()
	category := uuid.New()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []models.Promotion{
		{
			StoreID:            storeID,
			Name:               "Pizza 20%",
			Type:               enums.PromotionTypePercentage,
			Scope:              enums.PromotionScopeCategory,
			CategoryIDs:        types.UUIDList{category},
			DiscountPercentage: nullDec("20"),
			AppliesToDelivery:  true,
			AppliesToPickup:    true,
			MinimumOrderValue:  nullDec("35.50"),
			MaxUses:            intPtr(100),
			StartDate:          &start,
			AllowedDays:        types.Weekdays{time.Friday},
			StartTime:          strPtr("18:00"),
			IsActive:           true,
			CreatedAt:          start.Add(2 * time.Hour),
		},
		{
			StoreID:           storeID,
			Name:              "Frete grátis",
			Type:              enums.PromotionTypeFreeDelivery,
			Scope:             enums.PromotionScopeStore,
			AppliesToDelivery: true,
			IsActive:          true,
			CreatedAt:         start,
		},
		{
			StoreID:           storeID,
			Name:              "Pausada",
			Type:              enums.PromotionTypeFreeDelivery,
			Scope:             enums.PromotionScopeStore,
			AppliesToDelivery: true,
			IsActive:          false,
			CreatedAt:         start,
		},
		{
			StoreID:           uuid.New(),
			Name:              "Outra loja",
			Type:              enums.PromotionTypeFreeDelivery,
			Scope:             enums.PromotionScopeStore,
			AppliesToDelivery: true,
			IsActive:          true,
			CreatedAt:         start,
		},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	got, err := repo.ListActiveByStore(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Frete grátis", got[0].Name)
	assert.Equal(t, "Pizza 20%", got[1].Name)

	pizza := got[1]
	assert.True(t, pizza.DiscountPercentage.Valid)
	assert.True(t, pizza.DiscountPercentage.Decimal.Equal(dec("20")))
	assert.False(t, pizza.DiscountAmount.Valid)
	assert.Equal(t, types.UUIDList{category}, pizza.CategoryIDs)
	assert.Equal(t, types.Weekdays{time.Friday}, pizza.AllowedDays)
	require.NotNil(t, pizza.MaxUses)
	assert.Equal(t, 100, *pizza.MaxUses)
	assert.Nil(t, pizza.MaxUsesPerCustomer)
	assert.False(t, got[0].AppliesToPickup)

	promos, rejects := FromModels(got)
	assert.Empty(t, rejects)
	require.Len(t, promos, 2)
	assert.Equal(t, enums.PromotionTypePercentage, promos[1].Type())
}

func TestRepositoryCountPriorOrders(t *testing.T) {
	db := setupPromotionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	storeID := uuid.New()
	customer := uuid.New()
	newcomer := uuid.New()
	waiting := uuid.New()

	orders := []models.Order{
		{StoreID: storeID, CustomerID: customer, Status: models.OrderStatusDelivered},
		{StoreID: storeID, CustomerID: customer, Status: models.OrderStatusCancelled},
		{StoreID: storeID, CustomerID: customer, Status: models.OrderStatusPending},
		{StoreID: storeID, CustomerID: newcomer, Status: models.OrderStatusCancelled},
		{StoreID: uuid.New(), CustomerID: newcomer, Status: models.OrderStatusDelivered},
		{StoreID: storeID, CustomerID: waiting, Status: models.OrderStatusPending},
		{StoreID: storeID, CustomerID: waiting, Status: models.OrderStatusConfirmed},
	}
	for i := range orders {
		require.NoError(t, db.Create(&orders[i]).Error)
	}

	count, err := repo.CountPriorOrders(ctx, storeID, customer)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.CountPriorOrders(ctx, storeID, newcomer)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Orders still in flight are not completed orders.
	count, err = repo.CountPriorOrders(ctx, storeID, waiting)
	require.NoError(t, err)
	assert.Zero(t, count)
}
