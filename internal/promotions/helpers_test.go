package promotions

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	testStoreID = uuid.MustParse("7f3c2b1e-0d5a-4c1b-9e8f-1a2b3c4d5e6f")
	baseCreated = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func intPtr(v int) *int {
	return &v
}

func newPromo(name string, terms Terms) Promotion {
	return Promotion{
		ID:                uuid.New(),
		StoreID:           testStoreID,
		Name:              name,
		Scope:             Scope{Kind: enums.PromotionScopeStore},
		Terms:             terms,
		AppliesToDelivery: true,
		AppliesToPickup:   true,
		IsActive:          true,
		CreatedAt:         baseCreated,
	}
}

func item(price string, qty int) CartItem {
	return CartItem{ID: uuid.New(), Name: "item", UnitPrice: dec(price), Quantity: qty}
}

func newOrder(items ...CartItem) Order {
	return Order{
		StoreID:      testStoreID,
		Items:        items,
		Subtotal:     ItemsSubtotal(items),
		DeliveryType: enums.DeliveryTypeDelivery,
	}
}
