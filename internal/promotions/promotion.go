package promotions

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Promotion is a validated store promotion. The type-specific parameters live
// in Terms, so a promotion only carries the fields its type uses.
type Promotion struct {
	ID          uuid.UUID `json:"id"`
	StoreID     uuid.UUID `json:"store_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Scope       Scope     `json:"scope"`
	Terms       Terms     `json:"-"`

	AppliesToDelivery  bool             `json:"applies_to_delivery"`
	AppliesToPickup    bool             `json:"applies_to_pickup"`
	FirstOrderOnly     bool             `json:"first_order_only"`
	MinimumOrderValue  *decimal.Decimal `json:"minimum_order_value,omitempty"`
	MaxUses            *int             `json:"max_uses,omitempty"`
	MaxUsesPerCustomer *int             `json:"max_uses_per_customer,omitempty"`

	Schedule  Schedule  `json:"schedule"`
	Display   Display   `json:"display"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Type returns the promotion type implied by its terms.
func (p Promotion) Type() enums.PromotionType {
	if p.Terms == nil {
		return ""
	}
	return p.Terms.Type()
}

// RequiresFirstOrder reports whether the customer must have no prior order.
func (p Promotion) RequiresFirstOrder() bool {
	return p.FirstOrderOnly || p.Type() == enums.PromotionTypeFirstOrder
}

func (p Promotion) hasUsageCaps() bool {
	return p.MaxUses != nil || p.MaxUsesPerCustomer != nil
}

// Terms is the closed set of promotion parameters, one implementation per type.
type Terms interface {
	Type() enums.PromotionType
	isTerms()
}

// PercentageTerms discounts a percentage of the in-scope subtotal.
type PercentageTerms struct {
	Percentage decimal.Decimal `json:"percentage"`
}

// FixedAmountTerms discounts a flat amount, capped at the in-scope subtotal.
type FixedAmountTerms struct {
	Amount decimal.Decimal `json:"amount"`
}

// FreeDeliveryTerms waives the delivery fee.
type FreeDeliveryTerms struct{}

// BOGOTerms gives GetQuantity units free for every BuyQuantity units bought.
type BOGOTerms struct {
	BuyQuantity int `json:"buy_quantity"`
	GetQuantity int `json:"get_quantity"`
}

// FirstOrderTerms rewards a customer's first order with a percentage, a flat
// amount, or whichever is larger when both are set.
type FirstOrderTerms struct {
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

func (PercentageTerms) Type() enums.PromotionType   { return enums.PromotionTypePercentage }
func (FixedAmountTerms) Type() enums.PromotionType  { return enums.PromotionTypeFixedAmount }
func (FreeDeliveryTerms) Type() enums.PromotionType { return enums.PromotionTypeFreeDelivery }
func (BOGOTerms) Type() enums.PromotionType         { return enums.PromotionTypeBOGO }
func (FirstOrderTerms) Type() enums.PromotionType   { return enums.PromotionTypeFirstOrder }

func (PercentageTerms) isTerms()   {}
func (FixedAmountTerms) isTerms()  {}
func (FreeDeliveryTerms) isTerms() {}
func (BOGOTerms) isTerms()         {}
func (FirstOrderTerms) isTerms()   {}

// Scope limits a promotion to the whole store, a set of categories or a set of products.
type Scope struct {
	Kind        enums.PromotionScope `json:"kind"`
	CategoryIDs []uuid.UUID          `json:"category_ids,omitempty"`
	ProductIDs  []uuid.UUID          `json:"product_ids,omitempty"`
}

// StoreWide reports whether every item is in scope.
func (s Scope) StoreWide() bool {
	return s.Kind == enums.PromotionScopeStore || s.Kind == ""
}

// Includes reports whether a product with the given category is in scope.
func (s Scope) Includes(productID uuid.UUID, categoryID *uuid.UUID) bool {
	switch s.Kind {
	case enums.PromotionScopeCategory:
		return categoryID != nil && containsID(s.CategoryIDs, *categoryID)
	case enums.PromotionScopeProduct:
		return containsID(s.ProductIDs, productID)
	}
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// Schedule bounds when a promotion may apply. Unset fields do not constrain.
type Schedule struct {
	StartDate   *time.Time     `json:"start_date,omitempty"`
	EndDate     *time.Time     `json:"end_date,omitempty"`
	AllowedDays []time.Weekday `json:"allowed_days,omitempty"`
	StartTime   *TimeOfDay     `json:"start_time,omitempty"`
	EndTime     *TimeOfDay     `json:"end_time,omitempty"`
}

// Display carries the storefront presentation settings.
type Display struct {
	IsVisible    bool   `json:"is_visible"`
	ShowPopup    bool   `json:"show_popup"`
	PopupTitle   string `json:"popup_title,omitempty"`
	PopupMessage string `json:"popup_message,omitempty"`
}

// TimeOfDay is a wall-clock time in minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay accepts HH:MM or HH:MM:SS. Seconds are ignored.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// At returns the time of day of t.
func At(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText renders the time as HH:MM.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// CartItem is one line of the order being priced.
type CartItem struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
}

// LineTotal returns unit price times quantity, zero for empty lines.
func (i CartItem) LineTotal() decimal.Decimal {
	if i.Quantity <= 0 || i.UnitPrice.IsNegative() {
		return decimal.Zero
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the evaluation-time snapshot of a cart.
type Order struct {
	StoreID      uuid.UUID          `json:"store_id"`
	CustomerID   *uuid.UUID         `json:"customer_id,omitempty"`
	Items        []CartItem         `json:"items"`
	Subtotal     decimal.Decimal    `json:"subtotal"`
	DeliveryType enums.DeliveryType `json:"delivery_type"`
	DeliveryFee  decimal.Decimal    `json:"delivery_fee"`
}

// ItemsSubtotal sums the line totals.
func ItemsSubtotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
