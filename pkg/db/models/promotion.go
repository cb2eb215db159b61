package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Promotion is the flat storage row for every promotion type. Type-specific
// columns are nullable and only meaningful for their own type.
type Promotion struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey"`
	StoreID     uuid.UUID            `gorm:"column:store_id;type:uuid;not null;index"`
	Name        string               `gorm:"column:name;not null"`
	Description *string              `gorm:"column:description"`
	Type        enums.PromotionType  `gorm:"column:promotion_type;type:text;not null"`
	Scope       enums.PromotionScope `gorm:"column:scope;type:text;not null;default:'store'"`
	CategoryIDs types.UUIDList       `gorm:"column:category_ids;type:jsonb"`
	ProductIDs  types.UUIDList       `gorm:"column:product_ids;type:jsonb"`

	DiscountPercentage decimal.NullDecimal `gorm:"column:discount_percentage;type:numeric(5,2)"`
	DiscountAmount     decimal.NullDecimal `gorm:"column:discount_amount;type:numeric(10,2)"`
	BuyQuantity        *int                `gorm:"column:buy_quantity"`
	GetQuantity        *int                `gorm:"column:get_quantity"`

	AppliesToDelivery  bool                `gorm:"column:applies_to_delivery;not null"`
	AppliesToPickup    bool                `gorm:"column:applies_to_pickup;not null"`
	FirstOrderOnly     bool                `gorm:"column:first_order_only;not null;default:false"`
	MinimumOrderValue  decimal.NullDecimal `gorm:"column:minimum_order_value;type:numeric(10,2)"`
	MaxUses            *int                `gorm:"column:max_uses"`
	MaxUsesPerCustomer *int                `gorm:"column:max_uses_per_customer"`

	StartDate   *time.Time     `gorm:"column:start_date"`
	EndDate     *time.Time     `gorm:"column:end_date"`
	AllowedDays types.Weekdays `gorm:"column:allowed_days;type:jsonb"`
	StartTime   *string        `gorm:"column:start_time"`
	EndTime     *string        `gorm:"column:end_time"`

	IsActive     bool    `gorm:"column:is_active;not null"`
	IsVisible    bool    `gorm:"column:is_visible;not null"`
	ShowPopup    bool    `gorm:"column:show_popup;not null;default:false"`
	PopupTitle   *string `gorm:"column:popup_title"`
	PopupMessage *string `gorm:"column:popup_message"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Promotion) TableName() string { return "promotions" }

func (p *Promotion) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
