package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StoreDeliverySettings holds the per-store fallbacks used when no zone matches.
type StoreDeliverySettings struct {
	StoreID            uuid.UUID       `gorm:"column:store_id;type:uuid;primaryKey"`
	DefaultDeliveryFee decimal.Decimal `gorm:"column:default_delivery_fee;type:numeric(10,2);not null"`
	AcceptOutsideZone  bool            `gorm:"column:accept_outside_zone;not null;default:false"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (StoreDeliverySettings) TableName() string { return "store_delivery_settings" }
