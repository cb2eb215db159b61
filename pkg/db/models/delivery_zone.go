package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/geo"
)

// DeliveryZone is a store-owned geofence with its own delivery fee.
type DeliveryZone struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	StoreID      uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	Name         string          `gorm:"column:name;not null"`
	Type         enums.ZoneType  `gorm:"column:zone_type;type:text;not null"`
	Center       *geo.Point      `gorm:"column:center;type:geography(Point,4326)"`
	RadiusMeters *float64        `gorm:"column:radius_meters"`
	Coordinates  geo.Ring        `gorm:"column:coordinates;type:jsonb"`
	DeliveryFee  decimal.Decimal `gorm:"column:delivery_fee;type:numeric(10,2);not null"`
	IsActive     bool            `gorm:"column:is_active;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (DeliveryZone) TableName() string { return "delivery_zones" }

func (z *DeliveryZone) BeforeCreate(*gorm.DB) error {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	return nil
}
