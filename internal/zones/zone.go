package zones

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/geo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Zone is the evaluation-time view of a delivery zone.
type Zone struct {
	ID           uuid.UUID       `json:"id"`
	StoreID      uuid.UUID       `json:"store_id"`
	Name         string          `json:"name"`
	Type         enums.ZoneType  `json:"type"`
	Center       *geo.Point      `json:"center,omitempty"`
	RadiusMeters *float64        `json:"radius_meters,omitempty"`
	Coordinates  []geo.Point     `json:"coordinates,omitempty"`
	DeliveryFee  decimal.Decimal `json:"delivery_fee"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Reasons a stored zone is excluded from matching.
const (
	RejectUnknownType       = "unknown_type"
	RejectMissingCenter     = "missing_center"
	RejectInvalidRadius     = "invalid_radius"
	RejectTooFewCoordinates = "too_few_coordinates"
	RejectInvalidCoordinate = "invalid_coordinate"
	RejectNegativeFee       = "negative_fee"
)

// Reject records a zone that can never match together with the reason.
type Reject struct {
	Record models.DeliveryZone
	Reason string
}

// defect returns the reason z cannot be matched, or "" when the geometry is usable.
func (z Zone) defect() string {
	switch z.Type {
	case enums.ZoneTypeRadius:
		if z.Center == nil || !z.Center.IsValid() {
			return RejectMissingCenter
		}
		if z.RadiusMeters == nil || *z.RadiusMeters <= 0 {
			return RejectInvalidRadius
		}
	case enums.ZoneTypePolygon:
		if len(z.Coordinates) < 3 {
			return RejectTooFewCoordinates
		}
		for _, pt := range z.Coordinates {
			if !pt.IsValid() {
				return RejectInvalidCoordinate
			}
		}
	default:
		return RejectUnknownType
	}
	if z.DeliveryFee.IsNegative() {
		return RejectNegativeFee
	}
	return ""
}

func (z Zone) contains(p geo.Point) bool {
	switch z.Type {
	case enums.ZoneTypeRadius:
		return geo.PointInRadius(p, *z.Center, *z.RadiusMeters)
	case enums.ZoneTypePolygon:
		return geo.PointInPolygon(p, z.Coordinates)
	}
	return false
}

func (z Zone) area(mode AreaMode) float64 {
	switch z.Type {
	case enums.ZoneTypeRadius:
		return geo.CircleArea(*z.RadiusMeters)
	case enums.ZoneTypePolygon:
		if mode == AreaModeShoelace {
			return geo.PolygonArea(z.Coordinates)
		}
	}
	return 0
}

// FromModel maps a stored zone without validating it.
func FromModel(m models.DeliveryZone) Zone {
	z := Zone{
		ID:          m.ID,
		StoreID:     m.StoreID,
		Name:        m.Name,
		Type:        m.Type,
		DeliveryFee: m.DeliveryFee,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
	}
	if m.Center != nil {
		center := *m.Center
		z.Center = &center
	}
	if m.RadiusMeters != nil {
		radius := *m.RadiusMeters
		z.RadiusMeters = &radius
	}
	if len(m.Coordinates) > 0 {
		z.Coordinates = append([]geo.Point(nil), m.Coordinates...)
	}
	return z
}

// FromModels maps stored zones and splits out the ones whose geometry or fee
// can never produce a match. Inactive zones are kept; the resolver skips them.
func FromModels(rows []models.DeliveryZone) ([]Zone, []Reject) {
	zones := make([]Zone, 0, len(rows))
	var rejects []Reject
	for _, row := range rows {
		z := FromModel(row)
		if reason := z.defect(); reason != "" {
			rejects = append(rejects, Reject{Record: row, Reason: reason})
			continue
		}
		zones = append(zones, z)
	}
	return zones, rejects
}
