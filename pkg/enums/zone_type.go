package enums

import "fmt"

// ZoneType describes the geometry backing a delivery zone.
type ZoneType string

const (
	ZoneTypeRadius  ZoneType = "radius"
	ZoneTypePolygon ZoneType = "polygon"
)

var validZoneTypes = []ZoneType{
	ZoneTypeRadius,
	ZoneTypePolygon,
}

// String implements fmt.Stringer.
func (v ZoneType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ZoneType.
func (v ZoneType) IsValid() bool {
	for _, candidate := range validZoneTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseZoneType converts raw input into a ZoneType.
func ParseZoneType(value string) (ZoneType, error) {
	for _, candidate := range validZoneTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid zone type %q", value)
}
