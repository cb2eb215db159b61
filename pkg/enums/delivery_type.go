package enums

import "fmt"

// DeliveryType distinguishes courier delivery from customer pickup.
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

var validDeliveryTypes = []DeliveryType{
	DeliveryTypeDelivery,
	DeliveryTypePickup,
}

// String implements fmt.Stringer.
func (v DeliveryType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DeliveryType.
func (v DeliveryType) IsValid() bool {
	for _, candidate := range validDeliveryTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDeliveryType converts raw input into a DeliveryType.
func ParseDeliveryType(value string) (DeliveryType, error) {
	for _, candidate := range validDeliveryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery type %q", value)
}
