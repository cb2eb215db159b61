package enums

import "fmt"

// PromotionType selects which discount terms a promotion carries.
type PromotionType string

const (
	PromotionTypePercentage   PromotionType = "percentage"
	PromotionTypeFixedAmount  PromotionType = "fixed_amount"
	PromotionTypeFreeDelivery PromotionType = "free_delivery"
	PromotionTypeBOGO         PromotionType = "bogo"
	PromotionTypeFirstOrder   PromotionType = "first_order"
)

var validPromotionTypes = []PromotionType{
	PromotionTypePercentage,
	PromotionTypeFixedAmount,
	PromotionTypeFreeDelivery,
	PromotionTypeBOGO,
	PromotionTypeFirstOrder,
}

// String implements fmt.Stringer.
func (v PromotionType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PromotionType.
func (v PromotionType) IsValid() bool {
	for _, candidate := range validPromotionTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePromotionType converts raw input into a PromotionType.
func ParsePromotionType(value string) (PromotionType, error) {
	for _, candidate := range validPromotionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion type %q", value)
}
