package enums

import "fmt"

// DiscountSource records which mechanism produced a product's final price.
type DiscountSource string

const (
	DiscountSourceProductOffer DiscountSource = "product_offer"
	DiscountSourcePromotion    DiscountSource = "promotion"
	DiscountSourceNone         DiscountSource = "none"
)

var validDiscountSources = []DiscountSource{
	DiscountSourceProductOffer,
	DiscountSourcePromotion,
	DiscountSourceNone,
}

// String implements fmt.Stringer.
func (v DiscountSource) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DiscountSource.
func (v DiscountSource) IsValid() bool {
	for _, candidate := range validDiscountSources {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDiscountSource converts raw input into a DiscountSource.
func ParseDiscountSource(value string) (DiscountSource, error) {
	for _, candidate := range validDiscountSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount source %q", value)
}
