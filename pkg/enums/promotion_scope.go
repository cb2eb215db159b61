package enums

import "fmt"

// PromotionScope limits which cart lines a promotion targets.
type PromotionScope string

const (
	PromotionScopeStore    PromotionScope = "store"
	PromotionScopeCategory PromotionScope = "category"
	PromotionScopeProduct  PromotionScope = "product"
)

var validPromotionScopes = []PromotionScope{
	PromotionScopeStore,
	PromotionScopeCategory,
	PromotionScopeProduct,
}

// String implements fmt.Stringer.
func (v PromotionScope) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PromotionScope.
func (v PromotionScope) IsValid() bool {
	for _, candidate := range validPromotionScopes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePromotionScope converts raw input into a PromotionScope.
func ParsePromotionScope(value string) (PromotionScope, error) {
	for _, candidate := range validPromotionScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion scope %q", value)
}
