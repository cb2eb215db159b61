package promotions

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Reasons a stored promotion cannot be loaded.
const (
	RejectUnknownType        = "unknown_type"
	RejectUnknownScope       = "unknown_scope"
	RejectEmptyScope         = "empty_scope"
	RejectInvalidPercentage  = "invalid_percentage"
	RejectInvalidAmount      = "invalid_amount"
	RejectInvalidBOGO        = "invalid_bogo_quantities"
	RejectMissingFirstOrder  = "missing_first_order_terms"
	RejectInvalidMinimum     = "invalid_minimum_order_value"
	RejectInvalidUsageCap    = "invalid_usage_cap"
	RejectInvalidDateRange   = "invalid_date_range"
	RejectInvalidTimeOfDay   = "invalid_time_of_day"
	RejectNoFulfillmentTypes = "no_fulfillment_types"
)

// Reject records a stored promotion that could not form a valid promotion.
type Reject struct {
	Record models.Promotion
	Reason string
}

// FromModels maps stored rows into promotions, splitting out the rows whose
// parameters do not fit their declared type.
func FromModels(rows []models.Promotion) ([]Promotion, []Reject) {
	promos := make([]Promotion, 0, len(rows))
	var rejects []Reject
	for _, row := range rows {
		p, reason := FromModel(row)
		if reason != "" {
			rejects = append(rejects, Reject{Record: row, Reason: reason})
			continue
		}
		promos = append(promos, p)
	}
	return promos, rejects
}

// FromModel maps one stored row. A non-empty reason means the row was rejected.
func FromModel(row models.Promotion) (Promotion, string) {
	terms, reason := termsFromModel(row)
	if reason != "" {
		return Promotion{}, reason
	}
	scope, reason := scopeFromModel(row)
	if reason != "" {
		return Promotion{}, reason
	}
	schedule, reason := scheduleFromModel(row)
	if reason != "" {
		return Promotion{}, reason
	}
	if !row.AppliesToDelivery && !row.AppliesToPickup {
		return Promotion{}, RejectNoFulfillmentTypes
	}

	p := Promotion{
		ID:                row.ID,
		StoreID:           row.StoreID,
		Name:              row.Name,
		Scope:             scope,
		Terms:             terms,
		AppliesToDelivery: row.AppliesToDelivery,
		AppliesToPickup:   row.AppliesToPickup,
		FirstOrderOnly:    row.FirstOrderOnly,
		Schedule:          schedule,
		Display: Display{
			IsVisible:    row.IsVisible,
			ShowPopup:    row.ShowPopup,
			PopupTitle:   deref(row.PopupTitle),
			PopupMessage: deref(row.PopupMessage),
		},
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
	}
	if row.Description != nil {
		p.Description = *row.Description
	}
	if row.MinimumOrderValue.Valid {
		if row.MinimumOrderValue.Decimal.IsNegative() {
			return Promotion{}, RejectInvalidMinimum
		}
		minimum := row.MinimumOrderValue.Decimal
		p.MinimumOrderValue = &minimum
	}
	for _, limit := range []*int{row.MaxUses, row.MaxUsesPerCustomer} {
		if limit != nil && *limit < 0 {
			return Promotion{}, RejectInvalidUsageCap
		}
	}
	p.MaxUses = copyInt(row.MaxUses)
	p.MaxUsesPerCustomer = copyInt(row.MaxUsesPerCustomer)
	return p, ""
}

func termsFromModel(row models.Promotion) (Terms, string) {
	switch row.Type {
	case enums.PromotionTypePercentage:
		pct, ok := validPercentage(row.DiscountPercentage)
		if !ok {
			return nil, RejectInvalidPercentage
		}
		return PercentageTerms{Percentage: pct}, ""
	case enums.PromotionTypeFixedAmount:
		amount, ok := validAmount(row.DiscountAmount)
		if !ok {
			return nil, RejectInvalidAmount
		}
		return FixedAmountTerms{Amount: amount}, ""
	case enums.PromotionTypeFreeDelivery:
		return FreeDeliveryTerms{}, ""
	case enums.PromotionTypeBOGO:
		if row.BuyQuantity == nil || row.GetQuantity == nil || *row.BuyQuantity <= 0 || *row.GetQuantity <= 0 {
			return nil, RejectInvalidBOGO
		}
		return BOGOTerms{BuyQuantity: *row.BuyQuantity, GetQuantity: *row.GetQuantity}, ""
	case enums.PromotionTypeFirstOrder:
		var terms FirstOrderTerms
		if row.DiscountPercentage.Valid {
			pct, ok := validPercentage(row.DiscountPercentage)
			if !ok {
				return nil, RejectInvalidPercentage
			}
			terms.Percentage = &pct
		}
		if row.DiscountAmount.Valid {
			amount, ok := validAmount(row.DiscountAmount)
			if !ok {
				return nil, RejectInvalidAmount
			}
			terms.Amount = &amount
		}
		if terms.Percentage == nil && terms.Amount == nil {
			return nil, RejectMissingFirstOrder
		}
		return terms, ""
	}
	return nil, RejectUnknownType
}

func validPercentage(v decimal.NullDecimal) (decimal.Decimal, bool) {
	if !v.Valid || !v.Decimal.IsPositive() || v.Decimal.GreaterThan(hundred) {
		return decimal.Zero, false
	}
	return v.Decimal, true
}

func validAmount(v decimal.NullDecimal) (decimal.Decimal, bool) {
	if !v.Valid || !v.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	return v.Decimal, true
}

func scopeFromModel(row models.Promotion) (Scope, string) {
	switch row.Scope {
	case "", enums.PromotionScopeStore:
		return Scope{Kind: enums.PromotionScopeStore}, ""
	case enums.PromotionScopeCategory:
		if len(row.CategoryIDs) == 0 {
			return Scope{}, RejectEmptyScope
		}
		return Scope{Kind: row.Scope, CategoryIDs: append(row.CategoryIDs[:0:0], row.CategoryIDs...)}, ""
	case enums.PromotionScopeProduct:
		if len(row.ProductIDs) == 0 {
			return Scope{}, RejectEmptyScope
		}
		return Scope{Kind: row.Scope, ProductIDs: append(row.ProductIDs[:0:0], row.ProductIDs...)}, ""
	}
	return Scope{}, RejectUnknownScope
}

func scheduleFromModel(row models.Promotion) (Schedule, string) {
	s := Schedule{
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
	}
	if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
		return Schedule{}, RejectInvalidDateRange
	}
	if len(row.AllowedDays) > 0 {
		s.AllowedDays = append(s.AllowedDays, row.AllowedDays...)
	}
	for _, pair := range []struct {
		raw *string
		dst **TimeOfDay
	}{{row.StartTime, &s.StartTime}, {row.EndTime, &s.EndTime}} {
		if pair.raw == nil || *pair.raw == "" {
			continue
		}
		t, err := ParseTimeOfDay(*pair.raw)
		if err != nil {
			return Schedule{}, RejectInvalidTimeOfDay
		}
		*pair.dst = &t
	}
	return s, ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
