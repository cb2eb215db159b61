package zones

import (
	"github.com/shopspring/decimal"
)

const (
	messageInZone          = "Dentro da área de entrega - "
	messageOutsideAccepted = "Fora da área de entrega - pedido sujeito a aprovação"
	messageOutsideBlocked  = "Fora da área de entrega - por favor, selecione outro endereço"
)

// ValidationResult is the checkout-facing outcome of a delivery location check.
type ValidationResult struct {
	IsInZone    bool            `json:"is_in_zone"`
	Zone        *Zone           `json:"zone"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Message     string          `json:"message"`
	CanCheckout bool            `json:"can_checkout"`
}

// CalculateDeliveryFee returns the fee of the matching zone, or defaultFee.
func (r Resolver) CalculateDeliveryFee(lat, lng float64, zones []Zone, defaultFee decimal.Decimal) decimal.Decimal {
	if z := r.FindMatchingZone(lat, lng, zones); z != nil {
		return z.DeliveryFee.Round(2)
	}
	return defaultFee.Round(2)
}

// ValidateDeliveryLocation reports whether the point is served and which fee applies.
// Outside every zone, CanCheckout is false unless the store accepts outside orders.
func (r Resolver) ValidateDeliveryLocation(lat, lng float64, zones []Zone, acceptOutsideZone bool, defaultFee decimal.Decimal) ValidationResult {
	if z := r.FindMatchingZone(lat, lng, zones); z != nil {
		return ValidationResult{
			IsInZone:    true,
			Zone:        z,
			DeliveryFee: z.DeliveryFee.Round(2),
			Message:     messageInZone + z.Name,
			CanCheckout: true,
		}
	}

	result := ValidationResult{
		DeliveryFee: defaultFee.Round(2),
		Message:     messageOutsideBlocked,
	}
	if acceptOutsideZone {
		result.Message = messageOutsideAccepted
		result.CanCheckout = true
	}
	return result
}
