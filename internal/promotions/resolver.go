package promotions

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	messageProductOffer = "Oferta do produto"
	messagePromotion    = "Promoção aplicada - "
	messageNoDiscount   = "Preço normal"
)

// ProductSnapshot is the catalog view of a product being priced.
type ProductSnapshot struct {
	ID         uuid.UUID        `json:"id"`
	CategoryID *uuid.UUID       `json:"category_id,omitempty"`
	ListPrice  decimal.Decimal  `json:"list_price"`
	OfferPrice *decimal.Decimal `json:"offer_price,omitempty"`
}

// PriceResolution is the price a customer pays for one unit and where the discount came from.
type PriceResolution struct {
	FinalPrice     decimal.Decimal      `json:"final_price"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	Source         enums.DiscountSource `json:"source"`
	Message        string               `json:"message"`
	Promotion      *Promotion           `json:"-"`
}

// ResolveProductPrice reconciles the product's own offer price with promo.
// The lower final price wins and an exact tie keeps the product offer. It has
// no side effects, so repeated calls return the same result.
func ResolveProductPrice(product ProductSnapshot, promo *Promotion) PriceResolution {
	list := clampZero(product.ListPrice).Round(2)

	offerPrice, hasOffer := offerFor(product, list)
	var promoPrice decimal.Decimal
	hasPromo := false
	if promo != nil {
		if discount := UnitDiscount(*promo, product); discount.IsPositive() {
			promoPrice = list.Sub(discount)
			hasPromo = true
		}
	}

	switch {
	case hasPromo && (!hasOffer || promoPrice.LessThan(offerPrice)):
		return PriceResolution{
			FinalPrice:     promoPrice,
			DiscountAmount: list.Sub(promoPrice),
			Source:         enums.DiscountSourcePromotion,
			Message:        messagePromotion + promo.Name,
			Promotion:      promo,
		}
	case hasOffer:
		return PriceResolution{
			FinalPrice:     offerPrice,
			DiscountAmount: list.Sub(offerPrice),
			Source:         enums.DiscountSourceProductOffer,
			Message:        messageProductOffer,
		}
	}
	return PriceResolution{
		FinalPrice:     list,
		DiscountAmount: decimal.Zero,
		Source:         enums.DiscountSourceNone,
		Message:        messageNoDiscount,
	}
}

// offerFor returns the offer price when it actually undercuts the list price.
func offerFor(product ProductSnapshot, list decimal.Decimal) (decimal.Decimal, bool) {
	if product.OfferPrice == nil {
		return decimal.Zero, false
	}
	offer := product.OfferPrice.Round(2)
	if offer.IsNegative() || !offer.LessThan(list) {
		return decimal.Zero, false
	}
	return offer, true
}

// UnitDiscount is what promo takes off one unit of product at list price.
// Only price-reducing types count; free delivery and BOGO act on the cart.
func UnitDiscount(promo Promotion, product ProductSnapshot) decimal.Decimal {
	if !promo.Scope.Includes(product.ID, product.CategoryID) {
		return decimal.Zero
	}
	list := clampZero(product.ListPrice)
	switch terms := promo.Terms.(type) {
	case PercentageTerms:
		return percentOf(list, terms.Percentage).Round(2)
	case FixedAmountTerms:
		return capAt(terms.Amount, list).Round(2)
	case FirstOrderTerms:
		return firstOrderDiscount(terms, list).Round(2)
	}
	return decimal.Zero
}

// BestProductPrice evaluates the store's promotions for a single product and
// resolves the winner against the product's offer price. Order-level minimums
// are not checked here; the cart evaluation enforces them at checkout.
func BestProductPrice(product ProductSnapshot, promos []Promotion, order Order, ec EvaluationContext) PriceResolution {
	if len(order.Items) == 0 {
		order.Items = []CartItem{{ID: product.ID, UnitPrice: product.ListPrice, Quantity: 1, CategoryID: product.CategoryID}}
	}
	now := ec.localNow()

	var best *Promotion
	bestDiscount := decimal.Zero
	for i := range promos {
		p := &promos[i]
		if p.check(order, ec, now, false) != "" {
			continue
		}
		discount := UnitDiscount(*p, product)
		if !discount.IsPositive() {
			continue
		}
		if best == nil || discount.GreaterThan(bestDiscount) ||
			(discount.Equal(bestDiscount) && p.CreatedAt.Before(best.CreatedAt)) {
			best, bestDiscount = p, discount
		}
	}
	return ResolveProductPrice(product, best)
}
