package promotions

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount computes what p takes off order, rounded to cents. It never fails:
// terms that cannot produce a discount yield zero.
func Discount(p Promotion, order Order) decimal.Decimal {
	base := scopedSubtotal(p.Scope, order)

	var amount decimal.Decimal
	switch terms := p.Terms.(type) {
	case PercentageTerms:
		amount = percentOf(base, terms.Percentage)
	case FixedAmountTerms:
		amount = capAt(terms.Amount, base)
	case FreeDeliveryTerms:
		amount = clampZero(order.DeliveryFee)
	case BOGOTerms:
		amount = capAt(bogoDiscount(p.Scope, order.Items, terms), base)
	case FirstOrderTerms:
		amount = firstOrderDiscount(terms, base)
	default:
		return decimal.Zero
	}
	return amount.Round(2)
}

// scopedSubtotal is the order subtotal for store-wide promotions, otherwise
// the sum of the in-scope lines.
func scopedSubtotal(scope Scope, order Order) decimal.Decimal {
	if scope.StoreWide() {
		return clampZero(order.Subtotal)
	}
	total := decimal.Zero
	for _, item := range order.Items {
		if scope.Includes(item.ID, item.CategoryID) {
			total = total.Add(item.LineTotal())
		}
	}
	return total
}

func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	if !pct.IsPositive() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return base.Mul(pct).Div(hundred)
}

func capAt(amount, limit decimal.Decimal) decimal.Decimal {
	amount = clampZero(amount)
	if amount.GreaterThan(limit) {
		return clampZero(limit)
	}
	return amount
}

func clampZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// bogoDiscount prices the free units as the cheapest eligible units. Every
// complete group of buy+get units earns get free units.
func bogoDiscount(scope Scope, items []CartItem, terms BOGOTerms) decimal.Decimal {
	if terms.BuyQuantity <= 0 || terms.GetQuantity <= 0 {
		return decimal.Zero
	}

	eligible := make([]CartItem, 0, len(items))
	units := 0
	for _, item := range items {
		if item.Quantity <= 0 || item.UnitPrice.IsNegative() || !scope.Includes(item.ID, item.CategoryID) {
			continue
		}
		eligible = append(eligible, item)
		units += item.Quantity
	}

	free := (units / (terms.BuyQuantity + terms.GetQuantity)) * terms.GetQuantity
	if free == 0 {
		return decimal.Zero
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].UnitPrice.LessThan(eligible[j].UnitPrice)
	})

	total := decimal.Zero
	for _, item := range eligible {
		if free == 0 {
			break
		}
		take := item.Quantity
		if take > free {
			take = free
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(take))))
		free -= take
	}
	return total
}

func firstOrderDiscount(terms FirstOrderTerms, base decimal.Decimal) decimal.Decimal {
	best := decimal.Zero
	if terms.Percentage != nil {
		best = percentOf(base, *terms.Percentage)
	}
	if terms.Amount != nil {
		if flat := capAt(*terms.Amount, base); flat.GreaterThan(best) {
			best = flat
		}
	}
	return best
}
