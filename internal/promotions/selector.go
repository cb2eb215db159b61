package promotions

import (
	"github.com/shopspring/decimal"
)

// Candidate is a promotion together with the discount it yields on an order.
type Candidate struct {
	Promotion *Promotion      `json:"-"`
	Discount  decimal.Decimal `json:"discount"`
}

// SelectBest picks the promotion with the strictly greatest discount among
// promos, which are assumed applicable. Ties go to the earliest CreatedAt and
// then to input order. Zero discounts never win; nil means nothing qualifies.
func SelectBest(order Order, promos []Promotion) *Candidate {
	var best *Candidate
	for i := range promos {
		p := &promos[i]
		discount := Discount(*p, order)
		if !discount.IsPositive() {
			continue
		}
		if best == nil || beats(p, discount, best) {
			best = &Candidate{Promotion: p, Discount: discount}
		}
	}
	return best
}

// Best filters promos for the order and selects the winner.
func Best(order Order, promos []Promotion, ec EvaluationContext) *Candidate {
	return SelectBest(order, Applicable(order, promos, ec))
}

func beats(p *Promotion, discount decimal.Decimal, current *Candidate) bool {
	switch discount.Cmp(current.Discount) {
	case 1:
		return true
	case -1:
		return false
	}
	return p.CreatedAt.Before(current.Promotion.CreatedAt)
}
