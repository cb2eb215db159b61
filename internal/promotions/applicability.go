package promotions

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

// Reason explains why a promotion does not apply to an order.
type Reason string

const (
	ReasonInactive           Reason = "inactive"
	ReasonStore              Reason = "store_mismatch"
	ReasonOutsideSchedule    Reason = "outside_schedule"
	ReasonDeliveryType       Reason = "delivery_type"
	ReasonMinimumOrderValue  Reason = "minimum_order_value"
	ReasonUsageUnavailable   Reason = "usage_unavailable"
	ReasonMaxUses            Reason = "max_uses"
	ReasonMaxUsesPerCustomer Reason = "max_uses_per_customer"
	ReasonScope              Reason = "scope"
	ReasonFirstOrder         Reason = "first_order"
)

// FirstOrderStatus is the caller's evidence about the customer's order history.
type FirstOrderStatus int

const (
	// FirstOrderUnknown means no evidence was supplied; first-order promotions do not apply.
	FirstOrderUnknown FirstOrderStatus = iota
	// FirstOrderConfirmed means the customer has no prior order at the store.
	FirstOrderConfirmed
	// FirstOrderDenied means the customer has ordered before.
	FirstOrderDenied
)

// UsageCounts is a snapshot of how often promotions were redeemed.
// Customer holds the counts of the order's customer only.
type UsageCounts struct {
	Global      map[uuid.UUID]int64
	Customer    map[uuid.UUID]int64
	Unavailable bool
}

// EvaluationContext carries everything outside the order that applicability depends on.
type EvaluationContext struct {
	Now        time.Time
	Location   *time.Location
	Usage      UsageCounts
	FirstOrder FirstOrderStatus
}

func (ec EvaluationContext) localNow() time.Time {
	now := ec.Now
	if now.IsZero() {
		now = time.Now()
	}
	if ec.Location != nil {
		now = now.In(ec.Location)
	}
	return now
}

// Decision is the applicability verdict for one promotion.
type Decision struct {
	Promotion  *Promotion `json:"-"`
	Applicable bool       `json:"applicable"`
	Reason     Reason     `json:"reason,omitempty"`
}

// Evaluate checks every promotion against the order. Decisions keep input order
// and point into promos.
func Evaluate(order Order, promos []Promotion, ec EvaluationContext) []Decision {
	now := ec.localNow()
	decisions := make([]Decision, 0, len(promos))
	for i := range promos {
		p := &promos[i]
		reason := p.check(order, ec, now, true)
		decisions = append(decisions, Decision{Promotion: p, Applicable: reason == "", Reason: reason})
	}
	return decisions
}

// Applicable returns the promotions that apply to the order, in input order.
func Applicable(order Order, promos []Promotion, ec EvaluationContext) []Promotion {
	now := ec.localNow()
	var out []Promotion
	for _, p := range promos {
		if p.check(order, ec, now, true) == "" {
			out = append(out, p)
		}
	}
	return out
}

// check returns "" when p applies. Catalog pricing passes withMinimum=false
// because the minimum order value is a cart-level condition.
func (p Promotion) check(order Order, ec EvaluationContext, now time.Time, withMinimum bool) Reason {
	if !p.IsActive {
		return ReasonInactive
	}
	if order.StoreID != uuid.Nil && p.StoreID != uuid.Nil && order.StoreID != p.StoreID {
		return ReasonStore
	}
	if !p.Schedule.allows(now) {
		return ReasonOutsideSchedule
	}
	if !p.allowsDeliveryType(order.DeliveryType) {
		return ReasonDeliveryType
	}
	if withMinimum && p.MinimumOrderValue != nil && order.Subtotal.LessThan(*p.MinimumOrderValue) {
		return ReasonMinimumOrderValue
	}
	if reason := p.checkUsage(order, ec.Usage); reason != "" {
		return reason
	}
	if !p.matchesAnyItem(order.Items) {
		return ReasonScope
	}
	if p.RequiresFirstOrder() && (order.CustomerID == nil || ec.FirstOrder != FirstOrderConfirmed) {
		return ReasonFirstOrder
	}
	return ""
}

func (s Schedule) allows(now time.Time) bool {
	if s.StartDate != nil && now.Before(*s.StartDate) {
		return false
	}
	if s.EndDate != nil && now.After(*s.EndDate) {
		return false
	}
	if len(s.AllowedDays) > 0 {
		allowed := false
		for _, d := range s.AllowedDays {
			if d == now.Weekday() {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return s.withinTimeWindow(At(now))
}

// withinTimeWindow treats the window as [start, end). A start after the end
// wraps past midnight; equal bounds cover the whole day.
func (s Schedule) withinTimeWindow(t TimeOfDay) bool {
	switch {
	case s.StartTime == nil && s.EndTime == nil:
		return true
	case s.EndTime == nil:
		return t >= *s.StartTime
	case s.StartTime == nil:
		return t < *s.EndTime
	}
	start, end := *s.StartTime, *s.EndTime
	if start == end {
		return true
	}
	if start < end {
		return t >= start && t < end
	}
	return t >= start || t < end
}

func (p Promotion) allowsDeliveryType(dt enums.DeliveryType) bool {
	switch dt {
	case enums.DeliveryTypeDelivery:
		return p.AppliesToDelivery
	case enums.DeliveryTypePickup:
		return p.AppliesToPickup
	}
	return false
}

func (p Promotion) checkUsage(order Order, usage UsageCounts) Reason {
	if !p.hasUsageCaps() {
		return ""
	}
	if usage.Unavailable {
		return ReasonUsageUnavailable
	}
	if p.MaxUses != nil && usage.Global[p.ID] >= int64(*p.MaxUses) {
		return ReasonMaxUses
	}
	if p.MaxUsesPerCustomer != nil && order.CustomerID != nil && usage.Customer[p.ID] >= int64(*p.MaxUsesPerCustomer) {
		return ReasonMaxUsesPerCustomer
	}
	return ""
}

func (p Promotion) matchesAnyItem(items []CartItem) bool {
	if len(items) == 0 {
		return false
	}
	if p.Scope.StoreWide() {
		return true
	}
	for _, item := range items {
		if item.Quantity > 0 && p.Scope.Includes(item.ID, item.CategoryID) {
			return true
		}
	}
	return false
}
