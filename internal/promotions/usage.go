package promotions

import (
	"context"

	"github.com/google/uuid"
)

type counterStore interface {
	Counts(ctx context.Context, keys ...string) ([]int64, error)
	PromotionUsageKey(promotionID string) string
	PromotionCustomerUsageKey(promotionID, customerID string) string
}

// UsageReader loads redemption counters for capped promotions.
type UsageReader struct {
	store counterStore
}

// NewUsageReader wraps the counter store.
func NewUsageReader(store counterStore) *UsageReader {
	return &UsageReader{store: store}
}

// Snapshot reads the global and per-customer counters of every capped promotion
// in one round trip. Promotions without caps are skipped.
func (u *UsageReader) Snapshot(ctx context.Context, promos []Promotion, customerID *uuid.UUID) (UsageCounts, error) {
	counts := UsageCounts{
		Global:   map[uuid.UUID]int64{},
		Customer: map[uuid.UUID]int64{},
	}

	type slot struct {
		id       uuid.UUID
		customer bool
	}
	var keys []string
	var slots []slot
	for _, p := range promos {
		if p.MaxUses != nil {
			keys = append(keys, u.store.PromotionUsageKey(p.ID.String()))
			slots = append(slots, slot{id: p.ID})
		}
		if p.MaxUsesPerCustomer != nil && customerID != nil {
			keys = append(keys, u.store.PromotionCustomerUsageKey(p.ID.String(), customerID.String()))
			slots = append(slots, slot{id: p.ID, customer: true})
		}
	}
	if len(keys) == 0 {
		return counts, nil
	}

	values, err := u.store.Counts(ctx, keys...)
	if err != nil {
		return UsageCounts{Unavailable: true}, err
	}
	for i, s := range slots {
		if i >= len(values) {
			break
		}
		if s.customer {
			counts.Customer[s.id] = values[i]
		} else {
			counts.Global[s.id] = values[i]
		}
	}
	return counts, nil
}
