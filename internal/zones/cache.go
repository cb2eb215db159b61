package zones

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type keyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ZonesKey(storeID string) string
}

// Cache keeps the validated zone list of a store in Redis.
type Cache struct {
	store  keyValueStore
	ttl    time.Duration
	isMiss func(error) bool
}

// NewCache builds a zone cache. isMiss reports whether a Get error is a plain cache miss.
func NewCache(store keyValueStore, ttl time.Duration, isMiss func(error) bool) *Cache {
	return &Cache{store: store, ttl: ttl, isMiss: isMiss}
}

// Get returns the cached zones. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, storeID uuid.UUID) (zones []Zone, ok bool, err error) {
	if c == nil || c.store == nil {
		return nil, false, nil
	}
	raw, err := c.store.Get(ctx, c.store.ZonesKey(storeID.String()))
	if err != nil {
		if c.isMiss != nil && c.isMiss(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(raw), &zones); err != nil {
		return nil, false, err
	}
	return zones, true, nil
}

// Set stores the zones for the configured TTL.
func (c *Cache) Set(ctx context.Context, storeID uuid.UUID, zones []Zone) error {
	if c == nil || c.store == nil || c.ttl <= 0 {
		return nil
	}
	if zones == nil {
		zones = []Zone{}
	}
	buf, err := json.Marshal(zones)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.store.ZonesKey(storeID.String()), string(buf), c.ttl)
}
