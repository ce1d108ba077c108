package rates

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/rms-pricing/internal/store"
)

const snapshotKeyPrefix = "rms:snapshot:"

// Cache stores hotel snapshots in Redis as JSON.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCache constructs a snapshot cache. A nil client or non-positive ttl disables caching.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func snapshotKey(hotelID string) string {
	return snapshotKeyPrefix + hotelID
}

// Get returns the cached snapshot of hotelID. It reports whether the key existed.
func (c *Cache) Get(ctx context.Context, hotelID string) (*store.Snapshot, bool, error) {
	if !c.enabled() || hotelID == "" {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, snapshotKey(hotelID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

// Set stores snap with the configured TTL.
func (c *Cache) Set(ctx context.Context, snap *store.Snapshot) error {
	if !c.enabled() || snap == nil || snap.HotelID == "" {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKey(snap.HotelID), data, c.ttl).Err()
}

// Delete drops the cached snapshot of hotelID.
func (c *Cache) Delete(ctx context.Context, hotelID string) error {
	if !c.enabled() || hotelID == "" {
		return nil
	}
	return c.client.Del(ctx, snapshotKey(hotelID)).Err()
}
