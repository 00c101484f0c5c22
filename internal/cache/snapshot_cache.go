package cache

import (
	"context"
	"encoding/json"
	"time"

	"Tempo/internal/dto"

	"github.com/redis/go-redis/v9"
)

const keySnapshot = "sync:snapshot:"

// SnapshotCache caches the per-user load snapshot in Redis.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache returns a new SnapshotCache.
func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached snapshot or nil on a miss.
func (c *SnapshotCache) Get(ctx context.Context, userID string) (*dto.LoadData, error) {
	b, err := c.rdb.Get(ctx, keySnapshot+userID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var data dto.LoadData
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Set stores the snapshot.
func (c *SnapshotCache) Set(ctx context.Context, userID string, data dto.LoadData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keySnapshot+userID, b, c.ttl).Err()
}

// Invalidate drops the user's snapshot (cache invalidation on write).
func (c *SnapshotCache) Invalidate(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, keySnapshot+userID).Err()
}
