// Package cache provides the Redis-backed latest-decision cache. It fronts
// the readings log on the read path only; a cache failure never fails an
// invocation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"safewave/internal/types"
)

// ErrMiss is returned by GetLatest when no cached decision exists for the
// site. Callers fall through to the readings log.
var ErrMiss = errors.New("cache: miss")

// LatestCache stores the most recent decision record per site under a TTL,
// so dashboard polls do not hit the readings log on every refresh.
type LatestCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestCache creates a LatestCache on top of an established Redis client.
func NewLatestCache(client *redis.Client, ttl time.Duration) *LatestCache {
	return &LatestCache{client: client, ttl: ttl}
}

func latestKey(siteID string) string {
	return fmt.Sprintf("safewave:latest:%s", siteID)
}

// SetLatest stores the decision as the site's freshest, replacing any prior
// entry.
func (c *LatestCache) SetLatest(ctx context.Context, rec *types.DecisionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding decision for cache: %w", err)
	}
	if err := c.client.Set(ctx, latestKey(rec.SiteID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing latest decision to cache: %w", err)
	}
	return nil
}

// GetLatest returns the cached decision for a site, or ErrMiss.
func (c *LatestCache) GetLatest(ctx context.Context, siteID string) (*types.DecisionRecord, error) {
	raw, err := c.client.Get(ctx, latestKey(siteID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("reading latest decision from cache: %w", err)
	}

	var rec types.DecisionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding cached decision: %w", err)
	}
	return &rec, nil
}
