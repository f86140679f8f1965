package governance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MembershipCache holds resolved memberships between requests. Only existing
// memberships are cached; every mutation invalidates the affected keys.
type MembershipCache interface {
	Get(ctx context.Context, foundationID, principalID string) (Membership, bool, error)
	Set(ctx context.Context, m Membership) error
	Invalidate(ctx context.Context, foundationID, principalID string) error
	InvalidateFoundation(ctx context.Context, foundationID string) error
}

// RedisMembershipCache is a MembershipCache backed by Redis.
type RedisMembershipCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisMembershipCache creates a cache with keys under prefix.
func NewRedisMembershipCache(client *redis.Client, prefix string, ttl time.Duration) *RedisMembershipCache {
	if prefix == "" {
		prefix = "governance:"
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisMembershipCache{client: client, prefix: prefix, ttl: ttl}
}

// getCacheKey generates the Redis key of one membership.
func (c *RedisMembershipCache) getCacheKey(foundationID, principalID string) string {
	return fmt.Sprintf("%smembership:%s:%s", c.prefix, foundationID, principalID)
}

func (c *RedisMembershipCache) Get(ctx context.Context, foundationID, principalID string) (Membership, bool, error) {
	val, err := c.client.Get(ctx, c.getCacheKey(foundationID, principalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Membership{}, false, nil
	}
	if err != nil {
		return Membership{}, false, err
	}
	var m Membership
	if err := json.Unmarshal(val, &m); err != nil {
		return Membership{}, false, fmt.Errorf("failed to decode cached membership: %w", err)
	}
	return m, true, nil
}

func (c *RedisMembershipCache) Set(ctx context.Context, m Membership) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode membership: %w", err)
	}
	return c.client.Set(ctx, c.getCacheKey(m.FoundationID, m.PrincipalID), payload, c.ttl).Err()
}

func (c *RedisMembershipCache) Invalidate(ctx context.Context, foundationID, principalID string) error {
	return c.client.Del(ctx, c.getCacheKey(foundationID, principalID)).Err()
}

// InvalidateFoundation drops every cached membership of a foundation.
func (c *RedisMembershipCache) InvalidateFoundation(ctx context.Context, foundationID string) error {
	return c.deleteMatching(ctx, fmt.Sprintf("%smembership:%s:*", c.prefix, foundationID))
}

// ClearAll drops every key under the cache prefix.
func (c *RedisMembershipCache) ClearAll(ctx context.Context) error {
	return c.deleteMatching(ctx, c.prefix+"*")
}

func (c *RedisMembershipCache) deleteMatching(ctx context.Context, pattern string) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}

// Stats returns cache statistics
func (c *RedisMembershipCache) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"prefix":      c.prefix,
		"ttl_minutes": c.ttl.Minutes(),
	}
	var count int
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if iter.Err() == nil {
		stats["cache_keys_count"] = count
	}
	return stats
}

var _ MembershipCache = (*RedisMembershipCache)(nil)
