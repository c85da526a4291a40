package cache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tollgate/internal/domain/billing"
	"tollgate/internal/shared/logger"
)

const (
	usageCountKeyPrefix = "billing:usage:"
	usageTTLJitterFrac  = 4 // jitter up to TTL/4 (anti-stampede)
)

// CachedUsageCounter wraps a usage counter with a short-TTL Redis cache for
// request-time admission reads. Admission decisions tolerate this staleness;
// the reconciliation passes use the uncached counter instead. Any cache
// failure falls through to the backing counter.
type CachedUsageCounter struct {
	client  *redis.Client
	backing billing.UsageCounter
	ttl     time.Duration
	logger  logger.Interface
}

func NewCachedUsageCounter(client *redis.Client, backing billing.UsageCounter, ttl time.Duration, logger logger.Interface) *CachedUsageCounter {
	return &CachedUsageCounter{
		client:  client,
		backing: backing,
		ttl:     ttl,
		logger:  logger,
	}
}

func (c *CachedUsageCounter) key(organizationID uint, windowStart, windowEnd time.Time) string {
	return fmt.Sprintf("%s%d:%d:%d", usageCountKeyPrefix, organizationID, windowStart.Unix(), windowEnd.Unix())
}

func (c *CachedUsageCounter) Count(ctx context.Context, organizationID uint, windowStart, windowEnd time.Time) (int64, error) {
	key := c.key(organizationID, windowStart, windowEnd)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		if count, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			return count, nil
		}
	} else if err != redis.Nil {
		c.logger.Warnw("usage cache read failed, falling through to store",
			"error", err,
			"organization_id", organizationID,
		)
	}

	count, err := c.backing.Count(ctx, organizationID, windowStart, windowEnd)
	if err != nil {
		return 0, err
	}

	ttl := c.ttl + time.Duration(rand.Int64N(int64(c.ttl)/usageTTLJitterFrac+1))
	if err := c.client.Set(ctx, key, strconv.FormatInt(count, 10), ttl).Err(); err != nil {
		c.logger.Warnw("usage cache write failed",
			"error", err,
			"organization_id", organizationID,
		)
	}

	return count, nil
}

// Invalidate drops every cached window for the organization so the next
// admission check observes freshly recorded events.
func (c *CachedUsageCounter) Invalidate(ctx context.Context, organizationID uint) error {
	pattern := fmt.Sprintf("%s%d:*", usageCountKeyPrefix, organizationID)

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan usage cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete usage cache keys: %w", err)
	}
	return nil
}
